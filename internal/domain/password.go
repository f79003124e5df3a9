package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinPasswordLength is the minimum number of characters in a password.
const MinPasswordLength = 8

// PasswordProblems lists every strength rule password fails, in a fixed
// order. An empty result means the password is acceptable.
func PasswordProblems(password string) []string {
	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	var problems []string
	if utf8.RuneCountInString(password) < MinPasswordLength {
		problems = append(problems, "at least 8 characters")
	}
	if !hasUpper {
		problems = append(problems, "one uppercase letter")
	}
	if !hasLower {
		problems = append(problems, "one lowercase letter")
	}
	if !hasDigit {
		problems = append(problems, "one digit")
	}
	return problems
}

// PasswordStrengthMessage returns a message naming every unmet rule, or ""
// when the password is strong enough.
func PasswordStrengthMessage(password string) string {
	problems := PasswordProblems(password)
	if len(problems) == 0 {
		return ""
	}
	return "Password must contain " + strings.Join(problems, ", ")
}
