package validator

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type signupForm struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,e164"`
	Age       int    `validate:"gte=0,lte=150"`
}

func fieldMessage(fields []apperrors.FieldError, name string) (string, bool) {
	for _, f := range fields {
		if f.Field == name {
			return f.Message, true
		}
	}
	return "", false
}

func TestValidate_Success(t *testing.T) {
	s := signupForm{FirstName: "Alice", Email: "alice@example.com", Age: 30}
	assert.NoError(t, Validate(s))
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	s := signupForm{Email: "alice@example.com"}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	msg, ok := fieldMessage(valErr.Fields(), "firstName")
	require.True(t, ok, "expected firstName in %v", valErr.Fields())
	assert.Equal(t, "is required", msg)
}

func TestValidate_FallsBackToStructFieldName(t *testing.T) {
	s := signupForm{FirstName: "Alice", Email: "alice@example.com", Age: 200}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	msg, ok := fieldMessage(valErr.Fields(), "Age")
	require.True(t, ok)
	assert.Contains(t, msg, "150")
}

func TestValidate_InvalidEmail(t *testing.T) {
	s := signupForm{FirstName: "Alice", Email: "not-an-email"}
	err := Validate(s)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	msg, _ := fieldMessage(valErr.Fields(), "email")
	assert.Equal(t, "must be a valid email address", msg)
}

func TestValidate_InvalidPhone(t *testing.T) {
	s := signupForm{FirstName: "Alice", Email: "alice@example.com", Phone: "12-34"}
	err := Validate(s)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	msg, ok := fieldMessage(valErr.Fields(), "phone")
	require.True(t, ok)
	assert.Contains(t, msg, "international format")
}

func TestValidate_MultipleErrors(t *testing.T) {
	err := Validate(signupForm{})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Len(t, valErr.Fields(), 2)
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(signupForm{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'firstName'")
	assert.Contains(t, err.Error(), "is required")
}

func TestValidationError_AppError(t *testing.T) {
	err := Validate(signupForm{})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	appErr := valErr.AppError()
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
	assert.True(t, errors.Is(appErr, apperrors.ErrValidation))
	assert.Len(t, appErr.Fields, 2)
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"firstName":"Bob","email":"bob@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst signupForm
	require.NoError(t, DecodeAndValidate(req, &dst))
	assert.Equal(t, "Bob", dst.FirstName)
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{broken`))

	var dst signupForm
	err := DecodeAndValidate(req, &dst)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
}

func TestDecodeAndValidate_ValidationFailure(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"firstName":"Bob"}`))

	var dst signupForm
	err := DecodeAndValidate(req, &dst)

	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}

type trimmedForm struct {
	Name  string `json:"name" validate:"required,max=5"`
	Email string `json:"email" validate:"required,email"`
}

func (f *trimmedForm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
}

func TestDecodeAndValidate_NormalizesBeforeValidating(t *testing.T) {
	body := `{"name":"  Bob  ","email":"  bob@example.com "}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst trimmedForm
	require.NoError(t, DecodeAndValidate(req, &dst))
	assert.Equal(t, "Bob", dst.Name)
	assert.Equal(t, "bob@example.com", dst.Email)
}

func TestDecodeAndValidate_BlankAfterNormalize(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"   ","email":"bob@example.com"}`))

	var dst trimmedForm
	err := DecodeAndValidate(req, &dst)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	require.Len(t, fields, 1)
	assert.Equal(t, "name", fields[0].Field)
	assert.Equal(t, "is required", fields[0].Message)
}
