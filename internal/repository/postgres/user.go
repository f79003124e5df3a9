package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

const uniqueViolation = "23505"

// Column lists shared by every read. Phone is stored as NULL when absent so the
// unique constraint ignores it.
const (
	publicColumns   = `id, first_name, last_name, email, COALESCE(phone, ''), role, status, email_verified_at, profile_image, created_at, updated_at`
	passwordColumns = publicColumns + `, password_hash`
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

var _ repository.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	query := `
		INSERT INTO users (id, first_name, last_name, email, phone, password_hash, role, status,
		                   email_verified_at, profile_image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12)`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "users.Create", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		u.ID,
		u.FirstName,
		u.LastName,
		u.Email,
		u.Phone,
		u.PasswordHash,
		string(u.Role),
		string(u.Status),
		u.EmailVerifiedAt,
		u.ProfileImage,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if conflict := duplicateError(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID retrieves a user by their ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "users.FindByID", "id", id, false)
}

// FindByIDWithPassword retrieves a user by their ID including the password hash.
func (r *UserRepository) FindByIDWithPassword(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "users.FindByIDWithPassword", "id", id, true)
}

// FindByEmail retrieves a user by their email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "users.FindByEmail", "email", domain.NormalizeEmail(email), false)
}

// FindByEmailWithPassword retrieves a user by email including the password hash.
func (r *UserRepository) FindByEmailWithPassword(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "users.FindByEmailWithPassword", "email", domain.NormalizeEmail(email), true)
}

// FindByPhone retrieves a user by their phone number.
func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.findByPhone(ctx, "users.FindByPhone", phone, false)
}

// FindByPhoneWithPassword retrieves a user by phone including the password hash.
func (r *UserRepository) FindByPhoneWithPassword(ctx context.Context, phone string) (*domain.User, error) {
	return r.findByPhone(ctx, "users.FindByPhoneWithPassword", phone, true)
}

// FindByEmailOrPhone resolves a login identifier to a user.
func (r *UserRepository) FindByEmailOrPhone(ctx context.Context, identifier string) (*domain.User, error) {
	if domain.IsEmailIdentifier(identifier) {
		return r.FindByEmail(ctx, identifier)
	}
	return r.FindByPhone(ctx, identifier)
}

// FindByEmailOrPhoneWithPassword resolves a login identifier to a user
// including the password hash.
func (r *UserRepository) FindByEmailOrPhoneWithPassword(ctx context.Context, identifier string) (*domain.User, error) {
	if domain.IsEmailIdentifier(identifier) {
		return r.FindByEmailWithPassword(ctx, identifier)
	}
	return r.FindByPhoneWithPassword(ctx, identifier)
}

// An empty phone is stored as NULL and can never match.
func (r *UserRepository) findByPhone(ctx context.Context, op, phone string, withPassword bool) (*domain.User, error) {
	phone = domain.NormalizePhone(phone)
	if phone == "" {
		return nil, apperrors.ErrNotFound
	}
	return r.findOne(ctx, op, "phone", phone, withPassword)
}

// findOne runs a single-row lookup on column. column is always one of the
// fixed names above, never caller input.
func (r *UserRepository) findOne(ctx context.Context, op, column, value string, withPassword bool) (_ *domain.User, err error) {
	columns := publicColumns
	if withPassword {
		columns = passwordColumns
	}
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1`, columns, column)

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, op, query)
	defer func() { end(err) }()

	u, err := scanUser(r.db.QueryRow(ctx, query, value), withPassword)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if column == "id" {
				return nil, apperrors.NotFound("user", value)
			}
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}
	return u, nil
}

// Update modifies an existing user in the database. The password hash is only
// written when u carries one.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) (err error) {
	u.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, email = $3, phone = NULLIF($4, ''),
		    password_hash = COALESCE(NULLIF($5, ''), password_hash),
		    role = $6, status = $7, email_verified_at = $8, profile_image = $9, updated_at = $10
		WHERE id = $11`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "users.Update", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query,
		u.FirstName,
		u.LastName,
		u.Email,
		u.Phone,
		u.PasswordHash,
		string(u.Role),
		string(u.Status),
		u.EmailVerifiedAt,
		u.ProfileImage,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		if conflict := duplicateError(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", u.ID)
	}

	return nil
}

// Delete removes a user from the database by their ID.
func (r *UserRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM users WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "users.Delete", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

// ExistsByEmail reports whether a user with the given email exists.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "users.ExistsByEmail", "email", domain.NormalizeEmail(email))
}

// ExistsByPhone reports whether a user with the given phone exists.
func (r *UserRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	phone = domain.NormalizePhone(phone)
	if phone == "" {
		return false, nil
	}
	return r.exists(ctx, "users.ExistsByPhone", "phone", phone)
}

func (r *UserRepository) exists(ctx context.Context, op, column, value string) (found bool, err error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM users WHERE %s = $1)`, column)

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, op, query)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, query, value).Scan(&found); err != nil {
		return false, fmt.Errorf("check user %s: %w", column, err)
	}
	return found, nil
}

// List returns a page of users, newest first, and the total user count.
func (r *UserRepository) List(ctx context.Context, params pagination.Params) (_ []domain.User, _ int, err error) {
	query := `SELECT ` + publicColumns + ` FROM users ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "users.List", query)
	defer func() { end(err) }()

	var total int
	if err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.db.Query(ctx, query, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0, params.PerPage)
	for rows.Next() {
		u, err := scanUser(rows, false)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, *u)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate user rows: %w", err)
	}

	return users, total, nil
}

func scanUser(row pgx.Row, withPassword bool) (*domain.User, error) {
	var (
		u      domain.User
		role   string
		status string
	)
	dest := []any{
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.Phone,
		&role,
		&status,
		&u.EmailVerifiedAt,
		&u.ProfileImage,
		&u.CreatedAt,
		&u.UpdatedAt,
	}
	if withPassword {
		dest = append(dest, &u.PasswordHash)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	u.Status = domain.Status(status)
	return &u, nil
}

// duplicateError maps a unique violation to the conflict for the offending
// constraint. It returns nil for any other error.
func duplicateError(err error) *apperrors.AppError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	if pgErr.ConstraintName == "users_phone_key" {
		return repository.DuplicateError("phone")
	}
	return repository.DuplicateError("email")
}
