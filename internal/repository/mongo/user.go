// Package mongo implements the user store on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// CollectionName is the collection holding user documents.
const CollectionName = "users"

// userDocument is the stored shape of a user. Phone is omitted when empty so
// the sparse unique index skips it.
type userDocument struct {
	ID              string     `bson:"_id"`
	FirstName       string     `bson:"first_name"`
	LastName        string     `bson:"last_name"`
	Email           string     `bson:"email"`
	Phone           string     `bson:"phone,omitempty"`
	PasswordHash    string     `bson:"password_hash,omitempty"`
	Role            string     `bson:"role"`
	Status          string     `bson:"status"`
	EmailVerifiedAt *time.Time `bson:"email_verified_at,omitempty"`
	ProfileImage    string     `bson:"profile_image,omitempty"`
	CreatedAt       time.Time  `bson:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"`
}

func toDocument(u *domain.User) userDocument {
	return userDocument{
		ID:              u.ID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		Phone:           u.Phone,
		PasswordHash:    u.PasswordHash,
		Role:            string(u.Role),
		Status:          string(u.Status),
		EmailVerifiedAt: u.EmailVerifiedAt,
		ProfileImage:    u.ProfileImage,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func (d *userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:              d.ID,
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		Email:           d.Email,
		Phone:           d.Phone,
		PasswordHash:    d.PasswordHash,
		Role:            domain.Role(d.Role),
		Status:          domain.Status(d.Status),
		EmailVerifiedAt: d.EmailVerifiedAt,
		ProfileImage:    d.ProfileImage,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// hidePassword is the default read projection.
var hidePassword = bson.M{"password_hash": 0}

// UserRepository implements repository.UserRepository using MongoDB.
type UserRepository struct {
	c *mongo.Collection
}

var _ repository.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a user repository on the users collection of db.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return newUserRepository(db.Collection(CollectionName))
}

func newUserRepository(c *mongo.Collection) *UserRepository {
	return &UserRepository{c: c}
}

// Create inserts a new user document.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "users.Create", "insert users")
	defer func() { end(err) }()

	if _, err = r.c.InsertOne(ctx, toDocument(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateError(err)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByID retrieves a user by their ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "users.FindByID", "_id", id, false)
}

// FindByIDWithPassword retrieves a user by their ID including the password hash.
func (r *UserRepository) FindByIDWithPassword(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "users.FindByIDWithPassword", "_id", id, true)
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

// Absent phones are not stored, so an empty phone never matches.
func (r *UserRepository) findByPhone(ctx context.Context, op, phone string, withPassword bool) (*domain.User, error) {
	phone = domain.NormalizePhone(phone)
	if phone == "" {
		return nil, apperrors.ErrNotFound
	}
	return r.findOne(ctx, op, "phone", phone, withPassword)
}

func (r *UserRepository) findOne(ctx context.Context, op, field, value string, withPassword bool) (_ *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, op, "find users by "+field)
	defer func() { end(err) }()

	opts := options.FindOne()
	if !withPassword {
		opts.SetProjection(hidePassword)
	}

	var doc userDocument
	err = r.c.FindOne(ctx, bson.M{field: value}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if field == "_id" {
				return nil, apperrors.NotFound("user", value)
			}
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find user by %s: %w", field, err)
	}
	return doc.toDomain(), nil
}

// Update replaces the mutable fields of a user. An empty phone is unset and
// an empty password hash leaves the stored one in place.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "users.Update", "update users")
	defer func() { end(err) }()

	u.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"email":         u.Email,
		"role":          string(u.Role),
		"status":        string(u.Status),
		"profile_image": u.ProfileImage,
		"updated_at":    u.UpdatedAt,
	}
	unset := bson.M{}
	if u.Phone != "" {
		set["phone"] = u.Phone
	} else {
		unset["phone"] = ""
	}
	if u.EmailVerifiedAt != nil {
		set["email_verified_at"] = *u.EmailVerifiedAt
	} else {
		unset["email_verified_at"] = ""
	}
	if u.PasswordHash != "" {
		set["password_hash"] = u.PasswordHash
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := r.c.UpdateOne(ctx, bson.M{"_id": u.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateError(err)
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("user", u.ID)
	}
	return nil
}

// Delete removes a user document by ID.
func (r *UserRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "users.Delete", "delete users")
	defer func() { end(err) }()

	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
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

func (r *UserRepository) exists(ctx context.Context, op, field, value string) (_ bool, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, op, "count users by "+field)
	defer func() { end(err) }()

	n, err := r.c.CountDocuments(ctx, bson.M{field: value}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check user %s: %w", field, err)
	}
	return n > 0, nil
}

// List returns a page of users, newest first, and the total user count.
func (r *UserRepository) List(ctx context.Context, params pagination.Params) (_ []domain.User, _ int, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemMongo, "users.List", "find users")
	defer func() { end(err) }()

	total, err := r.c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	opts := options.Find().
		SetProjection(hidePassword).
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(params.Offset)).
		SetLimit(int64(params.PerPage))

	cur, err := r.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []userDocument
	if err = cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}

	users := make([]domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, *docs[i].toDomain())
	}
	return users, int(total), nil
}

// duplicateError picks the conflict message from the index named in a
// duplicate key error.
func duplicateError(err error) *apperrors.AppError {
	if strings.Contains(err.Error(), indexPhone) {
		return repository.DuplicateError("phone")
	}
	return repository.DuplicateError("email")
}
