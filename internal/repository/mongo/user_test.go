package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func ns(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func sampleUser() *domain.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.User{
		ID:           "7f1c3a52-4d0e-4f6b-9a57-1b2c3d4e5f60",
		FirstName:    "John",
		LastName:     "Doe",
		Email:        "john@x.com",
		Phone:        "+15550100",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$a2V5",
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func userDoc(u *domain.User, withPassword bool) bson.D {
	d := bson.D{
		{Key: "_id", Value: u.ID},
		{Key: "first_name", Value: u.FirstName},
		{Key: "last_name", Value: u.LastName},
		{Key: "email", Value: u.Email},
		{Key: "phone", Value: u.Phone},
		{Key: "role", Value: string(u.Role)},
		{Key: "status", Value: string(u.Status)},
		{Key: "created_at", Value: u.CreatedAt},
		{Key: "updated_at", Value: u.UpdatedAt},
	}
	if withPassword {
		d = append(d, bson.E{Key: "password_hash", Value: u.PasswordHash})
	}
	return d
}

func duplicateKey(index string) bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{
		Index:   0,
		Code:    11000,
		Message: "E11000 duplicate key error collection: test.users index: " + index + " dup key",
	})
}

func TestUserRepository_Create(t *testing.T) {
	mt := newMock(t)

	mt.Run("success", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(t, repo.Create(context.Background(), sampleUser()))
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		mt.AddMockResponses(duplicateKey(indexEmail))

		err := repo.Create(context.Background(), sampleUser())
		assert.ErrorIs(t, err, apperrors.ErrConflict)

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, repository.MsgEmailTaken, appErr.Message)
	})

	mt.Run("duplicate phone", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		mt.AddMockResponses(duplicateKey(indexPhone))

		err := repo.Create(context.Background(), sampleUser())

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, repository.MsgPhoneTaken, appErr.Message)
	})

	mt.Run("empty phone is not stored", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		u := sampleUser()
		u.Phone = ""
		require.NoError(t, repo.Create(context.Background(), u))

		evt := mt.GetStartedEvent()
		require.NotNil(t, evt)
		docs := evt.Command.Lookup("documents").Array()
		values, err := docs.Values()
		require.NoError(t, err)
		require.Len(t, values, 1)
		_, err = values[0].Document().LookupErr("phone")
		assert.Error(t, err, "phone must be absent so the sparse index skips it")
	})
}

func TestUserRepository_FindByEmail(t *testing.T) {
	mt := newMock(t)

	mt.Run("found and password projected out", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		u := sampleUser()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, userDoc(u, false)))

		got, err := repo.FindByEmail(context.Background(), " John@X.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, domain.RoleUser, got.Role)
		assert.Empty(t, got.PasswordHash)

		evt := mt.GetStartedEvent()
		require.NotNil(t, evt)
		assert.Equal(t, "john@x.com", evt.Command.Lookup("filter", "email").StringValue())
		assert.Equal(t, int32(0), evt.Command.Lookup("projection", "password_hash").Int32())
	})

	mt.Run("with password has no projection", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		u := sampleUser()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, userDoc(u, true)))

		got, err := repo.FindByEmailWithPassword(context.Background(), u.Email)
		require.NoError(t, err)
		assert.Equal(t, u.PasswordHash, got.PasswordHash)

		evt := mt.GetStartedEvent()
		require.NotNil(t, evt)
		_, err = evt.Command.LookupErr("projection")
		assert.Error(t, err)
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))

		got, err := repo.FindByEmail(context.Background(), "nobody@x.com")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestUserRepository_FindByID_NotFound(t *testing.T) {
	mt := newMock(t)

	mt.Run("not found", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))

		_, err := repo.FindByID(context.Background(), "missing")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestUserRepository_FindByEmailOrPhone(t *testing.T) {
	mt := newMock(t)

	mt.Run("phone identifier", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		u := sampleUser()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, userDoc(u, true)))

		got, err := repo.FindByEmailOrPhoneWithPassword(context.Background(), " +15550100 ")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		evt := mt.GetStartedEvent()
		require.NotNil(t, evt)
		assert.Equal(t, "+15550100", evt.Command.Lookup("filter", "phone").StringValue())
	})

	mt.Run("empty phone never queries", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)

		_, err := repo.FindByEmailOrPhone(context.Background(), "  ")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Nil(t, mt.GetStartedEvent())
	})
}

func TestUserRepository_Exists(t *testing.T) {
	mt := newMock(t)

	mt.Run("email exists", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}))

		found, err := repo.ExistsByEmail(context.Background(), "A@B.com")
		require.NoError(t, err)
		assert.True(t, found)
	})

	mt.Run("phone missing", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))

		found, err := repo.ExistsByPhone(context.Background(), "+1")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestUserRepository_Update(t *testing.T) {
	mt := newMock(t)

	mt.Run("unsets empty phone and keeps hash", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(1)},
			bson.E{Key: "nModified", Value: int32(1)},
		))

		u := sampleUser()
		u.Phone = ""
		u.PasswordHash = ""
		require.NoError(t, repo.Update(context.Background(), u))

		evt := mt.GetStartedEvent()
		require.NotNil(t, evt)
		updates, err := evt.Command.Lookup("updates").Array().Values()
		require.NoError(t, err)
		require.Len(t, updates, 1)
		u0 := updates[0].Document().Lookup("u").Document()

		_, err = u0.LookupErr("$unset", "phone")
		assert.NoError(t, err)
		_, err = u0.LookupErr("$set", "password_hash")
		assert.Error(t, err)
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}))

		err := repo.Update(context.Background(), sampleUser())
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		mt.AddMockResponses(duplicateKey(indexEmail))

		err := repo.Update(context.Background(), sampleUser())
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestUserRepository_Delete(t *testing.T) {
	mt := newMock(t)

	mt.Run("deleted", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}))

		assert.NoError(t, repo.Delete(context.Background(), "u-1"))
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}))

		assert.ErrorIs(t, repo.Delete(context.Background(), "u-2"), apperrors.ErrNotFound)
	})
}

func TestUserRepository_List(t *testing.T) {
	mt := newMock(t)

	mt.Run("page", func(mt *mtest.T) {
		repo := newUserRepository(mt.Coll)
		a := sampleUser()
		b := sampleUser()
		b.ID = "0a9b8c7d-6e5f-4a3b-2c1d-0e9f8a7b6c5d"
		b.Email = "jane@x.com"
		b.Role = domain.RoleAdmin

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bson.D{{Key: "n", Value: int32(12)}}),
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, userDoc(a, false), userDoc(b, false)),
		)

		users, total, err := repo.List(context.Background(), pagination.Params{Page: 1, PerPage: 2})
		require.NoError(t, err)
		assert.Equal(t, 12, total)
		require.Len(t, users, 2)
		assert.Equal(t, domain.RoleAdmin, users[1].Role)
	})
}

func TestUserIndexes(t *testing.T) {
	idx := userIndexes()
	require.Len(t, idx, 3)

	assert.True(t, *idx[0].Options.Unique)
	assert.Equal(t, indexEmail, *idx[0].Options.Name)

	assert.True(t, *idx[1].Options.Unique)
	assert.True(t, *idx[1].Options.Sparse)
	assert.Equal(t, indexPhone, *idx[1].Options.Name)
}
