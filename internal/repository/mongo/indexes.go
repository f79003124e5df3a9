package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Index names. The phone index name is matched against duplicate key errors.
const (
	indexEmail     = "uniq_users_email"
	indexPhone     = "uniq_users_phone"
	indexCreatedAt = "idx_users_created_at"
)

func userIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(indexEmail),
		},
		// Sparse: documents without a phone never collide.
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName(indexPhone),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName(indexCreatedAt),
		},
	}
}

// EnsureIndexes creates the users collection indexes. It is idempotent and is
// called once at startup.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.c.Indexes().CreateMany(ctx, userIndexes()); err != nil {
		return fmt.Errorf("create %s indexes: %w", r.c.Name(), err)
	}
	return nil
}
