package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clubconnect/clubconnect/internal/core/domain"
	"github.com/clubconnect/clubconnect/internal/core/ports"
)

const authCollection = "auth_users"

type MongoAuthRepository struct {
	coll *mongo.Collection
}

func NewAuthRepository(db *mongo.Database) *MongoAuthRepository {
	return &MongoAuthRepository{coll: db.Collection(authCollection)}
}

type mongoCredential struct {
	ID           string `bson:"_id"`
	Email        string `bson:"email"`
	PasswordHash string `bson:"password_hash"`
	FullName     string `bson:"full_name,omitempty"`
	AvatarURL    string `bson:"avatar_url,omitempty"`
	CreatedAt    int64  `bson:"created_at"`
}

// EnsureIndexes creates the unique e-mail index sign-up relies on.
func (r *MongoAuthRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create auth_users index: %w", err)
	}
	return nil
}

func (r *MongoAuthRepository) Create(ctx context.Context, rec *ports.CredentialRecord) (*ports.CredentialRecord, error) {
	doc := mongoCredential{
		ID:           rec.UserID,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		FullName:     rec.Metadata.FullName,
		AvatarURL:    rec.Metadata.AvatarURL,
		CreatedAt:    time.Now().Unix(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return toCredential(doc), nil
}

// FindByEmail returns domain.ErrInvalidCredentials for unknown addresses so
// callers cannot tell a missing account from a wrong password.
func (r *MongoAuthRepository) FindByEmail(ctx context.Context, email string) (*ports.CredentialRecord, error) {
	var doc mongoCredential
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return toCredential(doc), nil
}

func toCredential(doc mongoCredential) *ports.CredentialRecord {
	return &ports.CredentialRecord{
		UserID:       doc.ID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Metadata: domain.SessionMetadata{
			FullName:  doc.FullName,
			AvatarURL: doc.AvatarURL,
		},
	}
}
