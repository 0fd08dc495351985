package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

const profileCollection = "profiles"

// ProfileRepository stores profiles in the "profiles" collection, keyed by
// the auth user id.
type ProfileRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{
		coll: db.Collection(profileCollection),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	if err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	if p.Role != domain.RoleUnset && !p.Role.IsSet() {
		p.Role, _ = domain.ParseRole(string(p.Role))
	}
	if p.FollowedClubIDs == nil {
		p.FollowedClubIDs = []string{}
	}
	return &p, nil
}

// CreateIfAbsent upserts with $setOnInsert, so an existing document is never
// touched. Two concurrent upserts on the same _id may still collide on the
// primary key; that surfaces as domain.ErrProfileExists.
func (r *ProfileRepository) CreateIfAbsent(ctx context.Context, p *domain.Profile) (bool, error) {
	followed := p.FollowedClubIDs
	if followed == nil {
		followed = []string{}
	}
	// _id comes from the filter.
	onInsert := bson.M{
		"full_name":         p.FullName,
		"avatar_url":        p.AvatarURL,
		"role":              string(p.Role),
		"followed_club_ids": followed,
		"created_at":        p.CreatedAt,
		"updated_at":        p.UpdatedAt,
	}
	if p.Bio != "" {
		onInsert["bio"] = p.Bio
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": p.ID},
		bson.M{"$setOnInsert": onInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, domain.ErrProfileExists
		}
		return false, fmt.Errorf("upsert profile: %w", err)
	}
	return res.UpsertedCount == 1, nil
}

func (r *ProfileRepository) UpdateRole(ctx context.Context, userID string, role domain.Role) (*domain.Profile, error) {
	filter := unchosenRoleFilter(userID)
	update := bson.M{"$set": bson.M{"role": string(role), "updated_at": r.now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p domain.Profile
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update role: %w", err)
	}

	// Nothing matched: either no row or the role was already chosen.
	if _, err := r.GetByUserID(ctx, userID); err != nil {
		return nil, err
	}
	return nil, domain.ErrRoleAlreadySet
}

// unchosenRoleFilter matches the profile of userID while its stored role
// reads as unset: missing, null, empty or a spelling ParseRole rejects.
func unchosenRoleFilter(userID string) bson.M {
	quoted := make([]string, 0, len(domain.RoleSpellings()))
	for _, s := range domain.RoleSpellings() {
		quoted = append(quoted, regexp.QuoteMeta(s))
	}
	known := primitive.Regex{Pattern: `^\s*(` + strings.Join(quoted, "|") + `)\s*$`, Options: "i"}
	return bson.M{
		"_id":  userID,
		"role": bson.M{"$not": known},
	}
}

func (r *ProfileRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}
