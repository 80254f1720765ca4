package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"semaphore/learning/internal/logger"
	"semaphore/learning/internal/model"
)

const usersCollection = "users"

// UserStore keeps one document per user, enrollments embedded. Every write
// replaces the whole document, so concurrent writers to the same user are
// last-writer-wins.
type UserStore struct {
	coll *mongo.Collection
	log  *logger.Logger
}

func NewUserStore(db *mongo.Database, log *logger.Logger) *UserStore {
	return &UserStore{
		coll: db.Collection(usersCollection),
		log:  log.With("store", "users"),
	}
}

func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_email_unique"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("users_created_at"),
		},
	})
	if err != nil {
		s.log.Error("Failed to create user indexes", "error", err)
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (s *UserStore) CreateUser(ctx context.Context, user model.User) error {
	if user.EnrolledCourses == nil {
		user.EnrolledCourses = []model.Enrollment{}
	}
	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrDuplicate
		}
		s.log.Error("Failed to insert user", "user_id", user.ID, "error", err)
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	return s.findOne(ctx, bson.M{"_id": userID})
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserStore) ListUsers(ctx context.Context, limit int) ([]model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		s.log.Error("Failed to list users", "error", err)
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := []model.User{}
	if err := cursor.All(ctx, &users); err != nil {
		s.log.Error("Failed to decode users", "error", err)
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s *UserStore) SaveUser(ctx context.Context, user model.User) error {
	if user.EnrolledCourses == nil {
		user.EnrolledCourses = []model.Enrollment{}
	}
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrDuplicate
		}
		s.log.Error("Failed to replace user", "user_id", user.ID, "error", err)
		return fmt.Errorf("replace user: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (model.User, error) {
	var user model.User
	err := s.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.User{}, model.ErrNotFound
	}
	if err != nil {
		s.log.Error("Failed to load user", "filter", filter, "error", err)
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
