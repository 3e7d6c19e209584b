package repositories

import (
	"context"
	"time"

	"github.com/photofeed/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ActivityRepository defines the interface for the append-only activity log
type ActivityRepository interface {
	Record(ctx context.Context, activity *models.Activity) error
	GetRecent(ctx context.Context, limit int64) ([]models.Activity, error)
	GetRecentByUserID(ctx context.Context, userID uint, limit int64) ([]models.Activity, error)
	DeleteByCommentID(ctx context.Context, commentID primitive.ObjectID) error
	DeleteByPhotoID(ctx context.Context, photoID primitive.ObjectID) error
	DeleteByUserID(ctx context.Context, userID uint) error
}

// MongoActivityRepository implements ActivityRepository for MongoDB
type MongoActivityRepository struct {
	collection *mongo.Collection
}

// NewMongoActivityRepository creates a new MongoActivityRepository
func NewMongoActivityRepository(db *mongo.Database) *MongoActivityRepository {
	return &MongoActivityRepository{collection: db.Collection("activities")}
}

// Record appends an activity with the current timestamp
func (r *MongoActivityRepository) Record(ctx context.Context, activity *models.Activity) error {
	activity.ID = primitive.NewObjectID()
	activity.Date = time.Now()
	_, err := r.collection.InsertOne(ctx, activity)
	return err
}

func (r *MongoActivityRepository) find(ctx context.Context, filter bson.M, limit int64) ([]models.Activity, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var activities []models.Activity
	if err = cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// GetRecent retrieves the latest activities across all users, newest first
func (r *MongoActivityRepository) GetRecent(ctx context.Context, limit int64) ([]models.Activity, error) {
	return r.find(ctx, bson.M{}, limit)
}

// GetRecentByUserID retrieves one user's latest activities, newest first
func (r *MongoActivityRepository) GetRecentByUserID(ctx context.Context, userID uint, limit int64) ([]models.Activity, error) {
	return r.find(ctx, bson.M{"user_id": userID}, limit)
}

// DeleteByCommentID removes activities referencing a deleted comment
func (r *MongoActivityRepository) DeleteByCommentID(ctx context.Context, commentID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"comment_id": commentID})
	return err
}

// DeleteByPhotoID removes activities referencing a deleted photo
func (r *MongoActivityRepository) DeleteByPhotoID(ctx context.Context, photoID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"photo_id": photoID})
	return err
}

// DeleteByUserID removes all activities of a deleted user
func (r *MongoActivityRepository) DeleteByUserID(ctx context.Context, userID uint) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
