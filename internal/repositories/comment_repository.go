package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/photofeed/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id string) (*models.Comment, error)
	GetCommentsByPhotoID(ctx context.Context, photoID primitive.ObjectID) ([]models.Comment, error)
	GetCommentsByUserID(ctx context.Context, userID uint) ([]models.Comment, error)
	DeleteComment(ctx context.Context, commentID primitive.ObjectID) error
	DeleteCommentsByPhotoID(ctx context.Context, photoID primitive.ObjectID) error
	DeleteCommentsByUserID(ctx context.Context, userID uint) error
}

// MongoCommentRepository implements CommentRepository for MongoDB
type MongoCommentRepository struct {
	collection *mongo.Collection
}

// NewMongoCommentRepository creates a new MongoCommentRepository
func NewMongoCommentRepository(db *mongo.Database) *MongoCommentRepository {
	return &MongoCommentRepository{collection: db.Collection("comments")}
}

// CreateComment creates a new comment document
func (r *MongoCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	comment.ID = primitive.NewObjectID()
	comment.DateCreated = time.Now()
	if comment.Mentions == nil {
		comment.Mentions = models.UserIDList{}
	}
	_, err := r.collection.InsertOne(ctx, comment)
	return err
}

// GetCommentByID retrieves a comment by its hex ID
func (r *MongoCommentRepository) GetCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid comment ID format: %w", ErrNotFound)
	}

	var comment models.Comment
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&comment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// GetCommentsByPhotoID retrieves a photo's comments, oldest first
func (r *MongoCommentRepository) GetCommentsByPhotoID(ctx context.Context, photoID primitive.ObjectID) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date_created", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"photo_id": photoID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var comments []models.Comment
	if err = cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// GetCommentsByUserID retrieves every comment authored by a user.
// Used by cascade deletion only.
func (r *MongoCommentRepository) GetCommentsByUserID(ctx context.Context, userID uint) ([]models.Comment, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var comments []models.Comment
	if err = cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// DeleteComment deletes a comment document
func (r *MongoCommentRepository) DeleteComment(ctx context.Context, commentID primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": commentID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCommentsByPhotoID deletes all comments on a photo
func (r *MongoCommentRepository) DeleteCommentsByPhotoID(ctx context.Context, photoID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"photo_id": photoID})
	return err
}

// DeleteCommentsByUserID deletes all comments authored by a user
func (r *MongoCommentRepository) DeleteCommentsByUserID(ctx context.Context, userID uint) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
