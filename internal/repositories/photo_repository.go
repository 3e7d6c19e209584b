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

// PhotoRepository defines the interface for photo data operations
type PhotoRepository interface {
	CreatePhoto(ctx context.Context, photo *models.Photo) error
	GetPhotoByID(ctx context.Context, id string) (*models.Photo, error)
	GetVisiblePhotos(ctx context.Context, viewerID uint) ([]models.Photo, error)
	GetVisiblePhotosByOwner(ctx context.Context, ownerID, viewerID uint) ([]models.Photo, error)
	GetPhotosByOwner(ctx context.Context, ownerID uint) ([]models.Photo, error)
	GetPhotosByIDs(ctx context.Context, ids []string) ([]models.Photo, error)
	GetPhotosMentioning(ctx context.Context, userID uint) ([]models.Photo, error)
	AttachComment(ctx context.Context, photoID, commentID primitive.ObjectID, mentionIDs []uint) error
	DetachComment(ctx context.Context, photoID, commentID primitive.ObjectID) error
	AddTag(ctx context.Context, photoID primitive.ObjectID, tag models.Tag) error
	AddLike(ctx context.Context, photoID primitive.ObjectID, userID uint) error
	RemoveLike(ctx context.Context, photoID primitive.ObjectID, userID uint) error
	DeletePhoto(ctx context.Context, photoID primitive.ObjectID) error
}

// MongoPhotoRepository implements PhotoRepository for MongoDB
type MongoPhotoRepository struct {
	collection *mongo.Collection
}

// NewMongoPhotoRepository creates a new MongoPhotoRepository
func NewMongoPhotoRepository(db *mongo.Database) *MongoPhotoRepository {
	return &MongoPhotoRepository{collection: db.Collection("photos")}
}

// visibleTo matches photos the viewer may see: public ones (no shared_with
// list), ones shared with them, and their own.
func visibleTo(viewerID uint) bson.M {
	return bson.M{
		"$or": bson.A{
			bson.M{"shared_with": bson.M{"$exists": false}},
			bson.M{"shared_with": bson.M{"$size": 0}},
			bson.M{"shared_with": viewerID},
			bson.M{"user_id": viewerID},
		},
	}
}

// CreatePhoto creates a new photo document
func (r *MongoPhotoRepository) CreatePhoto(ctx context.Context, photo *models.Photo) error {
	photo.ID = primitive.NewObjectID()
	photo.DateUploaded = time.Now()
	if photo.Comments == nil {
		photo.Comments = []primitive.ObjectID{}
	}
	if photo.Likes == nil {
		photo.Likes = models.UserIDList{}
	}
	if photo.SharedWith == nil {
		photo.SharedWith = models.UserIDList{}
	}
	if photo.Mentions == nil {
		photo.Mentions = models.UserIDList{}
	}
	_, err := r.collection.InsertOne(ctx, photo)
	return err
}

// GetPhotoByID retrieves a photo by its hex ID
func (r *MongoPhotoRepository) GetPhotoByID(ctx context.Context, id string) (*models.Photo, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid photo ID format: %w", ErrNotFound)
	}

	var photo models.Photo
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&photo)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &photo, nil
}

// sortedByPopularity runs the given match through an aggregation that orders
// photos by like count descending, then upload date descending.
func (r *MongoPhotoRepository) sortedByPopularity(ctx context.Context, match bson.M) ([]models.Photo, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$addFields", Value: bson.M{
			"like_count": bson.M{"$size": bson.M{"$ifNull": bson.A{"$likes", bson.A{}}}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "like_count", Value: -1},
			{Key: "date_uploaded", Value: -1},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var photos []models.Photo
	if err = cursor.All(ctx, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// GetVisiblePhotos retrieves all photos the viewer may see, most liked first
func (r *MongoPhotoRepository) GetVisiblePhotos(ctx context.Context, viewerID uint) ([]models.Photo, error) {
	return r.sortedByPopularity(ctx, visibleTo(viewerID))
}

// GetVisiblePhotosByOwner retrieves one owner's photos filtered to what the
// viewer may see
func (r *MongoPhotoRepository) GetVisiblePhotosByOwner(ctx context.Context, ownerID, viewerID uint) ([]models.Photo, error) {
	match := visibleTo(viewerID)
	match["user_id"] = ownerID
	return r.sortedByPopularity(ctx, match)
}

// GetPhotosByOwner retrieves every photo owned by a user, unfiltered.
// Used by cascade deletion only.
func (r *MongoPhotoRepository) GetPhotosByOwner(ctx context.Context, ownerID uint) ([]models.Photo, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": ownerID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var photos []models.Photo
	if err = cursor.All(ctx, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// GetPhotosByIDs retrieves the photos matching the given hex IDs; unknown or
// malformed IDs are skipped
func (r *MongoPhotoRepository) GetPhotosByIDs(ctx context.Context, ids []string) ([]models.Photo, error) {
	objIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if objID, err := primitive.ObjectIDFromHex(id); err == nil {
			objIDs = append(objIDs, objID)
		}
	}
	if len(objIDs) == 0 {
		return nil, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "date_uploaded", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": objIDs}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var photos []models.Photo
	if err = cursor.All(ctx, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// GetPhotosMentioning retrieves photos whose comment mention set includes the user
func (r *MongoPhotoRepository) GetPhotosMentioning(ctx context.Context, userID uint) ([]models.Photo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date_uploaded", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"mentions": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var photos []models.Photo
	if err = cursor.All(ctx, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// AttachComment appends a comment reference and unions the comment's
// mentioned users into the photo's mention set in one atomic update
func (r *MongoPhotoRepository) AttachComment(ctx context.Context, photoID, commentID primitive.ObjectID, mentionIDs []uint) error {
	update := bson.M{
		"$push": bson.M{"comments": commentID},
	}
	if len(mentionIDs) > 0 {
		update["$addToSet"] = bson.M{"mentions": bson.M{"$each": mentionIDs}}
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": photoID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DetachComment removes a comment reference from the photo. The mention set
// is deliberately left untouched; it only ever grows.
func (r *MongoPhotoRepository) DetachComment(ctx context.Context, photoID, commentID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": photoID},
		bson.M{"$pull": bson.M{"comments": commentID}},
	)
	return err
}

// AddTag appends a user tag to the photo
func (r *MongoPhotoRepository) AddTag(ctx context.Context, photoID primitive.ObjectID, tag models.Tag) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": photoID},
		bson.M{"$push": bson.M{"tags": tag}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddLike adds the user to the photo's like set. $addToSet keeps the
// operation idempotent under concurrent likes.
func (r *MongoPhotoRepository) AddLike(ctx context.Context, photoID primitive.ObjectID, userID uint) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": photoID},
		bson.M{"$addToSet": bson.M{"likes": userID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveLike removes the user from the photo's like set
func (r *MongoPhotoRepository) RemoveLike(ctx context.Context, photoID primitive.ObjectID, userID uint) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": photoID},
		bson.M{"$pull": bson.M{"likes": userID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePhoto deletes a photo document
func (r *MongoPhotoRepository) DeletePhoto(ctx context.Context, photoID primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": photoID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
