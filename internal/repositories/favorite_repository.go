package repositories

import (
	"github.com/photofeed/backend/internal/models"
	"gorm.io/gorm"
)

// FavoriteRepository defines the interface for favorite operations
type FavoriteRepository interface {
	AddFavorite(favorite *models.Favorite) error
	RemoveFavorite(userID uint, photoID string) error
	IsFavorite(userID uint, photoID string) (bool, error)
	GetFavoritePhotoIDs(userID uint) ([]string, error)
	DeleteByPhotoID(photoID string) error
	DeleteByUserID(userID uint) error
}

type postgresFavoriteRepository struct {
	db *gorm.DB
}

// NewPostgresFavoriteRepository creates a new FavoriteRepository backed by PostgreSQL
func NewPostgresFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &postgresFavoriteRepository{db: db}
}

func (r *postgresFavoriteRepository) AddFavorite(favorite *models.Favorite) error {
	return r.db.Create(favorite).Error
}

func (r *postgresFavoriteRepository) RemoveFavorite(userID uint, photoID string) error {
	return r.db.Where("user_id = ? AND photo_id = ?", userID, photoID).
		Delete(&models.Favorite{}).Error
}

func (r *postgresFavoriteRepository) IsFavorite(userID uint, photoID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Favorite{}).
		Where("user_id = ? AND photo_id = ?", userID, photoID).
		Count(&count).Error
	return count > 0, err
}

// GetFavoritePhotoIDs returns the photo IDs a user has favorited, oldest first
func (r *postgresFavoriteRepository) GetFavoritePhotoIDs(userID uint) ([]string, error) {
	var favorites []models.Favorite
	if err := r.db.Where("user_id = ?", userID).Order("created_at").Find(&favorites).Error; err != nil {
		return nil, err
	}
	ids := make([]string, len(favorites))
	for i, f := range favorites {
		ids[i] = f.PhotoID
	}
	return ids, nil
}

// DeleteByPhotoID removes all favorites pointing at a deleted photo
func (r *postgresFavoriteRepository) DeleteByPhotoID(photoID string) error {
	return r.db.Where("photo_id = ?", photoID).Delete(&models.Favorite{}).Error
}

// DeleteByUserID removes all favorites of a deleted user
func (r *postgresFavoriteRepository) DeleteByUserID(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.Favorite{}).Error
}
