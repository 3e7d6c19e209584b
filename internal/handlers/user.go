package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/photofeed/backend/internal/models"
	"github.com/photofeed/backend/internal/repositories"
	"github.com/photofeed/backend/internal/storage"
	"github.com/photofeed/backend/internal/visibility"
)

// UserHandler handles user profile, favorites and account deletion
type UserHandler struct {
	userRepository     repositories.UserRepository
	photoRepository    repositories.PhotoRepository
	commentRepository  repositories.CommentRepository
	activityRepository repositories.ActivityRepository
	favoriteRepository repositories.FavoriteRepository
	store              *storage.DiskStorage
	tx                 repositories.TxRunner
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(
	userRepo repositories.UserRepository,
	photoRepo repositories.PhotoRepository,
	commentRepo repositories.CommentRepository,
	activityRepo repositories.ActivityRepository,
	favoriteRepo repositories.FavoriteRepository,
	store *storage.DiskStorage,
	tx repositories.TxRunner,
) *UserHandler {
	return &UserHandler{
		userRepository:     userRepo,
		photoRepository:    photoRepo,
		commentRepository:  commentRepo,
		activityRepository: activityRepo,
		favoriteRepository: favoriteRepo,
		store:              store,
		tx:                 tx,
	}
}

// RegisterUserRoutes registers user-related routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/users", h.GetUsers)
	g.GET("/users/favorites", h.GetFavorites)
	g.GET("/users/:id", h.GetUserByID)
	g.PUT("/users/profile", h.UpdateProfile)
	g.POST("/users/favorites/:photoId", h.AddFavorite)
	g.DELETE("/users/favorites/:photoId", h.RemoveFavorite)
	g.DELETE("/users", h.DeleteAccount)
}

// GetUsers lists all users
func (h *UserHandler) GetUsers(c echo.Context) error {
	users, err := h.userRepository.GetUsers()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, users)
}

// UserDetailResponse is a user profile with usage statistics
type UserDetailResponse struct {
	User               *models.User     `json:"user"`
	MostRecentPhoto    *models.Photo    `json:"mostRecentPhoto"`
	MostCommentedPhoto *models.Photo    `json:"mostCommentedPhoto"`
	MentionedPhotos    []models.Photo   `json:"mentionedPhotos"`
	LastActivity       *models.Activity `json:"lastActivity"`
}

// GetUserByID retrieves a user with their visible photo statistics
func (h *UserHandler) GetUserByID(c echo.Context) error {
	viewerID := currentUserID(c)

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	user, err := h.userRepository.GetUserByID(uint(targetID))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Only photos the viewer may see feed the statistics
	photos, err := h.photoRepository.GetVisiblePhotosByOwner(c.Request().Context(), user.ID, viewerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var mostRecent, mostCommented *models.Photo
	for i := range photos {
		p := &photos[i]
		if mostRecent == nil || p.DateUploaded.After(mostRecent.DateUploaded) {
			mostRecent = p
		}
		if mostCommented == nil || len(p.Comments) > len(mostCommented.Comments) {
			mostCommented = p
		}
	}
	if mostCommented != nil && len(mostCommented.Comments) == 0 {
		mostCommented = nil
	}

	mentioned, err := h.photoRepository.GetPhotosMentioning(c.Request().Context(), user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	visibleMentioned := make([]models.Photo, 0, len(mentioned))
	for _, p := range mentioned {
		if visibility.CanView(&p, viewerID) {
			visibleMentioned = append(visibleMentioned, p)
		}
	}

	var lastActivity *models.Activity
	recent, err := h.activityRepository.GetRecentByUserID(c.Request().Context(), user.ID, 1)
	if err == nil && len(recent) > 0 {
		lastActivity = &recent[0]
	}

	return c.JSON(http.StatusOK, UserDetailResponse{
		User:               user,
		MostRecentPhoto:    mostRecent,
		MostCommentedPhoto: mostCommented,
		MentionedPhotos:    visibleMentioned,
		LastActivity:       lastActivity,
	})
}

// UpdateProfile updates the current user's profile fields
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(currentUserID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.Location != "" {
		user.Location = req.Location
	}
	if req.Occupation != "" {
		user.Occupation = req.Occupation
	}
	if req.Description != "" {
		user.Description = req.Description
	}

	if err := h.userRepository.UpdateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, user)
}

// AddFavorite adds a photo to the current user's favorites
func (h *UserHandler) AddFavorite(c echo.Context) error {
	userID := currentUserID(c)
	photoID := c.Param("photoId")

	photo, err := h.photoRepository.GetPhotoByID(c.Request().Context(), photoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Photo not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	isFavorite, err := h.favoriteRepository.IsFavorite(userID, photo.ID.Hex())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if isFavorite {
		return echo.NewHTTPError(http.StatusBadRequest, "Photo already in favorites")
	}

	favorite := &models.Favorite{UserID: userID, PhotoID: photo.ID.Hex()}
	if err := h.favoriteRepository.AddFavorite(favorite); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	ids, err := h.favoriteRepository.GetFavoritePhotoIDs(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ids)
}

// RemoveFavorite removes a photo from the current user's favorites
func (h *UserHandler) RemoveFavorite(c echo.Context) error {
	userID := currentUserID(c)

	if err := h.favoriteRepository.RemoveFavorite(userID, c.Param("photoId")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	ids, err := h.favoriteRepository.GetFavoritePhotoIDs(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ids)
}

// GetFavorites lists the current user's favorited photos with owners expanded
func (h *UserHandler) GetFavorites(c echo.Context) error {
	userID := currentUserID(c)

	ids, err := h.favoriteRepository.GetFavoritePhotoIDs(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	photos, err := h.photoRepository.GetPhotosByIDs(c.Request().Context(), ids)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	ownerIDs := make([]uint, len(photos))
	for i, p := range photos {
		ownerIDs[i] = p.UserID
	}
	userMap, err := compactUserMap(h.userRepository, ownerIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	type favoritePhoto struct {
		models.Photo
		User models.UserCompact `json:"user"`
	}
	out := make([]favoritePhoto, len(photos))
	for i, p := range photos {
		out[i] = favoritePhoto{Photo: p, User: userMap[p.UserID]}
	}
	return c.JSON(http.StatusOK, out)
}

// DeleteAccount deletes the current user and cascades in dependency order,
// leaves first: owned photos with their comments, activities, favorites and
// files, then comments the user authored elsewhere, then the user's
// activities and favorites, and finally the user row itself.
func (h *UserHandler) DeleteAccount(c echo.Context) error {
	userID := currentUserID(c)

	user, err := h.userRepository.GetUserByID(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	photos, err := h.photoRepository.GetPhotosByOwner(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	err = h.tx.WithTransaction(c.Request().Context(), func(ctx context.Context) error {
		for _, photo := range photos {
			if err := h.commentRepository.DeleteCommentsByPhotoID(ctx, photo.ID); err != nil {
				return err
			}
			if err := h.activityRepository.DeleteByPhotoID(ctx, photo.ID); err != nil {
				return err
			}
			if err := h.photoRepository.DeletePhoto(ctx, photo.ID); err != nil {
				return err
			}
		}

		// Comments the user left on other people's photos: detach the
		// photo back-references before deleting the documents
		authored, err := h.commentRepository.GetCommentsByUserID(ctx, userID)
		if err != nil {
			return err
		}
		for _, comment := range authored {
			if err := h.photoRepository.DetachComment(ctx, comment.PhotoID, comment.ID); err != nil {
				return err
			}
		}
		if err := h.commentRepository.DeleteCommentsByUserID(ctx, userID); err != nil {
			return err
		}

		return h.activityRepository.DeleteByUserID(ctx, userID)
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	for _, photo := range photos {
		if err := h.favoriteRepository.DeleteByPhotoID(photo.ID.Hex()); err != nil {
			c.Logger().Errorf("failed to delete favorites for photo %s: %v", photo.ID.Hex(), err)
		}
		h.store.Delete(photo.File)
		h.store.Delete(photo.Thumbnail)
	}
	if err := h.favoriteRepository.DeleteByUserID(userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.userRepository.DeleteUser(user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "User account deleted successfully"})
}
