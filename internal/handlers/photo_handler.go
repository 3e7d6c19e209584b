package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/photofeed/backend/internal/models"
	"github.com/photofeed/backend/internal/repositories"
	"github.com/photofeed/backend/internal/storage"
	"github.com/photofeed/backend/internal/visibility"
)

// PhotoHandler handles HTTP requests related to photos
type PhotoHandler struct {
	photoRepository    repositories.PhotoRepository
	userRepository     repositories.UserRepository
	commentRepository  repositories.CommentRepository
	activityRepository repositories.ActivityRepository
	favoriteRepository repositories.FavoriteRepository
	store              *storage.DiskStorage
	tx                 repositories.TxRunner
}

// NewPhotoHandler creates a new PhotoHandler
func NewPhotoHandler(
	photoRepo repositories.PhotoRepository,
	userRepo repositories.UserRepository,
	commentRepo repositories.CommentRepository,
	activityRepo repositories.ActivityRepository,
	favoriteRepo repositories.FavoriteRepository,
	store *storage.DiskStorage,
	tx repositories.TxRunner,
) *PhotoHandler {
	return &PhotoHandler{
		photoRepository:    photoRepo,
		userRepository:     userRepo,
		commentRepository:  commentRepo,
		activityRepository: activityRepo,
		favoriteRepository: favoriteRepo,
		store:              store,
		tx:                 tx,
	}
}

// RegisterPhotoRoutes registers photo-related routes
func (h *PhotoHandler) RegisterPhotoRoutes(g *echo.Group) {
	g.GET("/photos", h.GetVisiblePhotos)
	g.GET("/photos/user/:userId", h.GetPhotosByUser)
	g.GET("/photos/:id", h.GetPhotoByID)
	g.POST("/photos", h.UploadPhoto)
	g.POST("/photos/:id/tags", h.AddTag)
	g.POST("/photos/:id/like", h.LikePhoto)
	g.DELETE("/photos/:id/like", h.UnlikePhoto)
	g.DELETE("/photos/:id", h.DeletePhoto)
}

// PhotoResponse is a photo with its owner expanded and comments populated
type PhotoResponse struct {
	models.Photo
	User         models.UserCompact        `json:"user"`
	Comments     []models.PopulatedComment `json:"comments"`
	LikeCount    int                       `json:"likeCount"`
	CommentCount int                       `json:"commentCount"`
}

// PhotoDetailResponse additionally expands likes, sharing list and mentions
type PhotoDetailResponse struct {
	PhotoResponse
	Likes      []models.UserCompact `json:"likes"`
	SharedWith []models.UserCompact `json:"sharedWith"`
	Mentions   []models.UserCompact `json:"mentions"`
}

// populatePhotos expands owners and comments for a list of photos
func (h *PhotoHandler) populatePhotos(ctx context.Context, photos []models.Photo) ([]PhotoResponse, error) {
	commentsByPhoto := make(map[string][]models.Comment, len(photos))
	var userIDs []uint
	for _, p := range photos {
		userIDs = append(userIDs, p.UserID)
		comments, err := h.commentRepository.GetCommentsByPhotoID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		commentsByPhoto[p.ID.Hex()] = comments
		for _, cm := range comments {
			userIDs = append(userIDs, cm.UserID)
			userIDs = append(userIDs, cm.Mentions...)
		}
	}

	userMap, err := compactUserMap(h.userRepository, userIDs)
	if err != nil {
		return nil, err
	}

	responses := make([]PhotoResponse, len(photos))
	for i, p := range photos {
		comments := commentsByPhoto[p.ID.Hex()]
		populated := make([]models.PopulatedComment, len(comments))
		for j, cm := range comments {
			populated[j] = models.PopulatedComment{
				ID:          cm.ID,
				PhotoID:     cm.PhotoID,
				Text:        cm.Text,
				User:        userMap[cm.UserID],
				Mentions:    compactList(cm.Mentions, userMap),
				DateCreated: cm.DateCreated,
			}
		}
		responses[i] = PhotoResponse{
			Photo:        p,
			User:         userMap[p.UserID],
			Comments:     populated,
			LikeCount:    len(p.Likes),
			CommentCount: len(comments),
		}
	}
	return responses, nil
}

// GetVisiblePhotos lists every photo the current user may see, most liked
// first, then newest
func (h *PhotoHandler) GetVisiblePhotos(c echo.Context) error {
	photos, err := h.photoRepository.GetVisiblePhotos(c.Request().Context(), currentUserID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	responses, err := h.populatePhotos(c.Request().Context(), photos)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, responses)
}

// GetPhotosByUser lists one user's photos, filtered to what the viewer may see
func (h *PhotoHandler) GetPhotosByUser(c echo.Context) error {
	ownerID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	photos, err := h.photoRepository.GetVisiblePhotosByOwner(c.Request().Context(), uint(ownerID), currentUserID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	responses, err := h.populatePhotos(c.Request().Context(), photos)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, responses)
}

// GetPhotoByID retrieves a single photo with everything expanded
func (h *PhotoHandler) GetPhotoByID(c echo.Context) error {
	viewerID := currentUserID(c)

	photo, err := h.photoRepository.GetPhotoByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Photo not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if !visibility.CanView(photo, viewerID) {
		return echo.NewHTTPError(http.StatusForbidden, "Not authorized to view this photo")
	}

	responses, err := h.populatePhotos(c.Request().Context(), []models.Photo{*photo})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var extraIDs []uint
	extraIDs = append(extraIDs, photo.Likes...)
	extraIDs = append(extraIDs, photo.SharedWith...)
	extraIDs = append(extraIDs, photo.Mentions...)
	for _, tag := range photo.Tags {
		extraIDs = append(extraIDs, tag.UserID)
	}
	userMap, err := compactUserMap(h.userRepository, extraIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, PhotoDetailResponse{
		PhotoResponse: responses[0],
		Likes:         compactList(photo.Likes, userMap),
		SharedWith:    compactList(photo.SharedWith, userMap),
		Mentions:      compactList(photo.Mentions, userMap),
	})
}

// UploadPhoto stores an uploaded image, creates the photo document and
// records a PHOTO_UPLOAD activity
func (h *PhotoHandler) UploadPhoto(c echo.Context) error {
	ownerID := currentUserID(c)

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No photo uploaded")
	}

	sharedWith, err := parseSharedWith(c.FormValue("sharedWith"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid sharedWith list")
	}

	// Every user on the sharing list must exist
	for _, id := range sharedWith {
		if _, err := h.userRepository.GetUserByID(id); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("User %d not found", id))
		}
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer src.Close()

	filePath, thumbPath, err := h.store.Save(src, fileHeader.Filename)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) || errors.Is(err, storage.ErrTooLarge) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	photo := &models.Photo{
		UserID:     ownerID,
		File:       filePath,
		Thumbnail:  thumbPath,
		Caption:    c.FormValue("caption"),
		SharedWith: sharedWith,
	}
	if err := h.photoRepository.CreatePhoto(c.Request().Context(), photo); err != nil {
		h.store.Delete(filePath)
		h.store.Delete(thumbPath)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	activity := &models.Activity{
		UserID:  ownerID,
		Kind:    models.ActivityPhotoUpload,
		PhotoID: &photo.ID,
	}
	if err := h.activityRepository.Record(c.Request().Context(), activity); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if owner, err := h.userRepository.GetUserByID(ownerID); err == nil {
		owner.LastActivityID = activity.ID.Hex()
		if err := h.userRepository.UpdateUser(owner); err != nil {
			c.Logger().Errorf("failed to update last activity for user %d: %v", ownerID, err)
		}
	}

	responses, err := h.populatePhotos(c.Request().Context(), []models.Photo{*photo})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, responses[0])
}

// parseSharedWith accepts either a JSON array of user IDs or an empty value
func parseSharedWith(raw string) (models.UserIDList, error) {
	if raw == "" {
		return nil, nil
	}
	var ids []uint
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}
	list := make(models.UserIDList, 0, len(ids))
	for _, id := range ids {
		if !list.Contains(id) {
			list = append(list, id)
		}
	}
	return list, nil
}

// AddTag tags a user inside a region of the photo. Only the owner may tag.
func (h *PhotoHandler) AddTag(c echo.Context) error {
	requesterID := currentUserID(c)

	var req models.AddTagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if _, err := h.userRepository.GetUserByID(req.UserID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	photo, err := h.photoRepository.GetPhotoByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Photo not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if photo.UserID != requesterID {
		return echo.NewHTTPError(http.StatusForbidden, "Not authorized to tag this photo")
	}

	tag := models.Tag{UserID: req.UserID, Rect: req.Rect}
	if err := h.photoRepository.AddTag(c.Request().Context(), photo.ID, tag); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	photo.Tags = append(photo.Tags, tag)
	responses, err := h.populatePhotos(c.Request().Context(), []models.Photo{*photo})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, responses[0])
}

// LikePhoto adds the current user to the photo's like set
func (h *PhotoHandler) LikePhoto(c echo.Context) error {
	viewerID := currentUserID(c)

	photo, err := h.photoRepository.GetPhotoByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Photo not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if !visibility.CanView(photo, viewerID) {
		return echo.NewHTTPError(http.StatusForbidden, "Not authorized to view this photo")
	}

	if photo.Likes.Contains(viewerID) {
		return echo.NewHTTPError(http.StatusBadRequest, "Photo already liked")
	}

	if err := h.photoRepository.AddLike(c.Request().Context(), photo.ID, viewerID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	photo.Likes = append(photo.Likes, viewerID)
	responses, err := h.populatePhotos(c.Request().Context(), []models.Photo{*photo})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, responses[0])
}

// UnlikePhoto removes the current user from the photo's like set
func (h *PhotoHandler) UnlikePhoto(c echo.Context) error {
	viewerID := currentUserID(c)

	photo, err := h.photoRepository.GetPhotoByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Photo not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.photoRepository.RemoveLike(c.Request().Context(), photo.ID, viewerID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	filtered := make(models.UserIDList, 0, len(photo.Likes))
	for _, id := range photo.Likes {
		if id != viewerID {
			filtered = append(filtered, id)
		}
	}
	photo.Likes = filtered

	responses, err := h.populatePhotos(c.Request().Context(), []models.Photo{*photo})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, responses[0])
}

// DeletePhoto removes a photo and everything hanging off it: comments,
// activities, favorites and the stored files. Owner only.
func (h *PhotoHandler) DeletePhoto(c echo.Context) error {
	requesterID := currentUserID(c)

	photo, err := h.photoRepository.GetPhotoByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Photo not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if photo.UserID != requesterID {
		return echo.NewHTTPError(http.StatusForbidden, "Not authorized to delete this photo")
	}

	// Leaves first: comments and activities before the photo itself
	err = h.tx.WithTransaction(c.Request().Context(), func(ctx context.Context) error {
		if err := h.commentRepository.DeleteCommentsByPhotoID(ctx, photo.ID); err != nil {
			return err
		}
		if err := h.activityRepository.DeleteByPhotoID(ctx, photo.ID); err != nil {
			return err
		}
		return h.photoRepository.DeletePhoto(ctx, photo.ID)
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.favoriteRepository.DeleteByPhotoID(photo.ID.Hex()); err != nil {
		c.Logger().Errorf("failed to delete favorites for photo %s: %v", photo.ID.Hex(), err)
	}
	h.store.Delete(photo.File)
	h.store.Delete(photo.Thumbnail)

	return c.JSON(http.StatusOK, echo.Map{"message": "Photo deleted successfully"})
}
