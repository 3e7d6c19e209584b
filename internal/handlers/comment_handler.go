package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/photofeed/backend/internal/mentions"
	"github.com/photofeed/backend/internal/models"
	"github.com/photofeed/backend/internal/repositories"
	"github.com/photofeed/backend/internal/visibility"
)

// CommentHandler handles HTTP requests related to comments. Adding a comment
// is a fan-out write: the comment document, the photo's comment/mention
// lists, and the activity log are updated together.
type CommentHandler struct {
	commentRepository  repositories.CommentRepository
	photoRepository    repositories.PhotoRepository
	userRepository     repositories.UserRepository
	activityRepository repositories.ActivityRepository
	resolver           *mentions.Resolver
	tx                 repositories.TxRunner
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(
	commentRepo repositories.CommentRepository,
	photoRepo repositories.PhotoRepository,
	userRepo repositories.UserRepository,
	activityRepo repositories.ActivityRepository,
	tx repositories.TxRunner,
) *CommentHandler {
	return &CommentHandler{
		commentRepository:  commentRepo,
		photoRepository:    photoRepo,
		userRepository:     userRepo,
		activityRepository: activityRepo,
		resolver:           mentions.NewResolver(userRepo),
		tx:                 tx,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/comments/:photoId", h.CreateComment)
	g.DELETE("/comments/:id", h.DeleteComment)
	g.GET("/photos/:photoId/comments", h.GetCommentsByPhotoID)
}

// CreateComment adds a comment to a photo
func (h *CommentHandler) CreateComment(c echo.Context) error {
	authorID := currentUserID(c)

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	// Text is validated before any lookup happens
	if strings.TrimSpace(req.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Comment text is required")
	}

	photo, err := h.photoRepository.GetPhotoByID(c.Request().Context(), c.Param("photoId"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Photo not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if !visibility.CanView(photo, authorID) {
		return echo.NewHTTPError(http.StatusForbidden, "Not authorized to comment on this photo")
	}

	// Explicit mentions are a user-confirmed list and validated strictly;
	// free-text mentions are best-effort.
	var mentioned []models.User
	if len(req.Mentions) > 0 {
		mentioned, err = h.resolver.ResolveExplicit(req.Mentions)
		if err != nil {
			if errors.Is(err, mentions.ErrMentionNotFound) {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	} else {
		mentioned, err = h.resolver.ResolveText(mentions.Parse(req.Text))
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	mentionIDs := make(models.UserIDList, len(mentioned))
	for i, u := range mentioned {
		mentionIDs[i] = u.ID
	}

	comment := &models.Comment{
		PhotoID:  photo.ID,
		UserID:   authorID,
		Text:     req.Text,
		Mentions: mentionIDs,
	}
	activity := &models.Activity{
		UserID:  authorID,
		Kind:    models.ActivityCommentAdded,
		PhotoID: &photo.ID,
	}

	// Comment insert, photo fan-out and activity insert commit or fail
	// together
	err = h.tx.WithTransaction(c.Request().Context(), func(ctx context.Context) error {
		if err := h.commentRepository.CreateComment(ctx, comment); err != nil {
			return err
		}
		if err := h.photoRepository.AttachComment(ctx, photo.ID, comment.ID, mentionIDs); err != nil {
			return err
		}
		activity.CommentID = &comment.ID
		return h.activityRepository.Record(ctx, activity)
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	author, err := h.userRepository.GetUserByID(authorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Authenticated user not found in database")
	}

	// Move the author's most-recent-activity pointer. Failure here leaves a
	// stale pointer, not an inconsistent log.
	author.LastActivityID = activity.ID.Hex()
	if err := h.userRepository.UpdateUser(author); err != nil {
		c.Logger().Errorf("failed to update last activity for user %d: %v", authorID, err)
	}

	mentionCompacts := make([]models.UserCompact, len(mentioned))
	for i, u := range mentioned {
		mentionCompacts[i] = u.ToCompact()
	}

	return c.JSON(http.StatusCreated, models.PopulatedComment{
		ID:          comment.ID,
		PhotoID:     comment.PhotoID,
		Text:        comment.Text,
		User:        author.ToCompact(),
		Mentions:    mentionCompacts,
		DateCreated: comment.DateCreated,
	})
}

// GetCommentsByPhotoID retrieves a photo's comments with authors expanded
func (h *CommentHandler) GetCommentsByPhotoID(c echo.Context) error {
	viewerID := currentUserID(c)

	photo, err := h.photoRepository.GetPhotoByID(c.Request().Context(), c.Param("photoId"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Photo not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if !visibility.CanView(photo, viewerID) {
		return echo.NewHTTPError(http.StatusForbidden, "Not authorized to view this photo")
	}

	comments, err := h.commentRepository.GetCommentsByPhotoID(c.Request().Context(), photo.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	userIDs := make([]uint, 0, len(comments))
	for _, cm := range comments {
		userIDs = append(userIDs, cm.UserID)
		userIDs = append(userIDs, cm.Mentions...)
	}
	userMap, err := compactUserMap(h.userRepository, userIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	populated := make([]models.PopulatedComment, len(comments))
	for i, cm := range comments {
		populated[i] = models.PopulatedComment{
			ID:          cm.ID,
			PhotoID:     cm.PhotoID,
			Text:        cm.Text,
			User:        userMap[cm.UserID],
			Mentions:    compactList(cm.Mentions, userMap),
			DateCreated: cm.DateCreated,
		}
	}

	return c.JSON(http.StatusOK, populated)
}

// DeleteComment deletes a comment. Only the comment's author or the owner
// of its photo may delete it. The photo's mention set is left as-is; it is
// never retracted.
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	requesterID := currentUserID(c)

	comment, err := h.commentRepository.GetCommentByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Comment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if comment.UserID != requesterID {
		photo, err := h.photoRepository.GetPhotoByID(c.Request().Context(), comment.PhotoID.Hex())
		if err != nil || photo.UserID != requesterID {
			return echo.NewHTTPError(http.StatusForbidden, "Not authorized to delete this comment")
		}
	}

	err = h.tx.WithTransaction(c.Request().Context(), func(ctx context.Context) error {
		if err := h.photoRepository.DetachComment(ctx, comment.PhotoID, comment.ID); err != nil {
			return err
		}
		if err := h.activityRepository.DeleteByCommentID(ctx, comment.ID); err != nil {
			return err
		}
		return h.commentRepository.DeleteComment(ctx, comment.ID)
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Comment deleted successfully"})
}
