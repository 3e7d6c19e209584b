package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/photofeed/backend/internal/models"
	"github.com/photofeed/backend/internal/repositories"
)

const defaultFeedLimit = 5

// ActivityHandler serves the activity feed
type ActivityHandler struct {
	activityRepository repositories.ActivityRepository
	userRepository     repositories.UserRepository
	photoRepository    repositories.PhotoRepository
	commentRepository  repositories.CommentRepository
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(
	activityRepo repositories.ActivityRepository,
	userRepo repositories.UserRepository,
	photoRepo repositories.PhotoRepository,
	commentRepo repositories.CommentRepository,
) *ActivityHandler {
	return &ActivityHandler{
		activityRepository: activityRepo,
		userRepository:     userRepo,
		photoRepository:    photoRepo,
		commentRepository:  commentRepo,
	}
}

// RegisterActivityRoutes registers feed routes
func (h *ActivityHandler) RegisterActivityRoutes(g *echo.Group) {
	g.GET("/activities", h.GetRecent)
	g.GET("/activities/user/:userId", h.GetRecentByUser)
}

// GetRecent returns the latest activities across all users
func (h *ActivityHandler) GetRecent(c echo.Context) error {
	activities, err := h.activityRepository.GetRecent(c.Request().Context(), feedLimit(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return h.respond(c, activities)
}

// GetRecentByUser returns one user's latest activities
func (h *ActivityHandler) GetRecentByUser(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	activities, err := h.activityRepository.GetRecentByUserID(c.Request().Context(), uint(userID), feedLimit(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return h.respond(c, activities)
}

func feedLimit(c echo.Context) int64 {
	if limit, err := strconv.ParseInt(c.QueryParam("limit"), 10, 64); err == nil && limit > 0 {
		return limit
	}
	return defaultFeedLimit
}

func (h *ActivityHandler) respond(c echo.Context, activities []models.Activity) error {
	populated, err := h.populate(c.Request().Context(), activities)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, populated)
}

// populate expands each activity with its author and, when present, the
// referenced photo and comment. Comment activities get the comment's photo
// transitively. Dangling references are tolerated and left empty.
func (h *ActivityHandler) populate(ctx context.Context, activities []models.Activity) ([]models.PopulatedActivity, error) {
	userIDs := make([]uint, len(activities))
	for i, a := range activities {
		userIDs[i] = a.UserID
	}
	userMap, err := compactUserMap(h.userRepository, userIDs)
	if err != nil {
		return nil, err
	}

	populated := make([]models.PopulatedActivity, len(activities))
	for i, a := range activities {
		entry := models.PopulatedActivity{
			ID:   a.ID,
			Kind: a.Kind,
			User: userMap[a.UserID],
			Date: a.Date,
		}

		if a.CommentID != nil {
			if comment, err := h.commentRepository.GetCommentByID(ctx, a.CommentID.Hex()); err == nil {
				entry.Comment = comment
				if entry.Photo == nil {
					if photo, err := h.photoRepository.GetPhotoByID(ctx, comment.PhotoID.Hex()); err == nil {
						entry.Photo = photo
					}
				}
			}
		}
		if a.PhotoID != nil && entry.Photo == nil {
			if photo, err := h.photoRepository.GetPhotoByID(ctx, a.PhotoID.Hex()); err == nil {
				entry.Photo = photo
			}
		}

		populated[i] = entry
	}
	return populated, nil
}
