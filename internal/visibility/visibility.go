// Package visibility decides whether a viewer may see a photo.
package visibility

import "github.com/photofeed/backend/internal/models"

// CanView reports whether viewerID may see the photo. The owner can always
// view; a photo with no shared-with list is public; otherwise the viewer
// must be on the list.
func CanView(photo *models.Photo, viewerID uint) bool {
	if photo.UserID == viewerID {
		return true
	}
	if len(photo.SharedWith) == 0 {
		return true
	}
	return photo.SharedWith.Contains(viewerID)
}
