package visibility

import (
	"testing"

	"github.com/photofeed/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCanView_PublicPhoto(t *testing.T) {
	photo := &models.Photo{UserID: 1}

	assert.True(t, CanView(photo, 1))
	assert.True(t, CanView(photo, 2))
	assert.True(t, CanView(photo, 99))
}

func TestCanView_EmptySharedWithIsPublic(t *testing.T) {
	photo := &models.Photo{UserID: 1, SharedWith: models.UserIDList{}}

	assert.True(t, CanView(photo, 42))
}

func TestCanView_OwnerAlwaysSees(t *testing.T) {
	photo := &models.Photo{UserID: 1, SharedWith: models.UserIDList{2, 3}}

	assert.True(t, CanView(photo, 1))
}

func TestCanView_SharedWithMember(t *testing.T) {
	photo := &models.Photo{UserID: 1, SharedWith: models.UserIDList{2, 3}}

	assert.True(t, CanView(photo, 2))
	assert.True(t, CanView(photo, 3))
}

func TestCanView_NonMemberDenied(t *testing.T) {
	photo := &models.Photo{UserID: 1, SharedWith: models.UserIDList{2, 3}}

	assert.False(t, CanView(photo, 4))
	assert.False(t, CanView(photo, 0))
}
