package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/photofeed/backend/internal/models"
	"github.com/photofeed/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- in-memory fakes ---

type fakeUserRepo struct {
	users map[uint]models.User
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uint]models.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) CreateUser(u *models.User) error {
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) GetUserByID(id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetUserByUsername(username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeUserRepo) GetUsers() ([]models.User, error) {
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *fakeUserRepo) GetUsersByIDs(ids []uint) ([]models.User, error) {
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateUser(u *models.User) error {
	if _, ok := r.users[u.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) DeleteUser(id uint) error {
	delete(r.users, id)
	return nil
}

type fakePhotoRepo struct {
	photos map[primitive.ObjectID]*models.Photo
}

func newFakePhotoRepo(photos ...*models.Photo) *fakePhotoRepo {
	r := &fakePhotoRepo{photos: make(map[primitive.ObjectID]*models.Photo)}
	for _, p := range photos {
		r.photos[p.ID] = p
	}
	return r
}

func (r *fakePhotoRepo) CreatePhoto(_ context.Context, p *models.Photo) error {
	p.ID = primitive.NewObjectID()
	p.DateUploaded = time.Now()
	r.photos[p.ID] = p
	return nil
}

func (r *fakePhotoRepo) GetPhotoByID(_ context.Context, id string) (*models.Photo, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repositories.ErrNotFound
	}
	p, ok := r.photos[objID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePhotoRepo) GetVisiblePhotos(_ context.Context, _ uint) ([]models.Photo, error) {
	out := make([]models.Photo, 0, len(r.photos))
	for _, p := range r.photos {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakePhotoRepo) GetVisiblePhotosByOwner(_ context.Context, ownerID, _ uint) ([]models.Photo, error) {
	var out []models.Photo
	for _, p := range r.photos {
		if p.UserID == ownerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePhotoRepo) GetPhotosByOwner(_ context.Context, ownerID uint) ([]models.Photo, error) {
	var out []models.Photo
	for _, p := range r.photos {
		if p.UserID == ownerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePhotoRepo) GetPhotosByIDs(_ context.Context, ids []string) ([]models.Photo, error) {
	var out []models.Photo
	for _, id := range ids {
		if objID, err := primitive.ObjectIDFromHex(id); err == nil {
			if p, ok := r.photos[objID]; ok {
				out = append(out, *p)
			}
		}
	}
	return out, nil
}

func (r *fakePhotoRepo) GetPhotosMentioning(_ context.Context, userID uint) ([]models.Photo, error) {
	var out []models.Photo
	for _, p := range r.photos {
		if p.Mentions.Contains(userID) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePhotoRepo) AttachComment(_ context.Context, photoID, commentID primitive.ObjectID, mentionIDs []uint) error {
	p, ok := r.photos[photoID]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Comments = append(p.Comments, commentID)
	for _, id := range mentionIDs {
		if !p.Mentions.Contains(id) {
			p.Mentions = append(p.Mentions, id)
		}
	}
	return nil
}

func (r *fakePhotoRepo) DetachComment(_ context.Context, photoID, commentID primitive.ObjectID) error {
	p, ok := r.photos[photoID]
	if !ok {
		return nil
	}
	kept := p.Comments[:0]
	for _, id := range p.Comments {
		if id != commentID {
			kept = append(kept, id)
		}
	}
	p.Comments = kept
	return nil
}

func (r *fakePhotoRepo) AddTag(_ context.Context, photoID primitive.ObjectID, tag models.Tag) error {
	p, ok := r.photos[photoID]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Tags = append(p.Tags, tag)
	return nil
}

func (r *fakePhotoRepo) AddLike(_ context.Context, photoID primitive.ObjectID, userID uint) error {
	p, ok := r.photos[photoID]
	if !ok {
		return repositories.ErrNotFound
	}
	if !p.Likes.Contains(userID) {
		p.Likes = append(p.Likes, userID)
	}
	return nil
}

func (r *fakePhotoRepo) RemoveLike(_ context.Context, photoID primitive.ObjectID, userID uint) error {
	p, ok := r.photos[photoID]
	if !ok {
		return repositories.ErrNotFound
	}
	kept := p.Likes[:0]
	for _, id := range p.Likes {
		if id != userID {
			kept = append(kept, id)
		}
	}
	p.Likes = kept
	return nil
}

func (r *fakePhotoRepo) DeletePhoto(_ context.Context, photoID primitive.ObjectID) error {
	if _, ok := r.photos[photoID]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.photos, photoID)
	return nil
}

type fakeCommentRepo struct {
	comments map[primitive.ObjectID]models.Comment
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: make(map[primitive.ObjectID]models.Comment)}
}

func (r *fakeCommentRepo) CreateComment(_ context.Context, c *models.Comment) error {
	c.ID = primitive.NewObjectID()
	c.DateCreated = time.Now()
	if c.Mentions == nil {
		c.Mentions = models.UserIDList{}
	}
	r.comments[c.ID] = *c
	return nil
}

func (r *fakeCommentRepo) GetCommentByID(_ context.Context, id string) (*models.Comment, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repositories.ErrNotFound
	}
	c, ok := r.comments[objID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (r *fakeCommentRepo) GetCommentsByPhotoID(_ context.Context, photoID primitive.ObjectID) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range r.comments {
		if c.PhotoID == photoID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateCreated.Before(out[j].DateCreated) })
	return out, nil
}

func (r *fakeCommentRepo) GetCommentsByUserID(_ context.Context, userID uint) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range r.comments {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCommentRepo) DeleteComment(_ context.Context, commentID primitive.ObjectID) error {
	if _, ok := r.comments[commentID]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.comments, commentID)
	return nil
}

func (r *fakeCommentRepo) DeleteCommentsByPhotoID(_ context.Context, photoID primitive.ObjectID) error {
	for id, c := range r.comments {
		if c.PhotoID == photoID {
			delete(r.comments, id)
		}
	}
	return nil
}

func (r *fakeCommentRepo) DeleteCommentsByUserID(_ context.Context, userID uint) error {
	for id, c := range r.comments {
		if c.UserID == userID {
			delete(r.comments, id)
		}
	}
	return nil
}

type fakeActivityRepo struct {
	activities []models.Activity
}

func (r *fakeActivityRepo) Record(_ context.Context, a *models.Activity) error {
	a.ID = primitive.NewObjectID()
	a.Date = time.Now()
	r.activities = append(r.activities, *a)
	return nil
}

func (r *fakeActivityRepo) GetRecent(_ context.Context, limit int64) ([]models.Activity, error) {
	out := make([]models.Activity, len(r.activities))
	copy(out, r.activities)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeActivityRepo) GetRecentByUserID(_ context.Context, userID uint, limit int64) ([]models.Activity, error) {
	var out []models.Activity
	for _, a := range r.activities {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeActivityRepo) DeleteByCommentID(_ context.Context, commentID primitive.ObjectID) error {
	kept := r.activities[:0]
	for _, a := range r.activities {
		if a.CommentID == nil || *a.CommentID != commentID {
			kept = append(kept, a)
		}
	}
	r.activities = kept
	return nil
}

func (r *fakeActivityRepo) DeleteByPhotoID(_ context.Context, photoID primitive.ObjectID) error {
	kept := r.activities[:0]
	for _, a := range r.activities {
		if a.PhotoID == nil || *a.PhotoID != photoID {
			kept = append(kept, a)
		}
	}
	r.activities = kept
	return nil
}

func (r *fakeActivityRepo) DeleteByUserID(_ context.Context, userID uint) error {
	kept := r.activities[:0]
	for _, a := range r.activities {
		if a.UserID != userID {
			kept = append(kept, a)
		}
	}
	r.activities = kept
	return nil
}

// fakeTxRunner runs the function directly, with no transaction semantics
type fakeTxRunner struct{}

func (fakeTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- test rig ---

type commentRig struct {
	handler    *CommentHandler
	users      *fakeUserRepo
	photos     *fakePhotoRepo
	comments   *fakeCommentRepo
	activities *fakeActivityRepo
}

func newCommentRig(photos ...*models.Photo) *commentRig {
	users := newFakeUserRepo(
		models.User{ID: 1, FirstName: "Alice", LastName: "Anders", Username: "alice"},
		models.User{ID: 2, FirstName: "Bob", LastName: "Brown", Username: "bob"},
		models.User{ID: 3, FirstName: "Carol", LastName: "Clark", Username: "carol"},
	)
	rig := &commentRig{
		users:      users,
		photos:     newFakePhotoRepo(photos...),
		comments:   newFakeCommentRepo(),
		activities: &fakeActivityRepo{},
	}
	rig.handler = NewCommentHandler(rig.comments, rig.photos, users, rig.activities, fakeTxRunner{})
	return rig
}

func requestAs(method, target, body string, userID uint) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", &models.JwtCustomClaims{UserID: userID})
	return c, rec
}

func photoOwnedBy(ownerID uint, sharedWith ...uint) *models.Photo {
	return &models.Photo{
		ID:         primitive.NewObjectID(),
		UserID:     ownerID,
		File:       "/uploads/test.jpg",
		Comments:   []primitive.ObjectID{},
		Likes:      models.UserIDList{},
		SharedWith: models.UserIDList(sharedWith),
		Mentions:   models.UserIDList{},
	}
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	return httpErr.Code
}

// --- CreateComment ---

func TestCreateCommentEmptyTextRejectedBeforeLookup(t *testing.T) {
	rig := newCommentRig()

	c, _ := requestAs(http.MethodPost, "/", `{"text":"   "}`, 2)
	c.SetParamNames("photoId")
	c.SetParamValues(primitive.NewObjectID().Hex())

	err := rig.handler.CreateComment(c)
	assert.Equal(t, http.StatusBadRequest, httpStatus(t, err))
	assert.Empty(t, rig.comments.comments)
}

func TestCreateCommentPhotoNotFound(t *testing.T) {
	rig := newCommentRig()

	c, _ := requestAs(http.MethodPost, "/", `{"text":"nice shot"}`, 2)
	c.SetParamNames("photoId")
	c.SetParamValues(primitive.NewObjectID().Hex())

	err := rig.handler.CreateComment(c)
	assert.Equal(t, http.StatusNotFound, httpStatus(t, err))
}

func TestCreateCommentForbiddenForNonMember(t *testing.T) {
	photo := photoOwnedBy(1, 3) // shared with carol only
	rig := newCommentRig(photo)

	c, _ := requestAs(http.MethodPost, "/", `{"text":"let me in"}`, 2)
	c.SetParamNames("photoId")
	c.SetParamValues(photo.ID.Hex())

	err := rig.handler.CreateComment(c)
	assert.Equal(t, http.StatusForbidden, httpStatus(t, err))
	assert.Empty(t, rig.comments.comments)
	assert.Empty(t, rig.activities.activities)
}

func TestCreateCommentExplicitMentionUnknownUser(t *testing.T) {
	photo := photoOwnedBy(1)
	rig := newCommentRig(photo)

	c, _ := requestAs(http.MethodPost, "/", `{"text":"hello","mentions":[2,999]}`, 2)
	c.SetParamNames("photoId")
	c.SetParamValues(photo.ID.Hex())

	err := rig.handler.CreateComment(c)
	assert.Equal(t, http.StatusBadRequest, httpStatus(t, err))
	assert.Empty(t, rig.comments.comments, "no comment may be persisted when an explicit mention fails")
	assert.Empty(t, photo.Comments)
}

func TestCreateCommentResolvesTextMentions(t *testing.T) {
	photo := photoOwnedBy(1)
	rig := newCommentRig(photo)

	c, rec := requestAs(http.MethodPost, "/", `{"text":"great one @bob, right @nosuchuser?"}`, 3)
	c.SetParamNames("photoId")
	c.SetParamValues(photo.ID.Hex())

	require.NoError(t, rig.handler.CreateComment(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp models.PopulatedComment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "carol", resp.User.Username)
	require.Len(t, resp.Mentions, 1, "unknown @tokens are dropped, not errors")
	assert.Equal(t, "bob", resp.Mentions[0].Username)

	// fan-out: comment stored, photo references it, mention set unioned
	require.Len(t, rig.comments.comments, 1)
	stored := rig.photos.photos[photo.ID]
	require.Len(t, stored.Comments, 1)
	assert.Equal(t, resp.ID, stored.Comments[0])
	assert.True(t, stored.Mentions.Contains(2))

	// activity recorded and the author's pointer moved
	require.Len(t, rig.activities.activities, 1)
	activity := rig.activities.activities[0]
	assert.Equal(t, models.ActivityCommentAdded, activity.Kind)
	assert.Equal(t, uint(3), activity.UserID)
	require.NotNil(t, activity.CommentID)
	assert.Equal(t, resp.ID, *activity.CommentID)

	author, err := rig.users.GetUserByID(3)
	require.NoError(t, err)
	assert.Equal(t, activity.ID.Hex(), author.LastActivityID)
}

func TestCreateCommentExplicitMentionsSkipTextParsing(t *testing.T) {
	photo := photoOwnedBy(1)
	rig := newCommentRig(photo)

	// @alice appears in the text but the explicit list wins
	c, rec := requestAs(http.MethodPost, "/", `{"text":"ping @alice","mentions":[2]}`, 1)
	c.SetParamNames("photoId")
	c.SetParamValues(photo.ID.Hex())

	require.NoError(t, rig.handler.CreateComment(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp models.PopulatedComment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Mentions, 1)
	assert.Equal(t, "bob", resp.Mentions[0].Username)

	stored := rig.photos.photos[photo.ID]
	assert.True(t, stored.Mentions.Contains(2))
	assert.False(t, stored.Mentions.Contains(1))
}

func TestCreateCommentOwnerOnRestrictedPhoto(t *testing.T) {
	photo := photoOwnedBy(1, 3)
	rig := newCommentRig(photo)

	c, rec := requestAs(http.MethodPost, "/", `{"text":"my own photo"}`, 1)
	c.SetParamNames("photoId")
	c.SetParamValues(photo.ID.Hex())

	require.NoError(t, rig.handler.CreateComment(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

// --- GetCommentsByPhotoID ---

func TestGetCommentsForbiddenForNonMember(t *testing.T) {
	photo := photoOwnedBy(1, 3)
	rig := newCommentRig(photo)

	c, _ := requestAs(http.MethodGet, "/", "", 2)
	c.SetParamNames("photoId")
	c.SetParamValues(photo.ID.Hex())

	err := rig.handler.GetCommentsByPhotoID(c)
	assert.Equal(t, http.StatusForbidden, httpStatus(t, err))
}

func TestGetCommentsPopulatesAuthorsAndMentions(t *testing.T) {
	photo := photoOwnedBy(1)
	rig := newCommentRig(photo)

	comment := &models.Comment{PhotoID: photo.ID, UserID: 2, Text: "hi @carol", Mentions: models.UserIDList{3}}
	require.NoError(t, rig.comments.CreateComment(context.Background(), comment))

	c, rec := requestAs(http.MethodGet, "/", "", 1)
	c.SetParamNames("photoId")
	c.SetParamValues(photo.ID.Hex())

	require.NoError(t, rig.handler.GetCommentsByPhotoID(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp []models.PopulatedComment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "bob", resp[0].User.Username)
	require.Len(t, resp[0].Mentions, 1)
	assert.Equal(t, "carol", resp[0].Mentions[0].Username)
}

// --- DeleteComment ---

func seedComment(t *testing.T, rig *commentRig, photo *models.Photo, authorID uint, mentions ...uint) *models.Comment {
	t.Helper()
	comment := &models.Comment{PhotoID: photo.ID, UserID: authorID, Text: "seeded", Mentions: models.UserIDList(mentions)}
	require.NoError(t, rig.comments.CreateComment(context.Background(), comment))
	require.NoError(t, rig.photos.AttachComment(context.Background(), photo.ID, comment.ID, mentions))
	activity := &models.Activity{UserID: authorID, Kind: models.ActivityCommentAdded, PhotoID: &photo.ID, CommentID: &comment.ID}
	require.NoError(t, rig.activities.Record(context.Background(), activity))
	return comment
}

func TestDeleteCommentByAuthor(t *testing.T) {
	photo := photoOwnedBy(1)
	rig := newCommentRig(photo)
	comment := seedComment(t, rig, photo, 2, 3)

	c, rec := requestAs(http.MethodDelete, "/", "", 2)
	c.SetParamNames("id")
	c.SetParamValues(comment.ID.Hex())

	require.NoError(t, rig.handler.DeleteComment(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, rig.comments.comments)
	assert.Empty(t, rig.activities.activities)

	stored := rig.photos.photos[photo.ID]
	assert.Empty(t, stored.Comments)
	assert.True(t, stored.Mentions.Contains(3), "the photo's mention set is never retracted")
}

func TestDeleteCommentByPhotoOwner(t *testing.T) {
	photo := photoOwnedBy(1)
	rig := newCommentRig(photo)
	comment := seedComment(t, rig, photo, 2)

	c, rec := requestAs(http.MethodDelete, "/", "", 1)
	c.SetParamNames("id")
	c.SetParamValues(comment.ID.Hex())

	require.NoError(t, rig.handler.DeleteComment(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rig.comments.comments)
}

func TestDeleteCommentForbiddenForBystander(t *testing.T) {
	photo := photoOwnedBy(1)
	rig := newCommentRig(photo)
	comment := seedComment(t, rig, photo, 2)

	c, _ := requestAs(http.MethodDelete, "/", "", 3)
	c.SetParamNames("id")
	c.SetParamValues(comment.ID.Hex())

	err := rig.handler.DeleteComment(c)
	assert.Equal(t, http.StatusForbidden, httpStatus(t, err))
	assert.Len(t, rig.comments.comments, 1)
	assert.Len(t, rig.photos.photos[photo.ID].Comments, 1)
}

func TestDeleteCommentNotFound(t *testing.T) {
	rig := newCommentRig()

	c, _ := requestAs(http.MethodDelete, "/", "", 1)
	c.SetParamNames("id")
	c.SetParamValues(primitive.NewObjectID().Hex())

	err := rig.handler.DeleteComment(c)
	assert.Equal(t, http.StatusNotFound, httpStatus(t, err))
}
