package user

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/contacts-api/internal/storage"
)

type stubStore struct {
	users map[uuid.UUID]*User
}

func newStubStore() *stubStore {
	return &stubStore{users: make(map[uuid.UUID]*User)}
}

func (s *stubStore) add(u *User) {
	s.users[u.ID] = u
}

func (s *stubStore) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (s *stubStore) UpdateUsername(ctx context.Context, userID uuid.UUID, username string) (*User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	u.Username = username
	u.UpdatedAt = time.Now()
	return u, nil
}

func (s *stubStore) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (*User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	u.AvatarURL = &avatarURL
	u.UpdatedAt = time.Now()
	return u, nil
}

type stubUploader struct {
	uploads int
}

func (u *stubUploader) Upload(ctx context.Context, data []byte, contentType string, userID uuid.UUID) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", storage.ErrNotAnImage
	}
	u.uploads++
	return "https://cdn.example.com/avatars/user_" + userID.String(), nil
}

func newTestSetup() (*Handler, *stubStore, *stubUploader, Identity) {
	store := newStubStore()
	uploader := &stubUploader{}
	handler := NewHandler(store, uploader)

	identity := Identity{ID: uuid.New(), Email: "alice@example.com"}
	store.add(&User{
		ID:        identity.ID,
		Username:  "alice",
		Email:     identity.Email,
		Confirmed: true,
		CreatedAt: time.Now(),
	})

	return handler, store, uploader, identity
}

func authedRequest(r *http.Request, identity Identity) *http.Request {
	return r.WithContext(NewContext(r.Context(), identity))
}

func TestMe_ReturnsProfile(t *testing.T) {
	handler, _, _, identity := newTestSetup()

	req := authedRequest(httptest.NewRequest(http.MethodGet, "/users/me", nil), identity)
	rec := httptest.NewRecorder()
	handler.Me(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var profile ProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, identity.ID, profile.ID)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.True(t, profile.Confirmed)

	// The password hash never appears in responses
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestMe_MissingIdentity(t *testing.T) {
	handler, _, _, _ := newTestSetup()

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rec := httptest.NewRecorder()
	handler.Me(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateMe_ChangesUsername(t *testing.T) {
	handler, store, _, identity := newTestSetup()

	body := strings.NewReader(`{"username":"alice2"}`)
	req := authedRequest(httptest.NewRequest(http.MethodPatch, "/users/me", body), identity)
	rec := httptest.NewRecorder()
	handler.UpdateMe(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := store.GetByID(context.Background(), identity.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice2", stored.Username)
}

func TestUpdateMe_EmptyBodyKeepsProfile(t *testing.T) {
	handler, store, _, identity := newTestSetup()

	body := strings.NewReader(`{}`)
	req := authedRequest(httptest.NewRequest(http.MethodPatch, "/users/me", body), identity)
	rec := httptest.NewRecorder()
	handler.UpdateMe(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := store.GetByID(context.Background(), identity.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Username)
}

func TestUpdateMe_RejectsShortUsername(t *testing.T) {
	handler, _, _, identity := newTestSetup()

	body := strings.NewReader(`{"username":"ab"}`)
	req := authedRequest(httptest.NewRequest(http.MethodPatch, "/users/me", body), identity)
	rec := httptest.NewRecorder()
	handler.UpdateMe(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_failed")
}

func avatarUploadRequest(t *testing.T, identity Identity, filename, contentType string, payload []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPatch, "/users/me/avatar", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return authedRequest(req, identity)
}

func TestUpdateAvatar_StoresURL(t *testing.T) {
	handler, store, uploader, identity := newTestSetup()

	req := avatarUploadRequest(t, identity, "me.png", "image/png", []byte("fake-png-bytes"))
	rec := httptest.NewRecorder()
	handler.UpdateAvatar(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, uploader.uploads)

	stored, err := store.GetByID(context.Background(), identity.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AvatarURL)
	assert.Contains(t, *stored.AvatarURL, identity.ID.String())
}

func TestUpdateAvatar_RejectsNonImage(t *testing.T) {
	handler, store, uploader, identity := newTestSetup()

	req := avatarUploadRequest(t, identity, "resume.pdf", "application/pdf", []byte("%PDF-1.4"))
	rec := httptest.NewRecorder()
	handler.UpdateAvatar(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, uploader.uploads)

	stored, err := store.GetByID(context.Background(), identity.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AvatarURL)
}

func TestUpdateAvatar_MissingFile(t *testing.T) {
	handler, _, _, identity := newTestSetup()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("unrelated", "value"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPatch, "/users/me/avatar", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.UpdateAvatar(rec, authedRequest(req, identity))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
