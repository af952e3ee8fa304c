package user

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/contacts-api/internal/httputil"
	"github.com/redmonkez12/contacts-api/internal/logging"
	"github.com/redmonkez12/contacts-api/internal/storage"
)

// maxAvatarSize caps avatar uploads at 5 MB
const maxAvatarSize = 5 << 20

// Store defines the user persistence operations the handlers need
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateUsername(ctx context.Context, userID uuid.UUID, username string) (*User, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (*User, error)
}

// AvatarUploader pushes image bytes to the external object store
type AvatarUploader interface {
	Upload(ctx context.Context, data []byte, contentType string, userID uuid.UUID) (string, error)
}

// Handler contains HTTP handlers for the profile endpoints
type Handler struct {
	store    Store
	uploader AvatarUploader
}

func NewHandler(store Store, uploader AvatarUploader) *Handler {
	return &Handler{store: store, uploader: uploader}
}

// UpdateProfileRequest carries a partial profile update. Username is the
// only mutable profile field.
type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty"`
}

// ProfileResponse represents the caller's own profile
type ProfileResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar,omitempty"`
	Confirmed bool      `json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
}

func newProfileResponse(u *User) ProfileResponse {
	return ProfileResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.AvatarURL,
		Confirmed: u.Confirmed,
		CreatedAt: u.CreatedAt,
	}
}

// Me handles GET /users/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	current, err := h.store.GetByID(r.Context(), identity.ID)
	if err != nil {
		logger.Error("failed to load profile", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to load profile", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, newProfileResponse(current), http.StatusOK)
}

// UpdateMe handles PATCH /users/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	// Nothing to change: return the current profile unchanged
	if req.Username == nil {
		h.Me(w, r)
		return
	}

	if len(*req.Username) < 3 || len(*req.Username) > 50 {
		httputil.RespondErrorWithCode(w, "username must be between 3 and 50 characters", httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	updated, err := h.store.UpdateUsername(r.Context(), identity.ID, *req.Username)
	if err != nil {
		logger.Error("failed to update profile", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update profile", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("profile updated", "user_id", identity.ID)
	httputil.RespondJSON(w, newProfileResponse(updated), http.StatusOK)
}

// UpdateAvatar handles PATCH /users/me/avatar. The upload is synchronous:
// a failing object store fails the request.
func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		httputil.RespondErrorWithCode(w, "invalid multipart form", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondErrorWithCode(w, "file is required", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.RespondErrorWithCode(w, "failed to read file", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	avatarURL, err := h.uploader.Upload(r.Context(), data, contentType, identity.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotAnImage) {
			httputil.RespondErrorWithCode(w, "file must be an image", httputil.CodeValidationFailed, http.StatusBadRequest)
			return
		}
		logger.Error("avatar upload failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to upload avatar", httputil.CodeUploadFailed, http.StatusInternalServerError)
		return
	}

	updated, err := h.store.UpdateAvatar(r.Context(), identity.ID, avatarURL)
	if err != nil {
		logger.Error("failed to store avatar url", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update avatar", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("avatar updated", "user_id", identity.ID)
	httputil.RespondJSON(w, newProfileResponse(updated), http.StatusOK)
}
