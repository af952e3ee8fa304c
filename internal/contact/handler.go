package contact

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/redmonkez12/contacts-api/internal/httputil"
	"github.com/redmonkez12/contacts-api/internal/logging"
	"github.com/redmonkez12/contacts-api/internal/user"
)

// Handler contains HTTP handlers for contact endpoints. All of them
// require the auth middleware to have attached the caller's identity.
type Handler struct {
	store    Store
	validate *validator.Validate
}

func NewHandler(store Store) *Handler {
	return &Handler{
		store:    store,
		validate: NewValidator(),
	}
}

// Create handles POST /contacts
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := user.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req CreateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		httputil.RespondErrorWithCode(w, validationMessage(err), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	created, err := h.store.Create(r.Context(), identity.ID, req)
	if err != nil {
		logger.Error("failed to create contact", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create contact", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, created, http.StatusCreated)
}

// List handles GET /contacts
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := user.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	filter := ListFilter{
		FirstName: q.Get("first_name"),
		LastName:  q.Get("last_name"),
		Email:     q.Get("email"),
		Offset:    parseIntParam(q.Get("skip"), 0),
		Limit:     parseIntParam(q.Get("limit"), 0),
	}

	contacts, err := h.store.List(r.Context(), identity.ID, filter)
	if err != nil {
		logger.Error("failed to list contacts", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list contacts", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, contacts, http.StatusOK)
}

// Get handles GET /contacts/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := user.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	contactID, ok := contactIDFromRequest(r)
	if !ok {
		respondNotFound(w)
		return
	}

	found, err := h.store.GetByID(r.Context(), identity.ID, contactID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respondNotFound(w)
			return
		}
		logger.Error("failed to get contact", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get contact", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, found, http.StatusOK)
}

// Update handles PUT /contacts/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := user.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	contactID, ok := contactIDFromRequest(r)
	if !ok {
		respondNotFound(w)
		return
	}

	var req UpdateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		httputil.RespondErrorWithCode(w, validationMessage(err), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	updated, err := h.store.Update(r.Context(), identity.ID, contactID, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respondNotFound(w)
			return
		}
		logger.Error("failed to update contact", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update contact", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, updated, http.StatusOK)
}

// Delete handles DELETE /contacts/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := user.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	contactID, ok := contactIDFromRequest(r)
	if !ok {
		respondNotFound(w)
		return
	}

	if err := h.store.Delete(r.Context(), identity.ID, contactID); err != nil {
		if errors.Is(err, ErrNotFound) {
			respondNotFound(w)
			return
		}
		logger.Error("failed to delete contact", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete contact", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpcomingBirthdays handles GET /contacts/birthdays/
func (h *Handler) UpcomingBirthdays(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := user.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	contacts, err := h.store.UpcomingBirthdays(r.Context(), identity.ID, DefaultBirthdayWindowDays)
	if err != nil {
		logger.Error("failed to query upcoming birthdays", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to query upcoming birthdays", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, contacts, http.StatusOK)
}

// contactIDFromRequest parses the {id} path parameter. A malformed id is
// treated the same as a missing contact.
func contactIDFromRequest(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// respondNotFound is the single not-found response for contacts. Access
// across the ownership boundary produces exactly this answer, so a foreign
// contact is indistinguishable from a non-existent one.
func respondNotFound(w http.ResponseWriter) {
	httputil.RespondErrorWithCode(w, "contact not found", httputil.CodeNotFound, http.StatusNotFound)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		switch first.Tag() {
		case "phone":
			return "phone number may only contain digits and the characters + - ( ) and spaces"
		case "notfuture":
			return "birthday must not be in the future"
		case "email":
			return "invalid email format"
		case "required":
			return first.Field() + " is required"
		default:
			return "invalid value for " + first.Field()
		}
	}
	return "validation failed"
}

func parseIntParam(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
