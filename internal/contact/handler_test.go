package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/contacts-api/internal/user"
)

// memoryStore is an in-memory Store with the same ownership masking and
// filter semantics as the real repository: a contact owned by someone
// else is not found, and name/email filters match case-insensitive
// substrings. It also records the last filter List received.
type memoryStore struct {
	contacts   map[uuid.UUID]*Contact
	lastFilter ListFilter
}

func newMemoryStore() *memoryStore {
	return &memoryStore{contacts: make(map[uuid.UUID]*Contact)}
}

func (s *memoryStore) add(ownerID uuid.UUID, c Contact) *Contact {
	c.ID = uuid.New()
	c.UserID = ownerID
	s.contacts[c.ID] = &c
	return &c
}

func (s *memoryStore) Create(ctx context.Context, ownerID uuid.UUID, req CreateContactRequest) (*Contact, error) {
	c := Contact{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		PhoneNumber:    req.PhoneNumber,
		Birthday:       req.Birthday,
		AdditionalData: req.AdditionalData,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	return s.add(ownerID, c), nil
}

func (s *memoryStore) List(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]Contact, error) {
	s.lastFilter = filter

	result := make([]Contact, 0)
	for _, c := range s.contacts {
		if c.UserID != ownerID {
			continue
		}
		if !containsFold(c.FirstName, filter.FirstName) ||
			!containsFold(c.LastName, filter.LastName) ||
			!containsFold(c.Email, filter.Email) {
			continue
		}
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FirstName < result[j].FirstName })

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []Contact{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func containsFold(value, substr string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(substr))
}

func (s *memoryStore) GetByID(ctx context.Context, ownerID, contactID uuid.UUID) (*Contact, error) {
	c, ok := s.contacts[contactID]
	if !ok || c.UserID != ownerID {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *memoryStore) Update(ctx context.Context, ownerID, contactID uuid.UUID, req UpdateContactRequest) (*Contact, error) {
	c, err := s.GetByID(ctx, ownerID, contactID)
	if err != nil {
		return nil, err
	}
	c.Apply(req)
	c.UpdatedAt = time.Now()
	return c, nil
}

func (s *memoryStore) Delete(ctx context.Context, ownerID, contactID uuid.UUID) error {
	_, err := s.GetByID(ctx, ownerID, contactID)
	if err != nil {
		return err
	}
	delete(s.contacts, contactID)
	return nil
}

func (s *memoryStore) UpcomingBirthdays(ctx context.Context, ownerID uuid.UUID, windowDays int) ([]Contact, error) {
	owned, err := s.List(ctx, ownerID, ListFilter{})
	if err != nil {
		return nil, err
	}
	return FilterUpcomingBirthdays(owned, time.Now(), windowDays), nil
}

func newContactRouter(store Store) *chi.Mux {
	h := NewHandler(store)

	r := chi.NewRouter()
	r.Post("/contacts", h.Create)
	r.Get("/contacts", h.List)
	r.Get("/contacts/birthdays", h.UpcomingBirthdays)
	r.Get("/contacts/{id}", h.Get)
	r.Put("/contacts/{id}", h.Update)
	r.Delete("/contacts/{id}", h.Delete)
	return r
}

func doRequest(t *testing.T, router http.Handler, identity user.Identity, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req = req.WithContext(user.NewContext(req.Context(), identity))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestContactHandler_CreateAndGet(t *testing.T) {
	store := newMemoryStore()
	router := newContactRouter(store)
	owner := user.Identity{ID: uuid.New(), Email: "owner@example.com"}

	payload := map[string]any{
		"first_name":   "Jane",
		"last_name":    "Doe",
		"email":        "jane@example.com",
		"phone_number": "+1 (555) 123-4567",
		"birthday":     "1990-05-15",
	}

	rec := doRequest(t, router, owner, http.MethodPost, "/contacts", payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Jane", created.FirstName)
	assert.Equal(t, owner.ID, created.UserID)

	rec = doRequest(t, router, owner, http.MethodGet, "/contacts/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContactHandler_CreateRejectsInvalidPayload(t *testing.T) {
	store := newMemoryStore()
	router := newContactRouter(store)
	owner := user.Identity{ID: uuid.New(), Email: "owner@example.com"}

	payload := map[string]any{
		"first_name":   "Jane",
		"last_name":    "Doe",
		"email":        "jane@example.com",
		"phone_number": "555-CALL-NOW",
		"birthday":     "1990-05-15",
	}

	rec := doRequest(t, router, owner, http.MethodPost, "/contacts", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "phone number")
}

func TestContactHandler_ListFiltersByName(t *testing.T) {
	store := newMemoryStore()
	router := newContactRouter(store)
	owner := user.Identity{ID: uuid.New(), Email: "owner@example.com"}

	for _, name := range []string{"John", "Joanna", "Mark"} {
		store.add(owner.ID, Contact{
			FirstName:   name,
			LastName:    "Doe",
			Email:       strings.ToLower(name) + "@example.com",
			PhoneNumber: "555-1234",
			Birthday:    NewDate(1990, time.May, 15),
		})
	}

	// Case-insensitive substring match on first_name
	rec := doRequest(t, router, owner, http.MethodGet, "/contacts?first_name=jo", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var contacts []Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contacts))
	require.Len(t, contacts, 2)
	names := []string{contacts[0].FirstName, contacts[1].FirstName}
	assert.ElementsMatch(t, []string{"John", "Joanna"}, names)

	// No filter returns everything
	rec = doRequest(t, router, owner, http.MethodGet, "/contacts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contacts))
	assert.Len(t, contacts, 3)
}

func TestContactHandler_ListQueryParams(t *testing.T) {
	store := newMemoryStore()
	router := newContactRouter(store)
	owner := user.Identity{ID: uuid.New(), Email: "owner@example.com"}

	rec := doRequest(t, router, owner, http.MethodGet,
		"/contacts?first_name=jo&last_name=doe&email=example.com&skip=2&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, ListFilter{
		FirstName: "jo",
		LastName:  "doe",
		Email:     "example.com",
		Offset:    2,
		Limit:     5,
	}, store.lastFilter)

	// Absent parameters fall back to zero values
	rec = doRequest(t, router, owner, http.MethodGet, "/contacts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ListFilter{}, store.lastFilter)
}

func TestContactHandler_OwnershipMasking(t *testing.T) {
	store := newMemoryStore()
	router := newContactRouter(store)

	owner := user.Identity{ID: uuid.New(), Email: "owner@example.com"}
	intruder := user.Identity{ID: uuid.New(), Email: "intruder@example.com"}

	c := store.add(owner.ID, Contact{
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "jane@example.com",
		PhoneNumber: "555-1234",
		Birthday:    NewDate(1990, time.May, 15),
	})

	newName := map[string]any{"first_name": "Hacked"}

	// Someone else's contact answers 404 for every operation, never 403
	rec := doRequest(t, router, intruder, http.MethodGet, "/contacts/"+c.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, intruder, http.MethodPut, "/contacts/"+c.ID.String(), newName)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, intruder, http.MethodDelete, "/contacts/"+c.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The contact is untouched
	got, err := store.GetByID(context.Background(), owner.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.FirstName)
}

func TestContactHandler_MalformedIDIsNotFound(t *testing.T) {
	store := newMemoryStore()
	router := newContactRouter(store)
	owner := user.Identity{ID: uuid.New(), Email: "owner@example.com"}

	rec := doRequest(t, router, owner, http.MethodGet, "/contacts/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContactHandler_PartialUpdate(t *testing.T) {
	store := newMemoryStore()
	router := newContactRouter(store)
	owner := user.Identity{ID: uuid.New(), Email: "owner@example.com"}

	c := store.add(owner.ID, Contact{
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "jane@example.com",
		PhoneNumber: "555-1234",
		Birthday:    NewDate(1990, time.May, 15),
	})

	rec := doRequest(t, router, owner, http.MethodPut, "/contacts/"+c.ID.String(), map[string]any{
		"phone_number": "555-9999",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "555-9999", updated.PhoneNumber)
	assert.Equal(t, "Jane", updated.FirstName)
	assert.Equal(t, "jane@example.com", updated.Email)
}

func TestContactHandler_UpdateRejectsEmptyBirthday(t *testing.T) {
	store := newMemoryStore()
	router := newContactRouter(store)
	owner := user.Identity{ID: uuid.New(), Email: "owner@example.com"}

	c := store.add(owner.ID, Contact{
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "jane@example.com",
		PhoneNumber: "555-1234",
		Birthday:    NewDate(1990, time.May, 15),
	})

	rec := doRequest(t, router, owner, http.MethodPut, "/contacts/"+c.ID.String(), map[string]any{
		"birthday": "",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The stored birthday is untouched
	got, err := store.GetByID(context.Background(), owner.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, NewDate(1990, time.May, 15), got.Birthday)
}

func TestContactHandler_Delete(t *testing.T) {
	store := newMemoryStore()
	router := newContactRouter(store)
	owner := user.Identity{ID: uuid.New(), Email: "owner@example.com"}

	c := store.add(owner.ID, Contact{
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "jane@example.com",
		PhoneNumber: "555-1234",
		Birthday:    NewDate(1990, time.May, 15),
	})

	rec := doRequest(t, router, owner, http.MethodDelete, "/contacts/"+c.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Deleting again answers 404
	rec = doRequest(t, router, owner, http.MethodDelete, "/contacts/"+c.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContactHandler_MissingIdentity(t *testing.T) {
	router := newContactRouter(newMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
