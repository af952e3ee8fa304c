package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/contacts-api/internal/database"
)

// ErrNotFound is returned when a contact does not exist for the given
// owner. A contact belonging to another user reports the same error, so
// callers cannot tell the two cases apart.
var ErrNotFound = errors.New("contact not found")

// defaultListLimit caps a listing when the caller supplies no limit
const defaultListLimit = 100

// Store defines the contact persistence operations. Every read and write
// takes the owner's id as a mandatory filter.
type Store interface {
	Create(ctx context.Context, ownerID uuid.UUID, req CreateContactRequest) (*Contact, error)
	List(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]Contact, error)
	GetByID(ctx context.Context, ownerID, contactID uuid.UUID) (*Contact, error)
	Update(ctx context.Context, ownerID, contactID uuid.UUID, req UpdateContactRequest) (*Contact, error)
	Delete(ctx context.Context, ownerID, contactID uuid.UUID) error
	UpcomingBirthdays(ctx context.Context, ownerID uuid.UUID, windowDays int) ([]Contact, error)
}

// Repository handles contact data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new contact attached to the owner
func (r *Repository) Create(ctx context.Context, ownerID uuid.UUID, req CreateContactRequest) (*Contact, error) {
	dbContact := &database.Contact{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		PhoneNumber:    req.PhoneNumber,
		Birthday:       req.Birthday.Time,
		AdditionalData: req.AdditionalData,
		UserID:         ownerID,
	}

	_, err := r.db.NewInsert().
		Model(dbContact).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	return mapDBContactToModel(dbContact), nil
}

// List returns the owner's contacts matching the filter. Filters are
// independent case-insensitive substring matches; empty filters impose no
// constraint.
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]Contact, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := r.db.NewSelect().
		Model((*database.Contact)(nil)).
		Where("user_id = ?", ownerID)

	if filter.FirstName != "" {
		query = query.Where("first_name ILIKE ?", "%"+filter.FirstName+"%")
	}
	if filter.LastName != "" {
		query = query.Where("last_name ILIKE ?", "%"+filter.LastName+"%")
	}
	if filter.Email != "" {
		query = query.Where("email ILIKE ?", "%"+filter.Email+"%")
	}

	var dbContacts []database.Contact
	err := query.
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Scan(ctx, &dbContacts)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	contacts := make([]Contact, 0, len(dbContacts))
	for i := range dbContacts {
		contacts = append(contacts, *mapDBContactToModel(&dbContacts[i]))
	}

	return contacts, nil
}

// GetByID retrieves a contact by id, scoped to its owner
func (r *Repository) GetByID(ctx context.Context, ownerID, contactID uuid.UUID) (*Contact, error) {
	dbContact := new(database.Contact)
	err := r.db.NewSelect().
		Model(dbContact).
		Where("id = ?", contactID).
		Where("user_id = ?", ownerID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return mapDBContactToModel(dbContact), nil
}

// Update applies a partial update to an owned contact
func (r *Repository) Update(ctx context.Context, ownerID, contactID uuid.UUID, req UpdateContactRequest) (*Contact, error) {
	existing, err := r.GetByID(ctx, ownerID, contactID)
	if err != nil {
		return nil, err
	}

	existing.Apply(req)
	existing.UpdatedAt = time.Now()

	dbContact := &database.Contact{
		ID:             existing.ID,
		FirstName:      existing.FirstName,
		LastName:       existing.LastName,
		Email:          existing.Email,
		PhoneNumber:    existing.PhoneNumber,
		Birthday:       existing.Birthday.Time,
		AdditionalData: existing.AdditionalData,
		UserID:         existing.UserID,
		CreatedAt:      existing.CreatedAt,
		UpdatedAt:      existing.UpdatedAt,
	}

	result, err := r.db.NewUpdate().
		Model(dbContact).
		WherePK().
		Where("user_id = ?", ownerID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return existing, nil
}

// Delete removes an owned contact
func (r *Repository) Delete(ctx context.Context, ownerID, contactID uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Contact)(nil)).
		Where("id = ?", contactID).
		Where("user_id = ?", ownerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// UpcomingBirthdays returns the owner's contacts whose birthday falls in
// the next windowDays calendar days starting today.
func (r *Repository) UpcomingBirthdays(ctx context.Context, ownerID uuid.UUID, windowDays int) ([]Contact, error) {
	var dbContacts []database.Contact
	err := r.db.NewSelect().
		Model((*database.Contact)(nil)).
		Where("user_id = ?", ownerID).
		Scan(ctx, &dbContacts)
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}

	contacts := make([]Contact, 0, len(dbContacts))
	for i := range dbContacts {
		contacts = append(contacts, *mapDBContactToModel(&dbContacts[i]))
	}

	return FilterUpcomingBirthdays(contacts, time.Now(), windowDays), nil
}
