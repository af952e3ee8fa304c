package contact

import (
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/contacts-api/internal/database"
)

type Contact struct {
	ID             uuid.UUID `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phone_number"`
	Birthday       Date      `json:"birthday"`
	AdditionalData *string   `json:"additional_data,omitempty"`
	UserID         uuid.UUID `json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Apply overwrites only the fields present in the update request.
// Omitted fields keep their prior values.
func (c *Contact) Apply(req UpdateContactRequest) {
	if req.FirstName != nil {
		c.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		c.LastName = *req.LastName
	}
	if req.Email != nil {
		c.Email = *req.Email
	}
	if req.PhoneNumber != nil {
		c.PhoneNumber = *req.PhoneNumber
	}
	if req.Birthday != nil {
		c.Birthday = *req.Birthday
	}
	if req.AdditionalData != nil {
		c.AdditionalData = req.AdditionalData
	}
}

// mapDBContactToModel converts database model to domain model
func mapDBContactToModel(dbc *database.Contact) *Contact {
	return &Contact{
		ID:             dbc.ID,
		FirstName:      dbc.FirstName,
		LastName:       dbc.LastName,
		Email:          dbc.Email,
		PhoneNumber:    dbc.PhoneNumber,
		Birthday:       Date{Time: dbc.Birthday},
		AdditionalData: dbc.AdditionalData,
		UserID:         dbc.UserID,
		CreatedAt:      dbc.CreatedAt,
		UpdatedAt:      dbc.UpdatedAt,
	}
}
