package contact

// CreateContactRequest carries a full new contact. Validated before any
// persistence is attempted.
type CreateContactRequest struct {
	FirstName      string  `json:"first_name" validate:"required,min=1,max=50"`
	LastName       string  `json:"last_name" validate:"required,min=1,max=50"`
	Email          string  `json:"email" validate:"required,email,max=100"`
	PhoneNumber    string  `json:"phone_number" validate:"required,min=5,max=20,phone"`
	Birthday       Date    `json:"birthday" validate:"required,notfuture"`
	AdditionalData *string `json:"additional_data,omitempty"`
}

// UpdateContactRequest carries a partial update. Every field is optional;
// only fields present in the payload are applied.
type UpdateContactRequest struct {
	FirstName      *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=50"`
	LastName       *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=50"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email,max=100"`
	PhoneNumber    *string `json:"phone_number,omitempty" validate:"omitempty,min=5,max=20,phone"`
	Birthday       *Date   `json:"birthday,omitempty" validate:"omitempty,notfuture"`
	AdditionalData *string `json:"additional_data,omitempty"`
}

// ListFilter holds the optional, combinable list filters. Empty fields
// impose no constraint.
type ListFilter struct {
	FirstName string
	LastName  string
	Email     string
	Offset    int
	Limit     int
}
