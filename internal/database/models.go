package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persisted representation of a registered account.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Username     string    `bun:"username,notnull"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	AvatarURL    *string   `bun:"avatar_url"`
	Confirmed    bool      `bun:"confirmed,notnull,default:false"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	Contacts []*Contact `bun:"rel:has-many,join:id=user_id"`
}

// Contact is a single address-book entry. Every contact belongs to
// exactly one user; reads and writes always filter on user_id.
type Contact struct {
	bun.BaseModel `bun:"table:contacts,alias:c"`

	ID             uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	FirstName      string    `bun:"first_name,notnull"`
	LastName       string    `bun:"last_name,notnull"`
	Email          string    `bun:"email,notnull"`
	PhoneNumber    string    `bun:"phone_number,notnull"`
	Birthday       time.Time `bun:"birthday,type:date,notnull"`
	AdditionalData *string   `bun:"additional_data"`
	UserID         uuid.UUID `bun:"user_id,type:uuid,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	User *User `bun:"rel:belongs-to,join:user_id=id"`
}
