package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int       `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Username     string    `bun:",nullzero" json:"username"`
	Email        *string   `json:"email,omitempty"`
	PasswordHash string    `json:"-"` // Never expose password hash
	IsActive     bool      `json:"is_active"`

	// Relations
	Profile *UserProfile `bun:"rel:has-one,join:id=user_id" json:"profile,omitempty"`
	Devices []*Device    `bun:"rel:has-many,join:id=user_id" json:"devices,omitempty"`
}

// UserProfile carries the optional account flags. A user without a profile row
// behaves as if every flag were false.
type UserProfile struct {
	bun.BaseModel `bun:"table:user_profiles,alias:up"`

	ID            int  `bun:",pk,nullzero" json:"id"`
	UserID        int  `json:"user_id"`
	PublicProfile bool `json:"public_profile"`
}

// HasPublicProfile reports whether the user opted into a public profile.
func (u *User) HasPublicProfile() bool {
	return u.Profile != nil && u.Profile.PublicProfile
}
