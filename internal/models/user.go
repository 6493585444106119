package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles, from least to most privileged.
const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

// ValidRoles lists every role a user may hold.
var ValidRoles = []string{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin}

type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	Photo    string             `bson:"photo,omitempty" json:"photo,omitempty"`
	Role     string             `bson:"role" json:"role"`
	Password string             `bson:"password" json:"-"` // Hide from JSON responses

	// PasswordChangedAt invalidates tokens issued before the last change.
	PasswordChangedAt    time.Time  `bson:"passwordChangedAt,omitempty" json:"-"`
	PasswordResetToken   string     `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetExpires *time.Time `bson:"passwordResetExpires,omitempty" json:"-"`

	// Active is a soft-delete flag. Deactivated users are excluded from
	// default queries but their reviews and bookings remain readable by id.
	Active *bool `bson:"active,omitempty" json:"-"`
}

// IsValidRole reports whether role is one of the enumerated user roles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// ChangedPasswordAfter reports whether the password was changed after the
// given token issue time. A zero PasswordChangedAt means never changed.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt.IsZero() {
		return false
	}
	return u.PasswordChangedAt.After(issuedAt)
}
