package model

import "time"

// Role identifies a member's standing in the network.
type Role string

const (
	RoleStudent   Role = "student"
	RoleAlumni    Role = "alumni"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// Profile is the public record for one member. It is created server-side
// when a session is first confirmed and is never deleted by the client.
type Profile struct {
	// ID is the member's identifier, shared with the auth service.
	ID string `json:"id" db:"id"`

	// FullName is the display name shown everywhere in the app.
	FullName string `json:"full_name" db:"full_name"`

	// AvatarPath is the object-storage path of the avatar image,
	// empty when the member has not uploaded one.
	AvatarPath string `json:"avatar_path" db:"avatar_path"`

	// Role is the member's standing (use Role* constants).
	Role Role `json:"role" db:"role"`

	// Headline is a one-line tagline ("Class of 2019, SRE at ...").
	Headline string `json:"headline" db:"headline"`

	// Bio is the free-form profile text.
	Bio string `json:"bio" db:"bio"`

	// GradYear is the (expected) graduation year, zero when unset.
	GradYear int `json:"grad_year" db:"grad_year"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UnknownUserName is the display name substituted when a referenced
// profile cannot be resolved.
const UnknownUserName = "Unknown User"

// PlaceholderProfile returns the stand-in rendered for an id that has no
// matching profile record. Records referencing it are kept, not dropped.
func PlaceholderProfile(id string) Profile {
	return Profile{ID: id, FullName: UnknownUserName}
}
