// Package user defines the subscriber record shared by every storage backend
// and the public profile returned to API clients.
package user

import "time"

// User represents a subscriber identified by email.
type User struct {
	// ID is an internal UUID assigned when the record is created.
	ID string `json:"id"`

	// Email is the exact-match lookup key.
	Email string `json:"email"`

	// Subscriptions holds option ids. Order is kept as written, duplicates are allowed
	// and ids are not checked against the catalog.
	Subscriptions []string `json:"subscriptions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile is the public view of a user.
type Profile struct {
	Email         string   `json:"email"`
	Subscriptions []string `json:"subscriptions"`
}

var defaultSubscriptions = []string{"true-random", "brand-new"}

// DefaultSubscriptions returns a fresh copy of the subscriptions a new user starts with.
func DefaultSubscriptions() []string {
	return CopySubscriptions(defaultSubscriptions)
}

// CopySubscriptions returns a non-nil copy of subs.
func CopySubscriptions(subs []string) []string {
	result := make([]string, len(subs))
	copy(result, subs)

	return result
}

// Profile returns the public view of the user.
func (u *User) Profile() Profile {
	return Profile{
		Email:         u.Email,
		Subscriptions: CopySubscriptions(u.Subscriptions),
	}
}

// Clone returns a deep copy so callers can't mutate storage-owned slices.
func (u *User) Clone() *User {
	clone := *u
	clone.Subscriptions = CopySubscriptions(u.Subscriptions)

	return &clone
}
