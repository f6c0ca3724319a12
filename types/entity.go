// Package types provides common types used across Journal.
package types

import "time"

// Entity carries the audit fields shared by charts, ledgers, accounts and
// statements: when the record was created, by whom, and free-form text
// describing it.
type Entity struct {
	CreatedAt   time.Time `json:"created_at"`
	UserDetails string    `json:"user_details,omitempty"`
	ShortDesc   string    `json:"short_desc,omitempty"`
	LongDesc    string    `json:"long_desc,omitempty"`
}

// NewEntity creates a new Entity stamped with the current time.
func NewEntity(userDetails string) Entity {
	return Entity{
		CreatedAt:   CanonicalTime(time.Now()),
		UserDetails: userDetails,
	}
}

// Stamp fills CreatedAt when it has not been set yet.
func (e *Entity) Stamp(now time.Time) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = CanonicalTime(now)
	}
}

// Age returns how long ago the entity was created.
func (e Entity) Age() time.Duration {
	return time.Since(e.CreatedAt)
}
