package model

import "time"

// User is owned by the auth service; this core only flips the
// HasActivatedPass flag as a side effect of issuance.
type User struct {
	ID               string // UUID
	Email            string
	HasActivatedPass bool
	RegisteredAt     time.Time
}
