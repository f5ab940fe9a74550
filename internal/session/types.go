// Package session persists conversations as ordered turns backed by
// PostgreSQL.
//
// Sessions are created on first reference and never explicitly expired here;
// retention of whole sessions is an external policy. Within a session the
// turn history is bounded: once it exceeds the configured maximum, the
// oldest turns are dropped to bound storage and prompt size.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAgent
}

// Turn is one utterance in a session. Sequence numbers are strictly
// increasing per session and assigned by the store.
type Turn struct {
	SessionID uuid.UUID
	Seq       int32
	Role      Role
	Content   string
	CreatedAt time.Time
}

// Session is conversation metadata. The turns themselves are fetched
// separately via History.
type Session struct {
	ID        uuid.UUID
	Persona   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
