// Package domain holds the typed identifiers shared across the core.
//
// Usage: construct IDs via the Parse functions at trust boundaries; direct
// casting bypasses validation.
package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "ledgerguard/pkg/domain-errors"
)

const maxActorIDLength = 128

// ViolationID identifies a detected violation.
type ViolationID uuid.UUID

// CheckID identifies one orchestrator invocation.
type CheckID uuid.UUID

// ActorID is the identity responsible for a ledger write. It is opaque to the
// core (a user id, a service account name) but never empty.
type ActorID string

func NewViolationID() ViolationID { return ViolationID(uuid.New()) }

func NewCheckID() CheckID { return CheckID(uuid.New()) }

func ParseViolationID(s string) (ViolationID, error) {
	u, err := parseUUID(s, "violation id")
	return ViolationID(u), err
}

func ParseCheckID(s string) (CheckID, error) {
	u, err := parseUUID(s, "check id")
	return CheckID(u), err
}

// ParseActorID validates an actor identity from external input.
//
// Errors: returns CodeInvalidInput when the value is blank, too long, not UTF-8
// or contains control characters.
func ParseActorID(s string) (ActorID, error) {
	if strings.TrimSpace(s) == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "actor id cannot be empty")
	}
	if len(s) > maxActorIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "actor id too long")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "actor id must be valid UTF-8")
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "actor id contains control characters")
		}
	}
	return ActorID(s), nil
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

func (id ViolationID) String() string { return uuid.UUID(id).String() }
func (id CheckID) String() string     { return uuid.UUID(id).String() }
func (id ActorID) String() string     { return string(id) }

func (id ViolationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CheckID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

func (id ViolationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id CheckID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }

func (id *ViolationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *CheckID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
