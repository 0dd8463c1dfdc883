// Package ledger implements the append-only, hash-chained audit ledger.
//
// Every entry carries the digest of its predecessor, so any edit, deletion or
// reordering of stored entries is detected by Verify. Entries are values: the
// back-reference is the stored digest string, never a pointer to the prior
// entry.
package ledger

import (
	"encoding/json"
	"strings"
	"time"

	id "ledgerguard/pkg/domain"
	dErrors "ledgerguard/pkg/domain-errors"
)

// Digest is a lowercase hex SHA-256.
type Digest string

// GenesisDigest seeds the chain: the first entry's PrevDigest.
const GenesisDigest Digest = "0000000000000000000000000000000000000000000000000000000000000000"

// SchemaVersion tags the canonical form. Changing the hashed field set
// requires a new version; old chains keep verifying under the old one.
const SchemaVersion = "ledgerguard/v1"

// Draft is the caller-supplied part of an entry. The ledger assigns sequence,
// timestamp and digests.
type Draft struct {
	ActorID      id.ActorID
	Action       string
	ResourceType string
	ResourceID   string
	Before       json.RawMessage
	After        json.RawMessage
	Changes      json.RawMessage
}

// Entry is a committed ledger record. Entries are immutable once persisted.
type Entry struct {
	Sequence     int64           `json:"sequence"`
	ActorID      id.ActorID      `json:"actor_id"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	Before       json.RawMessage `json:"before,omitempty"`
	After        json.RawMessage `json:"after,omitempty"`
	Changes      json.RawMessage `json:"changes,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	PrevDigest   Digest          `json:"prev_digest"`
	Digest       Digest          `json:"digest"`
}

// Changes is the payload recorded for an update: field -> [old, new].
type Changes map[string][2]any

// Validate checks a draft before it reaches the write lock.
func (d Draft) Validate() error {
	if strings.TrimSpace(string(d.ActorID)) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "ledger entry requires an actor")
	}
	if strings.TrimSpace(d.Action) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "ledger entry requires an action")
	}
	if strings.TrimSpace(d.ResourceType) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "ledger entry requires a resource type")
	}
	for name, p := range map[string]json.RawMessage{"before": d.Before, "after": d.After, "changes": d.Changes} {
		if len(p) > 0 && !json.Valid(p) {
			return dErrors.New(dErrors.CodeInvalidInput, "ledger entry "+name+" payload is not valid JSON")
		}
	}
	return nil
}

// NewDraft builds a draft, encoding after and changes as JSON payloads.
func NewDraft(actor id.ActorID, action, resourceType, resourceID string, after any, changes Changes) (Draft, error) {
	d := Draft{
		ActorID:      actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
	if after != nil {
		raw, err := json.Marshal(after)
		if err != nil {
			return Draft{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "encode after payload")
		}
		d.After = raw
	}
	if changes != nil {
		raw, err := json.Marshal(changes)
		if err != nil {
			return Draft{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "encode changes payload")
		}
		d.Changes = raw
	}
	return d, nil
}
