package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Canonical returns the byte form hashed for e: a JSON object with
// lexicographically sorted keys holding every field except Digest. Payloads
// are re-encoded with sorted keys and numbers kept verbatim, so two payloads
// that differ only in key order or whitespace hash identically.
func Canonical(e Entry) ([]byte, error) {
	before, err := canonicalPayload(e.Before)
	if err != nil {
		return nil, fmt.Errorf("canonicalize before: %w", err)
	}
	after, err := canonicalPayload(e.After)
	if err != nil {
		return nil, fmt.Errorf("canonicalize after: %w", err)
	}
	changes, err := canonicalPayload(e.Changes)
	if err != nil {
		return nil, fmt.Errorf("canonicalize changes: %w", err)
	}

	// encoding/json writes map keys in sorted order.
	doc := map[string]any{
		"schema":        SchemaVersion,
		"sequence":      e.Sequence,
		"actor_id":      string(e.ActorID),
		"action":        e.Action,
		"resource_type": e.ResourceType,
		"resource_id":   e.ResourceID,
		"before":        before,
		"after":         after,
		"changes":       changes,
		"timestamp":     e.Timestamp.UTC().Format(time.RFC3339Nano),
		"prev_digest":   string(e.PrevDigest),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode canonical entry: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ComputeDigest returns hex(SHA-256(Canonical(e) || e.PrevDigest)).
func ComputeDigest(e Entry) (Digest, error) {
	c, err := Canonical(e)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write(c)
	h.Write([]byte(e.PrevDigest))
	return Digest(hex.EncodeToString(h.Sum(nil))), nil
}

func canonicalPayload(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("payload holds more than one JSON value")
	}
	return v, nil
}
