package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"ledgerguard/internal/ledger"
	id "ledgerguard/pkg/domain"
	"ledgerguard/pkg/platform/sentinel"
	txcontext "ledgerguard/pkg/platform/tx"
)

const uniqueViolation = "23505"

const selectColumns = `
	SELECT sequence, actor_id, action, resource_type, resource_id,
		   before_payload, after_payload, changes_payload,
		   recorded_at, prev_digest, digest
	FROM ledger_entries`

// Store persists ledger entries in the ledger_entries table. Payloads are kept
// as text so the bytes read back are exactly the bytes written.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL ledger store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Persist inserts entries in one transaction. A primary key collision on
// sequence means another writer committed first and maps to
// sentinel.ErrConflict.
func (s *Store) Persist(ctx context.Context, entries ...ledger.Entry) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		query := `
			INSERT INTO ledger_entries (
				sequence, actor_id, action, resource_type, resource_id,
				before_payload, after_payload, changes_payload,
				recorded_at, prev_digest, digest
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		for _, e := range entries {
			_, err := s.execer(ctx).ExecContext(ctx, query,
				e.Sequence,
				string(e.ActorID),
				e.Action,
				e.ResourceType,
				e.ResourceID,
				payloadArg(e.Before),
				payloadArg(e.After),
				payloadArg(e.Changes),
				e.Timestamp,
				string(e.PrevDigest),
				string(e.Digest),
			)
			if err != nil {
				var pqErr *pq.Error
				if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
					return fmt.Errorf("insert ledger entry %d: %w", e.Sequence, sentinel.ErrConflict)
				}
				return fmt.Errorf("insert ledger entry %d: %w", e.Sequence, err)
			}
		}
		return nil
	})
}

// LoadHead returns the highest-sequence entry, or nil for an empty table.
func (s *Store) LoadHead(ctx context.Context) (*ledger.Entry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, selectColumns+` ORDER BY sequence DESC LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("query ledger head: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// Query lists entries matching filter in ascending sequence order.
func (s *Store) Query(ctx context.Context, filter ledger.Filter) ([]ledger.Entry, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.FromSequence > 0 {
		conditions = append(conditions, "sequence >= "+arg(filter.FromSequence))
	}
	if filter.ToSequence != nil {
		conditions = append(conditions, "sequence <= "+arg(*filter.ToSequence))
	}
	if filter.ResourceType != "" {
		conditions = append(conditions, "resource_type = "+arg(filter.ResourceType))
	}
	if filter.ResourceID != "" {
		conditions = append(conditions, "resource_id = "+arg(filter.ResourceID))
	}
	if len(filter.Actions) > 0 {
		conditions = append(conditions, "action = ANY("+arg(pq.Array(filter.Actions))+")")
	}

	query := selectColumns
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY sequence ASC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]ledger.Entry, error) {
	var entries []ledger.Entry
	for rows.Next() {
		var (
			e                      ledger.Entry
			actor, prev, digest    string
			before, after, changes sql.NullString
		)
		if err := rows.Scan(
			&e.Sequence,
			&actor,
			&e.Action,
			&e.ResourceType,
			&e.ResourceID,
			&before,
			&after,
			&changes,
			&e.Timestamp,
			&prev,
			&digest,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.ActorID = id.ActorID(actor)
		e.PrevDigest = ledger.Digest(prev)
		e.Digest = ledger.Digest(digest)
		e.Before = payloadValue(before)
		e.After = payloadValue(after)
		e.Changes = payloadValue(changes)
		e.Timestamp = e.Timestamp.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}

func payloadArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func payloadValue(v sql.NullString) json.RawMessage {
	if !v.Valid {
		return nil
	}
	return json.RawMessage(v.String)
}
