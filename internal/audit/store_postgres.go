package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "credtrust/pkg/domain"
	txcontext "credtrust/pkg/platform/tx"
)

// PostgresStore persists audit entries in the audit_entries table.
// Inserts are idempotent per generated entry id via ON CONFLICT DO NOTHING.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	metadata, err := json.Marshal(entry.Details.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	var credentialID *uuid.UUID
	if entry.CredentialID != nil {
		cid := uuid.UUID(*entry.CredentialID)
		credentialID = &cid
	}

	query := `
		INSERT INTO audit_entries (
			id, user_id, credential_id, operation, action, target,
			metadata, result, error_message,
			transaction_hash, block_number, gas_used, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		uuid.UUID(entry.UserID),
		credentialID,
		string(entry.Operation),
		entry.Details.Action,
		entry.Details.Target,
		metadata,
		string(entry.Details.Result),
		entry.Details.ErrorMessage,
		entry.TransactionHash,
		entry.BlockNumber,
		entry.GasUsed,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Entry, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	return s.query(ctx, selectColumns+` WHERE user_id = $1 ORDER BY created_at DESC`, uid)
}

func (s *PostgresStore) ListByCredential(ctx context.Context, credentialID string) ([]Entry, error) {
	cid, err := uuid.Parse(credentialID)
	if err != nil {
		return nil, fmt.Errorf("parse credential id: %w", err)
	}
	return s.query(ctx, selectColumns+` WHERE credential_id = $1 ORDER BY created_at DESC`, cid)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	return s.query(ctx, selectColumns+` ORDER BY created_at DESC LIMIT $1`, limit)
}

const selectColumns = `
	SELECT user_id, credential_id, operation, action, target,
		   metadata, result, error_message,
		   transaction_hash, block_number, gas_used, created_at
	FROM audit_entries`

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry        Entry
			userID       uuid.UUID
			credentialID *uuid.UUID
			operation    string
			result       string
			metadata     []byte
			createdAt    time.Time
		)
		err := rows.Scan(
			&userID,
			&credentialID,
			&operation,
			&entry.Details.Action,
			&entry.Details.Target,
			&metadata,
			&result,
			&entry.Details.ErrorMessage,
			&entry.TransactionHash,
			&entry.BlockNumber,
			&entry.GasUsed,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		entry.UserID = id.UserID(userID)
		if credentialID != nil {
			cid := id.CredentialID(*credentialID)
			entry.CredentialID = &cid
		}
		entry.Operation = OperationType(operation)
		entry.Details.Result = Result(result)
		entry.Timestamp = createdAt
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Details.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
