package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "credtrust/pkg/domain"
	"credtrust/pkg/platform/sentinel"
	txcontext "credtrust/pkg/platform/tx"
)

// PostgresStore persists export records in the export_records table.
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

func (s *PostgresStore) Insert(ctx context.Context, record Record) error {
	query := `
		INSERT INTO export_records (
			id, credential_id, user_id, format, payload,
			download_token, expires_at, access_count, max_access_count, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(record.ID),
		uuid.UUID(record.CredentialID),
		uuid.UUID(record.UserID),
		string(record.Format),
		[]byte(record.Payload),
		record.DownloadToken,
		record.ExpiresAt,
		record.AccessCount,
		record.MaxAccessCount,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert export record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, exportID id.ExportID) (Record, error) {
	row := s.db.QueryRowContext(ctx, selectRecord+` WHERE id = $1`, uuid.UUID(exportID))
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, sentinel.ErrNotFound
		}
		return Record{}, fmt.Errorf("find export record by id: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		selectRecord+` WHERE user_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("list export records by user: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) IncrementAccess(ctx context.Context, exportID id.ExportID) error {
	query := `UPDATE export_records SET access_count = access_count + 1 WHERE id = $1`
	result, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(exportID))
	if err != nil {
		return fmt.Errorf("increment export access count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment export access count: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectRecord = `
	SELECT id, credential_id, user_id, format, payload,
		   download_token, expires_at, access_count, max_access_count, created_at
	FROM export_records`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		r              Record
		exportID       uuid.UUID
		credentialID   uuid.UUID
		userID         uuid.UUID
		format         string
		payload        []byte
		maxAccessCount sql.NullInt64
		createdAt      time.Time
	)
	err := row.Scan(
		&exportID,
		&credentialID,
		&userID,
		&format,
		&payload,
		&r.DownloadToken,
		&r.ExpiresAt,
		&r.AccessCount,
		&maxAccessCount,
		&createdAt,
	)
	if err != nil {
		return Record{}, err
	}

	r.ID = id.ExportID(exportID)
	r.CredentialID = id.CredentialID(credentialID)
	r.UserID = id.UserID(userID)
	r.Format = Format(format)
	r.Payload = payload
	r.CreatedAt = createdAt
	if maxAccessCount.Valid {
		n := int(maxAccessCount.Int64)
		r.MaxAccessCount = &n
	}
	return r, nil
}
