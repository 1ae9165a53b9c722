package sharing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "credtrust/pkg/domain"
	"credtrust/pkg/platform/sentinel"
	txcontext "credtrust/pkg/platform/tx"
)

// PostgresStore persists sharing grants in the sharing_grants table.
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

func (s *PostgresStore) Insert(ctx context.Context, grant Grant) error {
	fields, err := json.Marshal(grant.FieldsAccessible)
	if err != nil {
		return fmt.Errorf("marshal accessible fields: %w", err)
	}

	query := `
		INSERT INTO sharing_grants (
			id, credential_id, owner_id, shared_with_type, shared_with_id,
			permission_level, fields_accessible, expires_at, sharing_token,
			access_count, max_access_count, is_active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(grant.ID),
		uuid.UUID(grant.CredentialID),
		uuid.UUID(grant.OwnerID),
		string(grant.SharedWithType),
		grant.SharedWithID,
		string(grant.Permission),
		fields,
		grant.ExpiresAt,
		grant.Token,
		grant.AccessCount,
		grant.MaxAccessCount,
		grant.IsActive,
		grant.CreatedAt,
		grant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sharing grant: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, grantID id.GrantID) (Grant, error) {
	row := s.db.QueryRowContext(ctx, selectGrant+` WHERE id = $1`, uuid.UUID(grantID))
	grant, err := scanGrant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Grant{}, sentinel.ErrNotFound
		}
		return Grant{}, fmt.Errorf("find grant by id: %w", err)
	}
	return grant, nil
}

func (s *PostgresStore) FindByToken(ctx context.Context, token string) (Grant, error) {
	if token == "" {
		return Grant{}, sentinel.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, selectGrant+` WHERE sharing_token = $1`, token)
	grant, err := scanGrant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Grant{}, sentinel.ErrNotFound
		}
		return Grant{}, fmt.Errorf("find grant by token: %w", err)
	}
	return grant, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID id.UserID) ([]Grant, error) {
	rows, err := s.db.QueryContext(ctx,
		selectGrant+` WHERE owner_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(ownerID),
	)
	if err != nil {
		return nil, fmt.Errorf("list grants by owner: %w", err)
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}
	return grants, nil
}

func (s *PostgresStore) Update(ctx context.Context, grant Grant) error {
	fields, err := json.Marshal(grant.FieldsAccessible)
	if err != nil {
		return fmt.Errorf("marshal accessible fields: %w", err)
	}

	query := `
		UPDATE sharing_grants
		SET permission_level = $2, fields_accessible = $3, expires_at = $4,
			max_access_count = $5, is_active = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(grant.ID),
		string(grant.Permission),
		fields,
		grant.ExpiresAt,
		grant.MaxAccessCount,
		grant.IsActive,
		grant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update sharing grant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update sharing grant: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) IncrementAccess(ctx context.Context, grantID id.GrantID) error {
	query := `UPDATE sharing_grants SET access_count = access_count + 1 WHERE id = $1`
	result, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(grantID))
	if err != nil {
		return fmt.Errorf("increment grant access count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment grant access count: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectGrant = `
	SELECT id, credential_id, owner_id, shared_with_type, shared_with_id,
		   permission_level, fields_accessible, expires_at, sharing_token,
		   access_count, max_access_count, is_active, created_at, updated_at
	FROM sharing_grants`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrant(row rowScanner) (Grant, error) {
	var (
		g              Grant
		grantID        uuid.UUID
		credentialID   uuid.UUID
		ownerID        uuid.UUID
		sharedWithType string
		permission     string
		fields         []byte
		expiresAt      sql.NullTime
		maxAccessCount sql.NullInt64
		createdAt      time.Time
		updatedAt      time.Time
	)
	err := row.Scan(
		&grantID,
		&credentialID,
		&ownerID,
		&sharedWithType,
		&g.SharedWithID,
		&permission,
		&fields,
		&expiresAt,
		&g.Token,
		&g.AccessCount,
		&maxAccessCount,
		&g.IsActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return Grant{}, err
	}

	g.ID = id.GrantID(grantID)
	g.CredentialID = id.CredentialID(credentialID)
	g.OwnerID = id.UserID(ownerID)
	g.SharedWithType = SharedWithType(sharedWithType)
	g.Permission = PermissionLevel(permission)
	g.CreatedAt = createdAt
	g.UpdatedAt = updatedAt
	if expiresAt.Valid {
		t := expiresAt.Time
		g.ExpiresAt = &t
	}
	if maxAccessCount.Valid {
		n := int(maxAccessCount.Int64)
		g.MaxAccessCount = &n
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &g.FieldsAccessible); err != nil {
			return Grant{}, fmt.Errorf("unmarshal accessible fields: %w", err)
		}
	}
	return g, nil
}
