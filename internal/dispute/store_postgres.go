package dispute

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

// PostgresStore persists disputes in the credential_disputes table.
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

func (s *PostgresStore) Insert(ctx context.Context, dispute Dispute) error {
	query := `
		INSERT INTO credential_disputes (
			id, credential_id, disputed_by, dispute_type, dispute_reason,
			evidence, status, assigned_to, resolution_notes, action_taken,
			resolved_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	var assignedTo any
	if dispute.AssignedTo != nil {
		assignedTo = uuid.UUID(*dispute.AssignedTo)
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(dispute.ID),
		uuid.UUID(dispute.CredentialID),
		uuid.UUID(dispute.DisputedBy),
		string(dispute.Type),
		dispute.Reason,
		dispute.Evidence,
		string(dispute.Status),
		assignedTo,
		dispute.ResolutionNotes,
		string(dispute.ActionTaken),
		dispute.ResolvedAt,
		dispute.CreatedAt,
		dispute.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dispute: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, disputeID id.DisputeID) (Dispute, error) {
	row := s.db.QueryRowContext(ctx, selectDispute+` WHERE id = $1`, uuid.UUID(disputeID))
	dispute, err := scanDispute(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Dispute{}, sentinel.ErrNotFound
		}
		return Dispute{}, fmt.Errorf("find dispute by id: %w", err)
	}
	return dispute, nil
}

func (s *PostgresStore) FindByCredential(ctx context.Context, credentialID id.CredentialID) ([]Dispute, error) {
	rows, err := s.db.QueryContext(ctx,
		selectDispute+` WHERE credential_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(credentialID),
	)
	if err != nil {
		return nil, fmt.Errorf("find disputes by credential: %w", err)
	}
	defer rows.Close()

	var disputes []Dispute
	for rows.Next() {
		dispute, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dispute: %w", err)
		}
		disputes = append(disputes, dispute)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate disputes: %w", err)
	}
	return disputes, nil
}

func (s *PostgresStore) Update(ctx context.Context, dispute Dispute) error {
	query := `
		UPDATE credential_disputes
		SET status = $2, assigned_to = $3, resolution_notes = $4,
			action_taken = $5, resolved_at = $6, updated_at = $7
		WHERE id = $1
	`
	var assignedTo any
	if dispute.AssignedTo != nil {
		assignedTo = uuid.UUID(*dispute.AssignedTo)
	}
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(dispute.ID),
		string(dispute.Status),
		assignedTo,
		dispute.ResolutionNotes,
		string(dispute.ActionTaken),
		dispute.ResolvedAt,
		dispute.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update dispute: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update dispute: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectDispute = `
	SELECT id, credential_id, disputed_by, dispute_type, dispute_reason,
		   evidence, status, assigned_to, resolution_notes, action_taken,
		   resolved_at, created_at, updated_at
	FROM credential_disputes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDispute(row rowScanner) (Dispute, error) {
	var (
		d           Dispute
		disputeID   uuid.UUID
		credential  uuid.UUID
		disputedBy  uuid.UUID
		disputeType string
		status      string
		action      string
		assignedTo  uuid.NullUUID
		resolvedAt  sql.NullTime
		createdAt   time.Time
		updatedAt   time.Time
	)
	err := row.Scan(
		&disputeID,
		&credential,
		&disputedBy,
		&disputeType,
		&d.Reason,
		&d.Evidence,
		&status,
		&assignedTo,
		&d.ResolutionNotes,
		&action,
		&resolvedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return Dispute{}, err
	}

	d.ID = id.DisputeID(disputeID)
	d.CredentialID = id.CredentialID(credential)
	d.DisputedBy = id.UserID(disputedBy)
	d.Type = Type(disputeType)
	d.Status = Status(status)
	d.ActionTaken = Action(action)
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt
	if assignedTo.Valid {
		u := id.UserID(assignedTo.UUID)
		d.AssignedTo = &u
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		d.ResolvedAt = &t
	}
	return d, nil
}
