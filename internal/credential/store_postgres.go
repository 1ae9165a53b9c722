package credential

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

// PostgresStore persists credentials in PostgreSQL.
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

func (s *PostgresStore) Insert(ctx context.Context, credential Credential) error {
	skills, err := json.Marshal(credential.Skills)
	if err != nil {
		return fmt.Errorf("marshal skills: %w", err)
	}
	metadata, err := json.Marshal(credential.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	merkleProof, err := json.Marshal(credential.MerkleProof)
	if err != nil {
		return fmt.Errorf("marshal merkle proof: %w", err)
	}

	query := `
		INSERT INTO credentials (
			id, recipient_id, issuer_id, credential_type, title, description,
			skills, issued_date, expiry_date,
			credential_hash, merkle_proof, block_number, transaction_hash,
			status, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(credential.ID),
		uuid.UUID(credential.RecipientID),
		uuid.UUID(credential.IssuerID),
		string(credential.Type),
		credential.Title,
		credential.Description,
		skills,
		credential.IssuedDate,
		credential.ExpiryDate,
		credential.Hash,
		merkleProof,
		credential.BlockNumber,
		credential.TransactionHash,
		string(credential.Status),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, credentialID id.CredentialID) (Credential, error) {
	row := s.db.QueryRowContext(ctx, selectCredential+` WHERE id = $1`, uuid.UUID(credentialID))
	credential, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Credential{}, sentinel.ErrNotFound
		}
		return Credential{}, fmt.Errorf("find credential by id: %w", err)
	}
	return credential, nil
}

func (s *PostgresStore) FindByRecipient(ctx context.Context, recipientID id.UserID) ([]Credential, error) {
	rows, err := s.db.QueryContext(ctx,
		selectCredential+` WHERE recipient_id = $1 ORDER BY issued_date DESC`,
		uuid.UUID(recipientID),
	)
	if err != nil {
		return nil, fmt.Errorf("find credentials by recipient: %w", err)
	}
	defer rows.Close()

	var credentials []Credential
	for rows.Next() {
		credential, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		credentials = append(credentials, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return credentials, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, credentialID id.CredentialID, update StatusUpdate) error {
	query := `
		UPDATE credentials
		SET status = $2, revocation_reason = $3, revoked_at = $4
		WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(credentialID),
		string(update.Status),
		update.Reason,
		update.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("update credential status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update credential status: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectCredential = `
	SELECT id, recipient_id, issuer_id, credential_type, title, description,
		   skills, issued_date, expiry_date,
		   credential_hash, merkle_proof, block_number, transaction_hash,
		   status, revocation_reason, revoked_at, metadata
	FROM credentials`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (Credential, error) {
	var (
		c                Credential
		credentialID     uuid.UUID
		recipientID      uuid.UUID
		issuerID         uuid.UUID
		credentialType   string
		status           string
		skills           []byte
		merkleProof      []byte
		metadata         []byte
		expiryDate       sql.NullTime
		revocationReason sql.NullString
		revokedAt        sql.NullTime
		issuedDate       time.Time
	)
	err := row.Scan(
		&credentialID,
		&recipientID,
		&issuerID,
		&credentialType,
		&c.Title,
		&c.Description,
		&skills,
		&issuedDate,
		&expiryDate,
		&c.Hash,
		&merkleProof,
		&c.BlockNumber,
		&c.TransactionHash,
		&status,
		&revocationReason,
		&revokedAt,
		&metadata,
	)
	if err != nil {
		return Credential{}, err
	}

	c.ID = id.CredentialID(credentialID)
	c.RecipientID = id.UserID(recipientID)
	c.IssuerID = id.UserID(issuerID)
	c.Type = Type(credentialType)
	c.Status = VerificationStatus(status)
	c.IssuedDate = issuedDate
	if expiryDate.Valid {
		t := expiryDate.Time
		c.ExpiryDate = &t
	}
	if revocationReason.Valid {
		c.RevocationReason = revocationReason.String
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		c.RevokedAt = &t
	}
	if len(skills) > 0 {
		if err := json.Unmarshal(skills, &c.Skills); err != nil {
			return Credential{}, fmt.Errorf("unmarshal skills: %w", err)
		}
	}
	if len(merkleProof) > 0 {
		if err := json.Unmarshal(merkleProof, &c.MerkleProof); err != nil {
			return Credential{}, fmt.Errorf("unmarshal merkle proof: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return Credential{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return c, nil
}
