package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/subsentry/subsentry-api/internal/data/cryptoutil"
	apperrors "github.com/subsentry/subsentry-api/internal/errors"
)

// IdentityRepo reads the encrypted identities a user registered with each
// third-party service. Identities are stored encrypted at rest and only
// decrypted long enough to derive a ledger hash.
type IdentityRepo struct {
	DB  *sql.DB
	Enc cryptoutil.Encryptor
}

// NewIdentityRepo creates a new IdentityRepo.
func NewIdentityRepo(db *sql.DB, enc cryptoutil.Encryptor) *IdentityRepo {
	return &IdentityRepo{DB: db, Enc: enc}
}

// EmailHash decrypts the identity a user holds at a service and returns its
// canonical ledger hash. Returns NotFound when no identity is on file.
func (r *IdentityRepo) EmailHash(ctx context.Context, userID, serviceID string) (string, error) {
	var cipher string
	err := r.DB.QueryRowContext(ctx, `
		SELECT email_cipher
		FROM service_identities
		WHERE user_id = $1 AND service_id = $2
	`, userID, serviceID).Scan(&cipher)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.NotFoundf("no identity for user %s at service %s", userID, serviceID)
	}
	if err != nil {
		return "", apperrors.MapDBError(fmt.Errorf("get service identity: %w", err))
	}

	plaintext, err := r.Enc.Decrypt(cipher)
	if err != nil {
		return "", apperrors.Internalf("decrypt service identity: %v", err)
	}
	return cryptoutil.HashEmail(string(plaintext)), nil
}

// Upsert stores the encrypted identity for a (user, service) pair.
func (r *IdentityRepo) Upsert(ctx context.Context, userID, serviceID, email string) error {
	cipher, err := r.Enc.Encrypt([]byte(email))
	if err != nil {
		return apperrors.Internalf("encrypt service identity: %v", err)
	}

	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO service_identities (user_id, service_id, email_cipher)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, service_id) DO UPDATE
		SET email_cipher = EXCLUDED.email_cipher
	`, userID, serviceID, cipher); err != nil {
		return apperrors.MapDBError(fmt.Errorf("upsert service identity: %w", err))
	}
	return nil
}
