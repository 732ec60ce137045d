package data

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subsentry/subsentry-api/internal/data/cryptoutil"
	apperrors "github.com/subsentry/subsentry-api/internal/errors"
	"github.com/subsentry/subsentry-api/internal/testutil"
)

func TestIdentityRepo_Integration_UpsertAndHash(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		key := sha256.Sum256([]byte("identity-test-key"))
		enc, err := cryptoutil.NewAESGCMEncryptor(key[:])
		require.NoError(t, err)

		repo := NewIdentityRepo(db, enc)
		ctx := context.Background()

		userID := uuid.NewString()
		serviceID := uuid.NewString()
		testutil.SeedAccount(t, db, userID)

		_, err = repo.EmailHash(ctx, userID, serviceID)
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))

		require.NoError(t, repo.Upsert(ctx, userID, serviceID, "Person@Example.COM"))

		// The stored cipher is not the plaintext.
		var cipher string
		require.NoError(t, db.QueryRowContext(ctx, `
			SELECT email_cipher FROM service_identities WHERE user_id = $1 AND service_id = $2
		`, userID, serviceID).Scan(&cipher))
		assert.NotContains(t, cipher, "Person")

		// The derived hash is canonical: case and padding do not matter.
		hash, err := repo.EmailHash(ctx, userID, serviceID)
		require.NoError(t, err)
		assert.Equal(t, cryptoutil.HashEmail("person@example.com"), hash)

		// Re-registering replaces the identity.
		require.NoError(t, repo.Upsert(ctx, userID, serviceID, "other@example.com"))
		hash, err = repo.EmailHash(ctx, userID, serviceID)
		require.NoError(t, err)
		assert.Equal(t, cryptoutil.HashEmail("other@example.com"), hash)
	})
}
