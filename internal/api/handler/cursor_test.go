package handler

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/fieldtrack/tracker-be/internal/tracker/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2025, 6, 10, 9, 30, 0, 123456789, time.UTC)
	original := &storage.TxCursor{CreatedAt: createdAt, TransactionID: "tx-42"}

	encoded, err := EncodeTxCursor(original)
	require.NoError(t, err)

	decoded, err := DecodeTxCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)

	assert.True(t, decoded.CreatedAt.Equal(createdAt))
	assert.Equal(t, "tx-42", decoded.TransactionID)
}

func TestDecodeTxCursor(t *testing.T) {
	t.Run("empty cursor means first page", func(t *testing.T) {
		cursor, err := DecodeTxCursor("")
		require.NoError(t, err)
		assert.Nil(t, cursor)
	})

	t.Run("invalid base64 is rejected", func(t *testing.T) {
		_, err := DecodeTxCursor("not-base64!!!")
		assert.Error(t, err)
	})

	t.Run("wrong segment count is rejected", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte("12345"))
		_, err := DecodeTxCursor(encoded)
		assert.Error(t, err)
	})

	t.Run("non-numeric timestamp is rejected", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte("yesterday|tx-1"))
		_, err := DecodeTxCursor(encoded)
		assert.Error(t, err)
	})
}
