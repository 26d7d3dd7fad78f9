package postgres

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditSnapshotCompression(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	small := json.RawMessage(`{"number":"SL-2026-00001"}`)
	plain, packed, algo := svc.compress(small)
	assert.Equal(t, CompressionNone, algo)
	assert.Equal(t, small, plain)
	assert.Nil(t, packed)

	large := json.RawMessage(`{"lines":"` + string(bytes.Repeat([]byte("x"), 20*1024)) + `"}`)
	plain, packed, algo = svc.compress(large)
	assert.Equal(t, CompressionZstd, algo)
	assert.Nil(t, plain)
	assert.Less(t, len(packed), len(large))

	restored, err := svc.decoder.DecodeAll(packed, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte(large), restored)
}
