package pattern

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/pilot/internal/models"
)

func samplePattern(sig string) *Pattern {
	// Millisecond precision, matching what the persisted form can carry.
	created := time.UnixMilli(1_700_000_000_000)
	return &Pattern{
		ID:          "id-" + sig,
		Signature:   sig,
		Description: "read the README file",
		ActionType:  models.ActionReadFile,
		Approach:    "read-file README.md",
		Context:     map[string]string{"workspace_root": "/work"},
		UsageCount:  3,
		SuccessRate: 66.5,
		Confidence:  72,
		CreatedAt:   created,
		LastUsed:    created.Add(time.Hour),
		LastSuccess: created.Add(time.Hour),
	}
}

func TestFilePersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.json")
	fp, err := NewFilePersistence(path)
	require.NoError(t, err)

	want := []*Pattern{samplePattern("sig-a"), samplePattern("sig-b")}
	require.NoError(t, fp.Save(context.Background(), want))

	got, err := fp.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	byScope := map[string]*Pattern{got[0].Signature: got[0], got[1].Signature: got[1]}
	loaded := byScope["sig-a"]
	require.NotNil(t, loaded)
	assert.Equal(t, "id-sig-a", loaded.ID)
	assert.Equal(t, models.ActionReadFile, loaded.ActionType)
	assert.Equal(t, 3, loaded.UsageCount)
	assert.Equal(t, 66.5, loaded.SuccessRate)
	assert.Equal(t, 72.0, loaded.Confidence)
	assert.True(t, loaded.CreatedAt.Equal(want[0].CreatedAt), "timestamps survive the epoch-millis round trip")
	assert.True(t, loaded.LastUsed.Equal(want[0].LastUsed))
	assert.Equal(t, map[string]string{"workspace_root": "/work"}, loaded.Context)
}

func TestFilePersistenceMissingFileIsEmpty(t *testing.T) {
	fp, err := NewFilePersistence(filepath.Join(t.TempDir(), "nested", "patterns.json"))
	require.NoError(t, err)

	got, err := fp.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilePersistenceSaveReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.json")
	fp, err := NewFilePersistence(path)
	require.NoError(t, err)

	require.NoError(t, fp.Save(context.Background(), []*Pattern{samplePattern("sig-a"), samplePattern("sig-b")}))
	require.NoError(t, fp.Save(context.Background(), []*Pattern{samplePattern("sig-c")}))

	got, err := fp.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sig-c", got[0].Signature)
}

func TestDecodePatternsRejectsWholeBlob(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "not json",
			data: "patterns ahoy",
		},
		{
			name: "wrong version",
			data: `{"version": 2, "patterns": []}`,
		},
		{
			name: "missing signature",
			data: `{"version": 1, "patterns": [
				{"id": "a", "signature": "sig-a", "success_rate": 50, "confidence": 50},
				{"id": "b", "signature": "", "success_rate": 50, "confidence": 50}
			]}`,
		},
		{
			name: "duplicate signature",
			data: `{"version": 1, "patterns": [
				{"id": "a", "signature": "sig-a", "success_rate": 50, "confidence": 50},
				{"id": "b", "signature": "sig-a", "success_rate": 50, "confidence": 50}
			]}`,
		},
		{
			name: "success rate out of range",
			data: `{"version": 1, "patterns": [
				{"id": "a", "signature": "sig-a", "success_rate": 101, "confidence": 50}
			]}`,
		},
		{
			name: "confidence out of range",
			data: `{"version": 1, "patterns": [
				{"id": "a", "signature": "sig-a", "success_rate": 50, "confidence": -1}
			]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patterns, err := decodePatterns([]byte(tt.data))
			assert.Error(t, err)
			assert.Nil(t, patterns, "a single bad record must reject the entire blob")
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := []*Pattern{samplePattern("sig-a")}

	data, err := encodePatterns(want)
	require.NoError(t, err)

	got, err := decodePatterns(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want[0].Signature, got[0].Signature)
	assert.Equal(t, want[0].SuccessRate, got[0].SuccessRate)
	assert.True(t, got[0].LastSuccess.Equal(want[0].LastSuccess))
}
