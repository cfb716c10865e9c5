package postgres

import (
	"database/sql"
	"testing"
	"time"

	"assetproxy/internal/audit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	values []any
}

func (f fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		switch ptr := d.(type) {
		case *string:
			*ptr = f.values[i].(string)
		case *int:
			*ptr = f.values[i].(int)
		case *bool:
			*ptr = f.values[i].(bool)
		case *[]byte:
			*ptr = f.values[i].([]byte)
		case *sql.NullString:
			*ptr = f.values[i].(sql.NullString)
		case *time.Time:
			*ptr = f.values[i].(time.Time)
		}
	}
	return nil
}

func TestScanEntry(t *testing.T) {
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	row := fakeRow{values: []any{
		"7d0d1f1e-4f43-4b0a-8d55-1f0c6e7f5b11",
		"batch",
		"cloudinary",
		sql.NullString{String: "req-1", Valid: true},
		"any",
		3,
		2,
		1,
		true,
		[]byte(`["a","b","c"]`),
		[]byte(`[{"a":"deleted"}]`),
		created,
	}}

	entry, err := scanEntry(row)
	require.NoError(t, err)
	assert.Equal(t, audit.KindBatch, entry.Kind)
	assert.Equal(t, "req-1", entry.RequestID)
	assert.Equal(t, []string{"a", "b", "c"}, entry.PublicIDs)
	assert.JSONEq(t, `[{"a":"deleted"}]`, string(entry.Results))
	assert.Equal(t, created, entry.CreatedAt)
}

func TestScanEntry_EmptyColumns(t *testing.T) {
	row := fakeRow{values: []any{
		"id", "single", "local", sql.NullString{}, "all", 1, 1, 0, true, []byte(nil), []byte(nil), time.Time{},
	}}

	entry, err := scanEntry(row)
	require.NoError(t, err)
	assert.Empty(t, entry.RequestID)
	assert.NotNil(t, entry.PublicIDs)
	assert.Nil(t, entry.Results)
}
