package main

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_create_transactions.sql", true, "0001", "create_transactions"},
		{"001_invalid.sql", false, "", ""},       // wrong number format
		{"0001_test", false, "", ""},             // missing .sql
		{"0001.sql", false, "", ""},              // missing name
		{"invalid_0001_test.sql", false, "", ""}, // wrong order
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			matches := migrationPattern.FindStringSubmatch(tt.filename)
			if !tt.valid {
				assert.Nil(t, matches)
				return
			}
			require.Len(t, matches, 3)
			assert.Equal(t, tt.version, matches[1])
			assert.Equal(t, tt.name, matches[2])
		})
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_second.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.b` (id INT64);")},
		"m/0001_first.sql":  {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.a` (id INT64);")},
		"m/README.md":       {Data: []byte("notes")},
	}

	migrations, err := readMigrations(fsys, "m", "proj", "ds")
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, "CREATE TABLE `proj.ds.a` (id INT64);", migrations[0].SQL)
	assert.Equal(t, checksum(fsys["m/0001_first.sql"].Data), migrations[0].Checksum)
	assert.Equal(t, 2, migrations[1].Version)

	other, err := readMigrations(fsys, "m", "other", "other")
	require.NoError(t, err)
	assert.Equal(t, migrations[0].Checksum, other[0].Checksum, "checksum ignores placeholders")
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := readMigrations(bigqueryMigrations, "migrations/bigquery", "p", "d")
	require.NoError(t, err)
	require.Len(t, migrations, 3)
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotContains(t, m.SQL, "{{")
	}
	assert.Contains(t, migrations[2].SQL, "`p.d.category_alerts`")
}

func TestPendingMigrations(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "a", Checksum: "x"},
		{Version: 2, Name: "b", Checksum: "y"},
	}

	pending, err := pendingMigrations(migrations, []AppliedMigration{{Version: 1, Checksum: "x"}})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)

	pending, err = pendingMigrations(migrations, []AppliedMigration{{Version: 1}, {Version: 2, Checksum: "y"}})
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = pendingMigrations(migrations, []AppliedMigration{{Version: 1, Checksum: "changed"}})
	assert.Error(t, err)
}
