package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMigrationFilename(t *testing.T) {
	id, name, err := parseMigrationFilename("002_create_alerts.sql")
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	assert.Equal(t, "create alerts", name)

	_, _, err = parseMigrationFilename("create.sql")
	assert.Error(t, err)
	_, _, err = parseMigrationFilename("abc_create.sql")
	assert.Error(t, err)
}

func TestExtractDescription(t *testing.T) {
	assert.Equal(t, "Users table", extractDescription("-- Description: Users table\nCREATE TABLE x (id INTEGER);"))
	assert.Equal(t, "No description", extractDescription("CREATE TABLE x (id INTEGER);"))
}

func TestMigrator_AppliesInOrderAndDetectsChanges(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	files := fstest.MapFS{
		"m/001_first.sql":  {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"m/002_second.sql": {Data: []byte("CREATE TABLE b (id INTEGER REFERENCES a(id));")},
		"m/readme.txt":     {Data: []byte("ignored")},
	}

	m := NewMigrator(db)
	require.NoError(t, m.LoadFS(files, "m"))
	require.NoError(t, m.Migrate())
	require.NoError(t, m.Validate())

	statuses, err := m.Status()
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "applied", statuses[0].Status)
	assert.Equal(t, "second", statuses[1].Name)

	// Повторный запуск ничего не меняет
	require.NoError(t, m.Migrate())

	changed := fstest.MapFS{
		"m/001_first.sql":  {Data: []byte("CREATE TABLE a (id INTEGER, extra TEXT);")},
		"m/002_second.sql": files["m/002_second.sql"],
	}
	m2 := NewMigrator(db)
	require.NoError(t, m2.LoadFS(changed, "m"))
	assert.Error(t, m2.Migrate())
	assert.Error(t, m2.Validate())
}

func TestMigrator_EmbeddedSQLite(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(db))

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM users`))
	assert.Zero(t, n)
}
