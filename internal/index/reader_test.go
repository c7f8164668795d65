package index

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRow struct {
	fileID, domain, relativePath string
	flags                        int
}

var manifestRows = []testRow{
	{"aaa1", "AppDomain-com.example.app", "Library", 2},
	{"aaa2", "AppDomain-com.example.app", "Library/Preferences/app.plist", 1},
	{"bbb1", "MediaDomain", "Media/DCIM", 2},
	{"bbb2", "MediaDomain", "Media/DCIM/IMG_0001.JPG", 1},
	{"ccc1", "HomeDomain", "Library/SMS/sms.db", 1},
	{"ddd1", "Weird%Domain", "strange", 1},
}

func createManifest(t *testing.T, rows []testRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Manifest.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE Files (
		fileID TEXT PRIMARY KEY,
		domain TEXT,
		relativePath TEXT,
		flags INTEGER,
		file BLOB
	)`)
	require.NoError(t, err)

	for _, r := range rows {
		_, err = db.Exec(`INSERT INTO Files VALUES (?, ?, ?, ?, NULL)`,
			r.fileID, r.domain, r.relativePath, r.flags)
		require.NoError(t, err)
	}
	return path
}

func openManifest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(createManifest(t, manifestRows))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func collectIDs(t *testing.T, c *Cursor) []string {
	t.Helper()
	defer c.Close()
	var ids []string
	for c.Next() {
		ids = append(ids, c.Row().FileID)
	}
	require.NoError(t, c.Err())
	return ids
}

func TestOpenMissingDatabase(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "Manifest.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest database not found")
}

func TestContentStreamsAllRowsInSmallBatches(t *testing.T) {
	db := openManifest(t)

	// A batch smaller than the result set forces several fetches.
	cursor, err := db.Content(context.Background(), Filter{Sort: true}, 2)
	require.NoError(t, err)

	ids := collectIDs(t, cursor)
	assert.Equal(t, []string{"aaa1", "aaa2", "ccc1", "bbb1", "bbb2", "ddd1"}, ids)
}

func TestContentPrefixFilterWithNamespace(t *testing.T) {
	db := openManifest(t)

	cursor, err := db.Content(context.Background(), Filter{
		Domain:    "AppDomain",
		Namespace: "com.example",
		Sort:      true,
	}, 0)
	require.NoError(t, err)

	ids := collectIDs(t, cursor)
	assert.Equal(t, []string{"aaa1", "aaa2"}, ids)
}

func TestContentEscapesPrefixWildcards(t *testing.T) {
	db := openManifest(t)

	// "Weird%" must match the literal percent, not act as a wildcard over
	// every domain.
	cursor, err := db.Content(context.Background(), Filter{Domain: "Weird%"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"ddd1"}, collectIDs(t, cursor))
}

func TestContentPatternMode(t *testing.T) {
	db := openManifest(t)

	cursor, err := db.Content(context.Background(), Filter{
		Domain:  "%Domain",
		Pattern: true,
		Sort:    true,
	}, 0)
	require.NoError(t, err)

	// Trailing-anchored pattern excludes the namespaced AppDomain rows.
	assert.Equal(t, []string{"ccc1", "bbb1", "bbb2", "ddd1"}, collectIDs(t, cursor))
}

func TestContentCaseSensitivity(t *testing.T) {
	db := openManifest(t)
	ctx := context.Background()

	insensitive, err := db.Count(ctx, Filter{Domain: "homedomain"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), insensitive)

	sensitive, err := db.Count(ctx, Filter{Domain: "homedomain", CaseSensitive: true})
	require.NoError(t, err)
	assert.Equal(t, int64(0), sensitive)
}

func TestAggregatesUnaffectedByCaseSensitiveQueries(t *testing.T) {
	rows := []testRow{
		{"x1", "AppDomain-ns1", "a", 1},
		{"x2", "appdomain-ns2", "b", 1},
	}
	db, err := Open(createManifest(t, rows))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	before, err := db.Namespaces(ctx, "AppDomain")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ns1", "ns2"}, before)

	// A case-sensitive query leaves its pragma on the pooled connection;
	// aggregate matching must not inherit it.
	_, err = db.Count(ctx, Filter{Domain: "AppDomain", CaseSensitive: true})
	require.NoError(t, err)

	after, err := db.Namespaces(ctx, "AppDomain")
	require.NoError(t, err)
	assert.ElementsMatch(t, before, after,
		"aggregate results changed after an unrelated case-sensitive query")
}

func TestCount(t *testing.T) {
	db := openManifest(t)
	ctx := context.Background()

	total, err := db.Count(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(len(manifestRows)), total)

	media, err := db.Count(ctx, Filter{Domain: "MediaDomain"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), media)
}

func TestCountRejectsInvalidFilter(t *testing.T) {
	db := openManifest(t)

	_, err := db.Count(context.Background(), Filter{Namespace: "ns", Pattern: true})
	assert.ErrorIs(t, err, ErrNamespaceWithPattern)
}

func TestDomains(t *testing.T) {
	db := openManifest(t)

	domains, err := db.Domains(context.Background())
	require.NoError(t, err)
	// "AppDomain-com.example.app" truncates at the first hyphen;
	// "Weird%Domain" carries none and stays whole.
	assert.ElementsMatch(t, []string{"AppDomain", "MediaDomain", "HomeDomain", "Weird%Domain"}, domains)
}

func TestNamespaces(t *testing.T) {
	db := openManifest(t)
	ctx := context.Background()

	namespaces, err := db.Namespaces(ctx, "AppDomain")
	require.NoError(t, err)
	assert.Equal(t, []string{"com.example.app"}, namespaces)

	none, err := db.Namespaces(ctx, "MediaDomain")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCursorBlobColumn(t *testing.T) {
	path := createManifest(t, nil)
	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO Files VALUES ('eee1', 'HomeDomain', 'blob', 1, X'DEADBEEF')`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	cursor, err := db.Content(context.Background(), Filter{}, 0)
	require.NoError(t, err)
	defer cursor.Close()

	require.True(t, cursor.Next())
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, cursor.Row().Metadata)
	assert.False(t, cursor.Next())
	require.NoError(t, cursor.Err())
}
