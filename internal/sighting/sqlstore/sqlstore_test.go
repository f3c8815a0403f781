package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/reference"
	"github.com/turtleson01/bird-app/internal/sighting"
)

func openTemp(t *testing.T) (*Table, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "birddex.db")
	table, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = table.Close() })
	return table, path
}

func TestEmptyDatabaseReadsNoRows(t *testing.T) {
	t.Parallel()

	table, _ := openTemp(t)
	rows, err := table.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReplaceAllRoundTrip(t *testing.T) {
	t.Parallel()

	table, _ := openTemp(t)
	ctx := context.Background()

	first := [][]string{
		{"No", "bird_name", "memo"},
		{"1", "참새", "공원"},
		{"2", "까치"},
		{},
	}
	require.NoError(t, table.ReplaceAll(ctx, first))

	rows, err := table.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, rows)

	second := [][]string{{"No", "bird_name"}, {"1", "직박구리"}}
	require.NoError(t, table.ReplaceAll(ctx, second))

	rows, err = table.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, rows, "previous rows must not survive a replacement")

	require.NoError(t, table.ReplaceAll(ctx, nil))
	rows, err = table.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRowsPersistAcrossReopen(t *testing.T) {
	t.Parallel()

	table, path := openTemp(t)
	ctx := context.Background()
	require.NoError(t, table.ReplaceAll(ctx, [][]string{{"bird_name"}, {"참새"}}))
	require.NoError(t, table.Close())

	reopened, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	rows, err := reopened.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"bird_name"}, {"참새"}}, rows)
}

func TestClosedDatabaseReportsDatabaseErrors(t *testing.T) {
	t.Parallel()

	table, _ := openTemp(t)
	require.NoError(t, table.Close())

	_, err := table.ReadAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
	assert.Equal(t, sighting.KindTransport, sighting.KindOf(err))
}

func TestStoreOverSQLite(t *testing.T) {
	t.Parallel()

	table, _ := openTemp(t)
	catalog := reference.NewCatalog([]reference.Row{{Name: "참새"}, {Name: "까치"}, {Name: "직박구리"}})
	store := sighting.NewStore(table, catalog, sighting.Policy{}, nil)
	ctx := context.Background()

	for _, name := range []string{"직박구리", "참새", "까치"} {
		_, err := store.Save(ctx, sighting.SaveRequest{Name: name, Location: sighting.Coordinates(37.5, 127.0, "")})
		require.NoError(t, err)
	}

	removed, err := store.Delete(ctx, []string{"까치"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "참새", list[0].SpeciesName)
	assert.Equal(t, "직박구리", list[1].SpeciesName)
	assert.True(t, list[1].Location.HasCoordinates())
}
