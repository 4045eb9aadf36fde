package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/qrelease/factory"
	"github.com/warp/qrelease/release"
	"github.com/warp/qrelease/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func mustParse(t *testing.T, js string) release.Calendar {
	cal, err := factory.NewCalendarFactory().ParseCalendar(js)
	require.NoError(t, err)
	return cal
}

// =============================================================================
// TESTS
// =============================================================================

func TestStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cal := mustParse(t, factory.QuarterlyJSON("platform", "Platform"))
	require.NoError(t, store.SaveCalendar(ctx, cal))

	got, err := store.GetCalendar(ctx, "platform")
	require.NoError(t, err)
	assert.Equal(t, "Platform", got.Name)
	assert.Equal(t, 3, got.Width)
	assert.Equal(t, release.AlignCalendar, got.Alignment)
	assert.Equal(t, 2, got.Previous)
	assert.Equal(t, 1, got.Next)
	assert.Equal(t, 1, got.Version)
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
}

func TestStore_UpsertBumpsVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cal := mustParse(t, factory.QuarterlyJSON("platform", "Platform"))
	require.NoError(t, store.SaveCalendar(ctx, cal))

	cal.Width = 6
	cal.Alignment = release.AlignLegacy
	require.NoError(t, store.SaveCalendar(ctx, cal))

	got, err := store.GetCalendar(ctx, "platform")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, 6, got.Width)
	assert.Equal(t, release.AlignLegacy, got.Alignment)
}

func TestStore_ListOrderedByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	empty, err := store.ListCalendars(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, cal := range factory.DefaultCalendars() {
		require.NoError(t, store.SaveCalendar(ctx, cal))
	}

	list, err := store.ListCalendars(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	names := []string{list[0].Name, list[1].Name, list[2].Name, list[3].Name}
	assert.Equal(t, []string{"Bimonthly", "Monthly", "Quarterly", "Semiannual"}, names)
}

func TestStore_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetCalendar(ctx, "missing")
	assert.ErrorIs(t, err, release.ErrCalendarNotFound)

	err = store.DeleteCalendar(ctx, "missing")
	assert.True(t, release.IsNotFound(err))
}

func TestStore_DeleteAndReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, cal := range factory.DefaultCalendars() {
		require.NoError(t, store.SaveCalendar(ctx, cal))
	}

	require.NoError(t, store.DeleteCalendar(ctx, "monthly"))
	_, err := store.GetCalendar(ctx, "monthly")
	assert.ErrorIs(t, err, release.ErrCalendarNotFound)

	require.NoError(t, store.Reset(ctx))
	list, err := store.ListCalendars(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_RejectsInvalidCalendar(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveCalendar(context.Background(), release.Calendar{ID: "x", Name: "X", Width: 0})
	assert.ErrorIs(t, err, release.ErrInvalidCalendar)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qrelease.db")
	ctx := context.Background()

	first, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, first.SaveCalendar(ctx, mustParse(t, factory.MonthlyJSON("ops", "Ops"))))
	require.NoError(t, first.Close())

	second, err := sqlite.New(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.GetCalendar(ctx, "ops")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Width)
}

func TestStore_CorruptTimestampIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qrelease.db")
	ctx := context.Background()

	first, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, first.SaveCalendar(ctx, mustParse(t, factory.QuarterlyJSON("platform", "Platform"))))
	require.NoError(t, first.Close())

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec("UPDATE calendars SET updated_at = 'yesterday' WHERE id = 'platform'")
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	second, err := sqlite.New(path)
	require.NoError(t, err)
	defer second.Close()

	_, err = second.GetCalendar(ctx, "platform")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "updated_at")
	assert.False(t, release.IsNotFound(err))

	_, err = second.ListCalendars(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "updated_at")
}
