package store

import (
	"context"
	"errors"
	"testing"

	"github.com/artpar/villagelookup/internal/core/domain"
	"github.com/artpar/villagelookup/internal/core/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// seedReference loads two townships with wards, villages and ICD10 codes.
func seedReference(t *testing.T, s *SQLStore) map[string]int {
	t.Helper()
	ctx := context.Background()

	ids, err := s.UpsertTownships(ctx, []domain.AreaOption{
		{UID: "T1", Code: domain.StringPtr("100301"), Name: "Mingaladon", NameMy: domain.StringPtr("မင်္ဂလာဒုံ")},
		{UID: "T2", Code: domain.StringPtr("100302"), Name: "Hlaing"},
	})
	require.NoError(t, err)

	err = s.UpsertWards(ctx, []domain.LinkedOption{
		{AreaOption: domain.AreaOption{UID: "W1", Code: domain.StringPtr("W001"), Name: "Thaketa"}, TownshipID: ids["T1"]},
		{AreaOption: domain.AreaOption{UID: "W2", Code: domain.StringPtr("W002"), Name: "Mingalar Thar"}, TownshipID: ids["T1"]},
		{AreaOption: domain.AreaOption{UID: "W3", Code: domain.StringPtr("W003"), Name: "Tharyar"}, TownshipID: ids["T1"]},
		{AreaOption: domain.AreaOption{UID: "W4", Code: domain.StringPtr("W004"), Name: "Aung Zeya"}, TownshipID: ids["T2"]},
	})
	require.NoError(t, err)

	err = s.UpsertVillages(ctx, []domain.LinkedOption{
		{AreaOption: domain.AreaOption{UID: "V1", Code: domain.StringPtr("V001"), Name: "Kyauk Tan"}, TownshipID: ids["T2"]},
	})
	require.NoError(t, err)

	_, err = s.db.Exec(`INSERT INTO icd10_codes (uid, code, icd_code, name) VALUES
		('I1', '1001', 'A00.0', 'Cholera due to Vibrio cholerae'),
		('I2', '1002', 'A00.1', 'Cholera, El Tor'),
		('I3', '1003', 'B01', 'Varicella')`)
	require.NoError(t, err)

	return ids
}

// =============================================================================
// Open Tests
// =============================================================================

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql", DSN: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedDriver))
}

func TestOpen_MigrationsIdempotent(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, runMigrations(s.db.DB, DriverSQLite, false))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_foreign_keys=on", sqliteDSN(":memory:"))
	assert.Equal(t, "file:x.db?cache=shared&_foreign_keys=on", sqliteDSN("file:x.db?cache=shared"))
	assert.Equal(t, "x.db?_foreign_keys=off", sqliteDSN("x.db?_foreign_keys=off"))
}

func TestPing(t *testing.T) {
	s := setupTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

// =============================================================================
// Validation Lookup Tests
// =============================================================================

func TestWardInTownship(t *testing.T) {
	s := setupTestStore(t)
	seedReference(t, s)
	ctx := context.Background()

	ok, err := s.WardInTownship(ctx, "100301", "W001")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.WardInTownship(ctx, "100302", "W001")
	require.NoError(t, err)
	assert.False(t, ok, "ward belongs to another township")

	ok, err = s.WardInTownship(ctx, "100301", "ABC")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.WardInTownship(ctx, "100301", "W1")
	require.NoError(t, err)
	assert.False(t, ok, "uid is not a business code")
}

func TestVillageInTownship(t *testing.T) {
	s := setupTestStore(t)
	seedReference(t, s)
	ctx := context.Background()

	ok, err := s.VillageInTownship(ctx, "100302", "V001")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.VillageInTownship(ctx, "100301", "V001")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClassificationCodeExists(t *testing.T) {
	s := setupTestStore(t)
	seedReference(t, s)
	ctx := context.Background()

	ok, err := s.ClassificationCodeExists(ctx, "1001")
	require.NoError(t, err)
	assert.True(t, ok)

	for _, code := range []string{"Z999", "A00.0", "I1", "1001 "} {
		ok, err := s.ClassificationCodeExists(ctx, code)
		require.NoError(t, err)
		assert.False(t, ok, code)
	}
}

func TestLookup_CancelledContext(t *testing.T) {
	s := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ClassificationCodeExists(ctx, "1001")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueryFailed))
	assert.True(t, errors.Is(err, context.Canceled))

	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "ClassificationCodeExists", storeErr.Op)
}

// =============================================================================
// Listing Tests
// =============================================================================

func TestListTownships(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	empty, err := s.ListTownships(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	seedReference(t, s)
	townships, err := s.ListTownships(ctx)
	require.NoError(t, err)
	require.Len(t, townships, 2)
	assert.Equal(t, "Hlaing", townships[0].Name)
	assert.Nil(t, townships[0].NameMy)
	assert.Equal(t, "Mingaladon", townships[1].Name)
	require.NotNil(t, townships[1].NameMy)
	assert.Equal(t, "မင်္ဂလာဒုံ", *townships[1].NameMy)
}

func TestLoadTownshipSnapshot(t *testing.T) {
	s := setupTestStore(t)
	seedReference(t, s)

	snap, err := LoadTownshipSnapshot(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())

	areas := snap.Areas()
	assert.Equal(t, "T2", areas[0].UID)
	assert.Equal(t, "100302", *areas[0].Code)

	areas[0].Name = "mutated"
	assert.Equal(t, "Hlaing", snap.Areas()[0].Name, "snapshot is immutable")
}

func TestSearchWards_ByName(t *testing.T) {
	s := setupTestStore(t)
	seedReference(t, s)

	wards, err := s.SearchWards(context.Background(), "T1", search.Params{})
	require.NoError(t, err)
	require.Len(t, wards, 3)
	assert.Equal(t, "Mingalar Thar", wards[0].Name)
	assert.Equal(t, "Thaketa", wards[1].Name)
	assert.Equal(t, "Tharyar", wards[2].Name)
}

func TestSearchWards_Query(t *testing.T) {
	s := setupTestStore(t)
	seedReference(t, s)

	wards, err := s.SearchWards(context.Background(), "T1", search.Params{Query: "tha", Limit: 50})
	require.NoError(t, err)
	require.Len(t, wards, 3)
	assert.Equal(t, "Thaketa", wards[0].Name)
	assert.Equal(t, "Tharyar", wards[1].Name)
	assert.Equal(t, "Mingalar Thar", wards[2].Name)
}

func TestSearchWards_LimitAndTownship(t *testing.T) {
	s := setupTestStore(t)
	seedReference(t, s)
	ctx := context.Background()

	wards, err := s.SearchWards(ctx, "T1", search.Params{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, wards, 1)

	wards, err = s.SearchWards(ctx, "T2", search.Params{})
	require.NoError(t, err)
	require.Len(t, wards, 1)
	assert.Equal(t, "W4", wards[0].UID)

	wards, err = s.SearchWards(ctx, "missing", search.Params{})
	require.NoError(t, err)
	assert.NotNil(t, wards)
	assert.Empty(t, wards)
}

func TestSearchVillages(t *testing.T) {
	s := setupTestStore(t)
	seedReference(t, s)

	villages, err := s.SearchVillages(context.Background(), "T2", search.Params{Query: "KYAUK"})
	require.NoError(t, err)
	require.Len(t, villages, 1)
	assert.Equal(t, "V1", villages[0].UID)
	assert.Equal(t, "V001", *villages[0].Code)
}

func TestSearchClassificationCodes_Pages(t *testing.T) {
	s := setupTestStore(t)
	seedReference(t, s)
	ctx := context.Background()

	page, err := s.SearchClassificationCodes(ctx, search.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Limit)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "A00.0", *page.Results[0].ICDCode)
	assert.Equal(t, "A00.1", *page.Results[1].ICDCode)

	page, err = s.SearchClassificationCodes(ctx, search.Params{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "B01", *page.Results[0].ICDCode)

	page, err = s.SearchClassificationCodes(ctx, search.Params{Page: 5, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.NotNil(t, page.Results)
	assert.Empty(t, page.Results)
}

func TestSearchClassificationCodes_Query(t *testing.T) {
	s := setupTestStore(t)
	seedReference(t, s)

	page, err := s.SearchClassificationCodes(context.Background(), search.Params{Query: "cholera"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 50, page.Limit)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "I1", page.Results[0].UID)
	assert.Equal(t, "1001", *page.Results[0].Code)
}

// =============================================================================
// Loader Write Tests
// =============================================================================

func TestUpsertTownships_UpdatesExisting(t *testing.T) {
	s := setupTestStore(t)
	ids := seedReference(t, s)
	ctx := context.Background()

	again, err := s.UpsertTownships(ctx, []domain.AreaOption{
		{UID: "T1", Code: domain.StringPtr("100399"), Name: "Mingaladon (renamed)"},
	})
	require.NoError(t, err)
	assert.Equal(t, ids, again, "row ids survive an upsert")

	townships, err := s.ListTownships(ctx)
	require.NoError(t, err)
	require.Len(t, townships, 2)
	assert.Equal(t, "Mingaladon (renamed)", townships[1].Name)
	assert.Nil(t, townships[1].NameMy)

	ok, err := s.WardInTownship(ctx, "100399", "W001")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpsertWards_MovesTownship(t *testing.T) {
	s := setupTestStore(t)
	ids := seedReference(t, s)
	ctx := context.Background()

	err := s.UpsertWards(ctx, []domain.LinkedOption{
		{AreaOption: domain.AreaOption{UID: "W1", Code: domain.StringPtr("W001"), Name: "Thaketa"}, TownshipID: ids["T2"]},
	})
	require.NoError(t, err)

	ok, err := s.WardInTownship(ctx, "100302", "W001")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpsertWards_ForeignKey(t *testing.T) {
	s := setupTestStore(t)

	err := s.UpsertWards(context.Background(), []domain.LinkedOption{
		{AreaOption: domain.AreaOption{UID: "W1", Name: "Orphan"}, TownshipID: 999},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueryFailed))
}

// =============================================================================
// Transaction Tests
// =============================================================================

func TestWithTx_Commit(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx Store) error {
		_, err := tx.UpsertTownships(ctx, []domain.AreaOption{{UID: "T9", Name: "Committed"}})
		return err
	})
	require.NoError(t, err)

	townships, err := s.ListTownships(ctx)
	require.NoError(t, err)
	assert.Len(t, townships, 1)
}

func TestWithTx_Rollback(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx Store) error {
		if _, err := tx.UpsertTownships(ctx, []domain.AreaOption{{UID: "T9", Name: "Rolled back"}}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	townships, err := s.ListTownships(ctx)
	require.NoError(t, err)
	assert.Empty(t, townships)
}

func TestWithTx_Nested(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx Store) error {
		return tx.WithTx(ctx, func(inner Store) error {
			assert.NoError(t, inner.Ping(ctx))
			_, err := inner.UpsertTownships(ctx, []domain.AreaOption{{UID: "T9", Name: "Nested"}})
			return err
		})
	})
	require.NoError(t, err)
}
