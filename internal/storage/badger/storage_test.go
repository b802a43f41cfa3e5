package badger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

func testDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "store"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertListingEnforcesURLUniqueness(t *testing.T) {
	store := NewListingStorage(testDB(t), arbor.NewLogger())
	ctx := context.Background()

	first := &models.JobListing{
		ID:     "listing-1",
		URL:    "https://acme.example/jobs/1",
		Title:  "Senior Go Engineer",
		Status: models.ListingStatusPending,
	}
	require.NoError(t, store.InsertListing(ctx, first))

	dup := &models.JobListing{
		ID:     "listing-2",
		URL:    "https://acme.example/jobs/1",
		Title:  "Senior Go Engineer (reposted)",
		Status: models.ListingStatusPending,
	}
	err := store.InsertListing(ctx, dup)
	assert.ErrorIs(t, err, interfaces.ErrDuplicateURL)

	// The original record is untouched.
	got, err := store.GetListingByURL(ctx, "https://acme.example/jobs/1")
	require.NoError(t, err)
	assert.Equal(t, "listing-1", got.ID)
}

func TestGetListingByURLNotFound(t *testing.T) {
	store := NewListingStorage(testDB(t), arbor.NewLogger())

	_, err := store.GetListingByURL(context.Background(), "https://acme.example/jobs/none")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestUpdateListingRequiresExistingRecord(t *testing.T) {
	store := NewListingStorage(testDB(t), arbor.NewLogger())

	err := store.UpdateListing(context.Background(), &models.JobListing{
		ID:  "ghost",
		URL: "https://acme.example/jobs/ghost",
	})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestSaveCompanyNormalizesKey(t *testing.T) {
	store := NewCompanyStorage(testDB(t), arbor.NewLogger())
	ctx := context.Background()

	company := &models.Company{
		Name:           "Acme, Inc.",
		DisplayName:    "Acme, Inc.",
		AnalysisStatus: models.CompanyStatusPending,
	}
	require.NoError(t, store.SaveCompany(ctx, company))

	got, err := store.GetCompany(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Name)
	assert.Equal(t, "Acme, Inc.", got.DisplayName)
}

func TestUpdateCompanyCASRejectsStaleWriter(t *testing.T) {
	store := NewCompanyStorage(testDB(t), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, store.SaveCompany(ctx, &models.Company{
		Name:           "acme",
		AnalysisStatus: models.CompanyStatusPending,
	}))
	loaded, err := store.GetCompany(ctx, "acme")
	require.NoError(t, err)

	// A concurrent writer lands first.
	winner := *loaded
	winner.About = "winner"
	require.NoError(t, store.UpdateCompanyCAS(ctx, &winner, loaded.UpdatedAt))

	// The stale writer still holds the old UpdatedAt and is refused.
	stale := *loaded
	stale.About = "stale"
	err = store.UpdateCompanyCAS(ctx, &stale, loaded.UpdatedAt)
	assert.ErrorIs(t, err, interfaces.ErrConflict)

	got, err := store.GetCompany(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "winner", got.About)
}

func TestUpdateCompanyCASUnknownCompany(t *testing.T) {
	store := NewCompanyStorage(testDB(t), arbor.NewLogger())

	err := store.UpdateCompanyCAS(context.Background(), &models.Company{Name: "ghost"}, time.Now())
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestTransitionStatusFollowsStateMachine(t *testing.T) {
	store := NewCompanyStorage(testDB(t), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, store.SaveCompany(ctx, &models.Company{
		Name:           "acme",
		AnalysisStatus: models.CompanyStatusPending,
	}))

	got, err := store.TransitionStatus(ctx, "acme", models.CompanyStatusAnalyzing)
	require.NoError(t, err)
	assert.Equal(t, models.CompanyStatusAnalyzing, got.AnalysisStatus)

	got, err = store.TransitionStatus(ctx, "acme", models.CompanyStatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.CompanyStatusActive, got.AnalysisStatus)

	// active -> pending is not in the machine.
	_, err = store.TransitionStatus(ctx, "acme", models.CompanyStatusPending)
	require.Error(t, err)
	assert.Equal(t, models.ErrInvalidState, models.KindOf(err))

	// The stored status is unchanged after the rejected transition.
	company, err := store.GetCompany(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, models.CompanyStatusActive, company.AnalysisStatus)
}

func TestKVRoundTrip(t *testing.T) {
	store := NewKVStorage(testDB(t), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "Match-Policy", `{"min_score": 40}`))

	// Keys are case-insensitive.
	got, err := store.Get(ctx, "match-policy")
	require.NoError(t, err)
	assert.Equal(t, `{"min_score": 40}`, got)

	require.NoError(t, store.Delete(ctx, "match-policy"))
	_, err = store.Get(ctx, "match-policy")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	// Deleting a missing key is not an error.
	require.NoError(t, store.Delete(ctx, "match-policy"))
}

func TestIncrementCounter(t *testing.T) {
	store := NewKVStorage(testDB(t), arbor.NewLogger())
	ctx := context.Background()

	n, err := store.IncrementCounter(ctx, "search:2026-08-24", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.IncrementCounter(ctx, "search:2026-08-24", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	got, err := store.GetCounter(ctx, "search:2026-08-24")
	require.NoError(t, err)
	assert.Equal(t, int64(6), got)

	// Missing counters read as zero.
	got, err = store.GetCounter(ctx, "search:2026-08-25")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestIncrementCounterRejectsNonNumericValue(t *testing.T) {
	store := NewKVStorage(testDB(t), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "search:today", "not a number"))
	_, err := store.IncrementCounter(ctx, "search:today", 1)
	require.Error(t, err)
}

func TestListMatchesNewestFirst(t *testing.T) {
	store := NewMatchStorage(testDB(t), arbor.NewLogger())
	ctx := context.Background()

	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, store.SaveMatch(ctx, &models.JobMatch{
			ID:           id,
			JobListingID: "listing-" + id,
			MatchScore:   70 + i,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	matches, err := store.ListMatches(ctx, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "m3", matches[0].ID)
	assert.Equal(t, "m2", matches[1].ID)

	byListing, err := store.GetMatchByListing(ctx, "listing-m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", byListing.ID)
}
