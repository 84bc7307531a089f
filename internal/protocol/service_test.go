package protocol

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vetoapp23/vetoapp/internal/platform/kv"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewService(context.Background(), kv.NewMemory(), logger)
	require.NoError(t, err)
	return svc
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, value)
	require.NoError(t, err)
	return d
}

func TestResolveDueDateUsesLastInterval(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		Name:        "DHPP",
		Species:     "Chien",
		ProductType: ProductVaccination,
		Intervals:   []Interval{{OffsetDays: 0, Label: "J0"}, {OffsetDays: 365, Label: "1 an"}},
	})
	require.NoError(t, err)

	due, ok := svc.ResolveDueDate("DHPP", "Chien", mustDate(t, "2024-01-15"))
	require.True(t, ok)
	require.Equal(t, mustDate(t, "2025-01-15"), due)
}

func TestResolveDueDateIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		Name:        "Rage",
		Species:     "Chat",
		ProductType: ProductVaccination,
		Intervals:   []Interval{{OffsetDays: 0, Label: "J0"}, {OffsetDays: 21, Label: "Rappel"}, {OffsetDays: 365, Label: "Annuel"}},
	})
	require.NoError(t, err)

	given := mustDate(t, "2024-03-01")
	first, ok := svc.ResolveDueDate("Rage", "Chat", given)
	require.True(t, ok)
	second, ok := svc.ResolveDueDate("Rage", "Chat", given)
	require.True(t, ok)
	require.Equal(t, first, second)
}

func TestResolveDueDateNoMatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		Name:        "DHPP",
		Species:     "Chien",
		ProductType: ProductVaccination,
		Intervals:   []Interval{{OffsetDays: 0, Label: "J0"}},
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		product string
		species string
	}{
		{"unknown product", "Nobivac", "Chien"},
		{"wrong species", "DHPP", "Chat"},
		{"case mismatch on product", "dhpp", "Chien"},
		{"case mismatch on species", "DHPP", "chien"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := svc.ResolveDueDate(tc.product, tc.species, mustDate(t, "2024-01-15"))
			require.False(t, ok)
		})
	}
}

func TestResolveDueDateSkipsInactive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateInput{
		Name:        "Leucose",
		Species:     "Chat",
		ProductType: ProductVaccination,
		Intervals:   []Interval{{OffsetDays: 0, Label: "J0"}, {OffsetDays: 365, Label: "1 an"}},
	})
	require.NoError(t, err)

	_, ok := svc.ResolveDueDate("Leucose", "Chat", mustDate(t, "2024-01-15"))
	require.True(t, ok)

	require.NoError(t, svc.Deactivate(ctx, p.ID))
	_, ok = svc.ResolveDueDate("Leucose", "Chat", mustDate(t, "2024-01-15"))
	require.False(t, ok)
}

func TestCreateSortsIntervals(t *testing.T) {
	svc := newTestService(t)

	p, err := svc.Create(context.Background(), CreateInput{
		Name:        "Milbemax",
		Species:     "Chien",
		ProductType: ProductAntiparasitic,
		Intervals:   []Interval{{OffsetDays: 90, Label: "3 mois"}, {OffsetDays: 0, Label: "J0"}},
	})
	require.NoError(t, err)
	require.Equal(t, 0, p.Intervals[0].OffsetDays)
	require.Equal(t, 90, p.Intervals[1].OffsetDays)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), CreateInput{
		Species:     "Chien",
		ProductType: ProductVaccination,
		Intervals:   []Interval{{OffsetDays: 0, Label: "J0"}},
	})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateInput{
		Name:        "DHPP",
		Species:     "Chien",
		ProductType: ProductVaccination,
	})
	require.Error(t, err)
}

func TestListFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "DHPP", Species: "Chien", ProductType: ProductVaccination, Intervals: []Interval{{0, "J0"}}})
	require.NoError(t, err)
	p, err := svc.Create(ctx, CreateInput{Name: "Milbemax", Species: "Chien", ProductType: ProductAntiparasitic, Intervals: []Interval{{0, "J0"}}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Name: "Typhus", Species: "Chat", ProductType: ProductVaccination, Intervals: []Interval{{0, "J0"}}})
	require.NoError(t, err)

	require.Len(t, svc.List(ctx, ListFilter{}), 3)
	require.Len(t, svc.List(ctx, ListFilter{Species: "Chien"}), 2)
	require.Len(t, svc.List(ctx, ListFilter{ProductType: ProductAntiparasitic}), 1)

	require.NoError(t, svc.Deactivate(ctx, p.ID))
	require.Len(t, svc.List(ctx, ListFilter{Species: "Chien", ActiveOnly: true}), 1)
}

func TestStatePersistsAcrossReload(t *testing.T) {
	store := kv.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	svc, err := NewService(ctx, store, logger)
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Name: "DHPP", Species: "Chien", ProductType: ProductVaccination, Intervals: []Interval{{0, "J0"}, {365, "1 an"}}})
	require.NoError(t, err)

	reloaded, err := NewService(ctx, store, logger)
	require.NoError(t, err)
	due, ok := reloaded.ResolveDueDate("DHPP", "Chien", mustDate(t, "2024-01-15"))
	require.True(t, ok)
	require.Equal(t, mustDate(t, "2025-01-15"), due)
}

func TestNormalizeDetectsNearMisses(t *testing.T) {
	// Exact matching treats these as different products even though a
	// normalized comparison would pair them; Normalize lets callers flag
	// the near-miss.
	require.Equal(t, Normalize("RAGE "), Normalize("rage"))
	require.Equal(t, Normalize("Félin"), Normalize("felin"))
	require.NotEqual(t, "Rage", "RAGE")
}
