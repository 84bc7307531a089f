package accounting

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vetoapp23/vetoapp/internal/platform/kv"
)

type fakeSource struct {
	events []Event
}

func (f *fakeSource) AccountingEvents(context.Context) ([]Event, error) {
	return f.events, nil
}

func newTestService(t *testing.T, sources ...Source) (*Service, *kv.Memory) {
	t.Helper()
	store := kv.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewService(context.Background(), store, logger, sources...)
	require.NoError(t, err)
	return svc, store
}

func TestDerivePersistsOnlyNewEntries(t *testing.T) {
	src := &fakeSource{events: []Event{
		{Source: SourceConsultation, SourceID: uuid.New(), Type: EntryRevenue, Date: day("2024-06-01"), Amount: 50, Description: "Consultation"},
		{Source: SourceStockPurchase, SourceID: uuid.New(), Type: EntryExpense, Date: day("2024-06-03"), Amount: 120, Description: "Achat vaccins"},
	}}
	svc, store := newTestService(t, src)
	ctx := context.Background()

	created, err := svc.Derive(ctx, day("2024-06-01"), day("2024-06-30"))
	require.NoError(t, err)
	require.Len(t, created, 2)

	// Same events again: nothing new, ledger unchanged.
	created, err = svc.Derive(ctx, day("2024-06-01"), day("2024-06-30"))
	require.NoError(t, err)
	require.Empty(t, created)
	require.Len(t, svc.Entries(ctx, day("2024-06-01"), day("2024-06-30")), 2)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reloaded, err := NewService(ctx, store, logger, src)
	require.NoError(t, err)
	created, err = reloaded.Derive(ctx, day("2024-06-01"), day("2024-06-30"))
	require.NoError(t, err)
	require.Empty(t, created)
}

func TestManualEntryLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.AddManualEntry(ctx, ManualEntryInput{
		Type:        EntryExpense,
		Description: "Loyer",
		Amount:      800,
		Date:        day("2024-06-01"),
		Frequency:   "monthly",
	})
	require.NoError(t, err)
	require.Equal(t, CategoryManual, entry.Category)

	amount := 850.0
	updated, err := svc.UpdateManualEntry(ctx, entry.ID, UpdateManualInput{Amount: &amount})
	require.NoError(t, err)
	require.Equal(t, 850.0, updated.Amount)

	require.NoError(t, svc.DeleteManualEntry(ctx, entry.ID))
	require.ErrorIs(t, svc.DeleteManualEntry(ctx, entry.ID), ErrNotFound)
}

func TestManualEntryValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddManualEntry(context.Background(), ManualEntryInput{
		Type: EntryExpense, Description: "Loyer", Amount: -1, Date: day("2024-06-01"),
	})
	require.Error(t, err)

	_, err = svc.AddManualEntry(context.Background(), ManualEntryInput{
		Type: "transfer", Description: "Loyer", Amount: 10, Date: day("2024-06-01"),
	})
	require.Error(t, err)
}

func TestAutomaticEntriesAreReadOnly(t *testing.T) {
	src := &fakeSource{events: []Event{
		{Source: SourceConsultation, SourceID: uuid.New(), Type: EntryRevenue, Date: day("2024-06-01"), Amount: 50},
	}}
	svc, _ := newTestService(t, src)
	ctx := context.Background()

	created, err := svc.Derive(ctx, day("2024-06-01"), day("2024-06-30"))
	require.NoError(t, err)
	require.Len(t, created, 1)

	amount := 99.0
	_, err = svc.UpdateManualEntry(ctx, created[0].ID, UpdateManualInput{Amount: &amount})
	require.ErrorIs(t, err, ErrNotManual)
	require.ErrorIs(t, svc.DeleteManualEntry(ctx, created[0].ID), ErrNotManual)
}

func TestGenerateSummaryBucketsBySource(t *testing.T) {
	src := &fakeSource{events: []Event{
		{Source: SourceConsultation, SourceID: uuid.New(), Type: EntryRevenue, Date: day("2024-06-01"), Amount: 50},
		{Source: SourceVaccination, SourceID: uuid.New(), Type: EntryRevenue, Date: day("2024-06-02"), Amount: 45},
		{Source: SourceStockPurchase, SourceID: uuid.New(), Type: EntryExpense, Date: day("2024-06-03"), Amount: 120},
	}}
	svc, _ := newTestService(t, src)
	ctx := context.Background()

	_, err := svc.AddManualEntry(ctx, ManualEntryInput{
		Type: EntryExpense, Description: "Loyer", Amount: 800, Date: day("2024-06-05"),
	})
	require.NoError(t, err)

	summary, err := svc.GenerateSummary(ctx, "2024-06", day("2024-06-01"), day("2024-06-30"))
	require.NoError(t, err)
	require.Equal(t, 95.0, summary.TotalRevenue)
	require.Equal(t, 920.0, summary.TotalExpenses)
	require.Equal(t, -825.0, summary.NetIncome)
	require.Equal(t, 50.0, summary.RevenueBySource[SourceConsultation])
	require.Equal(t, 45.0, summary.RevenueBySource[SourceVaccination])
	require.Equal(t, 120.0, summary.ExpensesBySource[SourceStockPurchase])
	require.Equal(t, 800.0, summary.ExpensesBySource["manual"])
}

func TestRegisterSourceFeedsDerivation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Derive(ctx, day("2024-06-01"), day("2024-06-30"))
	require.NoError(t, err)
	require.Empty(t, created)

	svc.RegisterSource(&fakeSource{events: []Event{
		{Source: SourceAntiparasitic, SourceID: uuid.New(), Type: EntryRevenue, Date: day("2024-06-10"), Amount: 25},
	}})
	created, err = svc.Derive(ctx, day("2024-06-01"), day("2024-06-30"))
	require.NoError(t, err)
	require.Len(t, created, 1)
}
