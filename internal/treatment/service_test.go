package treatment

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vetoapp23/vetoapp/internal/platform/kv"
	"github.com/vetoapp23/vetoapp/internal/protocol"
	"github.com/vetoapp23/vetoapp/internal/stock"
)

type fakeProtocols struct {
	protocols map[uuid.UUID]protocol.Protocol
}

func (f *fakeProtocols) ByID(_ context.Context, id uuid.UUID) (protocol.Protocol, error) {
	p, ok := f.protocols[id]
	if !ok {
		return protocol.Protocol{}, protocol.ErrNotFound
	}
	return p, nil
}

func (f *fakeProtocols) ResolveDueDate(productName, species string, dateGiven time.Time) (time.Time, bool) {
	for _, p := range f.protocols {
		if !p.IsActive || p.Name != productName || p.Species != species || len(p.Intervals) == 0 {
			continue
		}
		last := p.Intervals[len(p.Intervals)-1]
		return dateGiven.AddDate(0, 0, last.OffsetDays), true
	}
	return time.Time{}, false
}

type fakeStock struct {
	result   stock.ReconcileResult
	err      error
	requests []stock.ReconcileRequest
}

func (f *fakeStock) Reconcile(_ context.Context, req stock.ReconcileRequest) (stock.ReconcileResult, error) {
	f.requests = append(f.requests, req)
	return f.result, f.err
}

func newTestService(t *testing.T, protocols *fakeProtocols, stockPort *fakeStock) (*Service, *kv.Memory) {
	t.Helper()
	if protocols == nil {
		protocols = &fakeProtocols{protocols: map[uuid.UUID]protocol.Protocol{}}
	}
	if stockPort == nil {
		stockPort = &fakeStock{}
	}
	store := kv.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewService(context.Background(), store, logger, protocols, stockPort)
	require.NoError(t, err)
	return svc, store
}

func dhppProtocol() protocol.Protocol {
	return protocol.Protocol{
		ID:          uuid.New(),
		Name:        "DHPP",
		Species:     "Chien",
		ProductType: protocol.ProductVaccination,
		Intervals: []protocol.Interval{
			{OffsetDays: 0, Label: "J0"},
			{OffsetDays: 21, Label: "Rappel"},
			{OffsetDays: 365, Label: "1 an"},
		},
		IsActive: true,
	}
}

func TestAddExpandsProtocolIntoReminderChain(t *testing.T) {
	p := dhppProtocol()
	protocols := &fakeProtocols{protocols: map[uuid.UUID]protocol.Protocol{p.ID: p}}
	stockPort := &fakeStock{}
	svc, _ := newTestService(t, protocols, stockPort)
	ctx := context.Background()

	given := day("2024-01-15")
	result, err := svc.Add(ctx, AddInput{
		Kind:        KindVaccination,
		PatientID:   uuid.New(),
		OwnerID:     uuid.New(),
		Species:     "Chien",
		DateGiven:   given,
		ProtocolIDs: []uuid.UUID{p.ID},
		Cost:        45,
	})
	require.NoError(t, err)
	require.Empty(t, result.Problems)
	require.Len(t, result.Created, 3)

	administered := result.Created[0]
	require.Equal(t, CategoryNew, administered.Category)
	require.Equal(t, StatusCompleted, administered.Status)
	require.Equal(t, "DHPP (J0)", administered.ProductName)
	require.Equal(t, given, administered.DateGiven)
	require.Equal(t, day("2025-01-15"), administered.NextDueDate)
	require.NotNil(t, administered.CalculatedDueDate)
	require.Equal(t, day("2025-01-15"), *administered.CalculatedDueDate)
	require.Equal(t, 45.0, administered.Cost)

	first := result.Created[1]
	require.Equal(t, CategoryReminder, first.Category)
	require.Equal(t, StatusScheduled, first.Status)
	require.Equal(t, "DHPP (Rappel)", first.ProductName)
	require.Equal(t, day("2024-02-05"), first.NextDueDate)
	require.NotNil(t, first.OriginalTreatmentID)
	require.Equal(t, administered.ID, *first.OriginalTreatmentID)

	second := result.Created[2]
	require.Equal(t, "DHPP (1 an)", second.ProductName)
	require.Equal(t, day("2025-01-15"), second.NextDueDate)
	require.Equal(t, administered.ID, *second.OriginalTreatmentID)

	// Only the administered dose touches inventory.
	require.Len(t, stockPort.requests, 1)
	require.Equal(t, "DHPP", stockPort.requests[0].ProductName)
	require.Equal(t, stock.CategoryVaccine, stockPort.requests[0].Category)
	require.Equal(t, 1, stockPort.requests[0].Quantity)
}

func TestAddCarriesStockOutcomeOntoRecord(t *testing.T) {
	p := dhppProtocol()
	itemID := uuid.New()
	protocols := &fakeProtocols{protocols: map[uuid.UUID]protocol.Protocol{p.ID: p}}
	stockPort := &fakeStock{result: stock.ReconcileResult{
		ItemID:        &itemID,
		IsInStock:     true,
		StockQuantity: 3,
		Deducted:      true,
	}}
	svc, _ := newTestService(t, protocols, stockPort)

	result, err := svc.Add(context.Background(), AddInput{
		Kind:        KindVaccination,
		PatientID:   uuid.New(),
		OwnerID:     uuid.New(),
		Species:     "Chien",
		DateGiven:   day("2024-01-15"),
		ProtocolIDs: []uuid.UUID{p.ID},
	})
	require.NoError(t, err)

	administered := result.Created[0]
	require.True(t, administered.StockDeducted)
	require.True(t, administered.IsInStock)
	require.Equal(t, 3, administered.StockQuantity)
	require.Equal(t, itemID, *administered.StockItemID)

	// Reminders never carry stock linkage.
	require.False(t, result.Created[1].StockDeducted)
	require.Nil(t, result.Created[1].StockItemID)
}

func TestAddReportsProblemPerProtocolAndContinues(t *testing.T) {
	good := dhppProtocol()
	empty := protocol.Protocol{
		ID: uuid.New(), Name: "Vide", Species: "Chien",
		ProductType: protocol.ProductVaccination, IsActive: true,
	}
	protocols := &fakeProtocols{protocols: map[uuid.UUID]protocol.Protocol{good.ID: good, empty.ID: empty}}
	svc, _ := newTestService(t, protocols, nil)

	result, err := svc.Add(context.Background(), AddInput{
		Kind:        KindVaccination,
		PatientID:   uuid.New(),
		OwnerID:     uuid.New(),
		Species:     "Chien",
		DateGiven:   day("2024-01-15"),
		ProtocolIDs: []uuid.UUID{empty.ID, good.ID, uuid.New()},
	})
	require.NoError(t, err)
	require.Len(t, result.Problems, 2)
	require.Len(t, result.Created, 3)
}

func TestAddDirectRecordWithoutProtocol(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	result, err := svc.Add(context.Background(), AddInput{
		Kind:        KindAntiparasitic,
		PatientID:   uuid.New(),
		OwnerID:     uuid.New(),
		DateGiven:   day("2024-03-01"),
		ProductName: "Frontline",
		NextDueDate: day("2024-06-01"),
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	rec := result.Created[0]
	require.Equal(t, CategoryNew, rec.Category)
	require.Equal(t, "Frontline", rec.ProductName)
	require.Equal(t, day("2024-06-01"), rec.NextDueDate)
	require.Nil(t, rec.CalculatedDueDate)
}

func TestAddDirectRecordRequiresDueDate(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.Add(context.Background(), AddInput{
		Kind:        KindAntiparasitic,
		PatientID:   uuid.New(),
		OwnerID:     uuid.New(),
		DateGiven:   day("2024-03-01"),
		ProductName: "Frontline",
	})
	require.Error(t, err)
}

func TestDeleteCascadesReminderChain(t *testing.T) {
	p := dhppProtocol()
	protocols := &fakeProtocols{protocols: map[uuid.UUID]protocol.Protocol{p.ID: p}}
	svc, _ := newTestService(t, protocols, nil)
	ctx := context.Background()

	result, err := svc.Add(ctx, AddInput{
		Kind:        KindVaccination,
		PatientID:   uuid.New(),
		OwnerID:     uuid.New(),
		Species:     "Chien",
		DateGiven:   day("2024-01-15"),
		ProtocolIDs: []uuid.UUID{p.ID},
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 3)

	require.NoError(t, svc.Delete(ctx, KindVaccination, result.Created[0].ID))

	recs, err := svc.ByKind(ctx, KindVaccination)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestDeleteReminderLeavesChainIntact(t *testing.T) {
	p := dhppProtocol()
	protocols := &fakeProtocols{protocols: map[uuid.UUID]protocol.Protocol{p.ID: p}}
	svc, _ := newTestService(t, protocols, nil)
	ctx := context.Background()

	result, err := svc.Add(ctx, AddInput{
		Kind:        KindVaccination,
		PatientID:   uuid.New(),
		OwnerID:     uuid.New(),
		Species:     "Chien",
		DateGiven:   day("2024-01-15"),
		ProtocolIDs: []uuid.UUID{p.ID},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, KindVaccination, result.Created[1].ID))

	recs, err := svc.ByKind(ctx, KindVaccination)
	require.NoError(t, err)
	require.Len(t, recs, 2)
}

func TestConfirmReminderDualWrite(t *testing.T) {
	p := dhppProtocol()
	protocols := &fakeProtocols{protocols: map[uuid.UUID]protocol.Protocol{p.ID: p}}
	svc, _ := newTestService(t, protocols, nil)
	ctx := context.Background()

	result, err := svc.Add(ctx, AddInput{
		Kind:        KindVaccination,
		PatientID:   uuid.New(),
		OwnerID:     uuid.New(),
		Species:     "Chien",
		DateGiven:   day("2024-01-15"),
		ProtocolIDs: []uuid.UUID{p.ID},
		Cost:        45,
	})
	require.NoError(t, err)
	reminder := result.Created[1]

	performed := day("2024-02-06")
	next := day("2025-02-06")
	history, err := svc.ConfirmReminder(ctx, KindVaccination, reminder.ID, ConfirmInput{
		DatePerformed:  performed,
		PerformedBy:    "dr.martin",
		BatchNumber:    "L-42",
		NewNextDueDate: &next,
	})
	require.NoError(t, err)
	require.Equal(t, CategoryReminder, history.Category)
	require.Equal(t, StatusCompleted, history.Status)
	require.Equal(t, reminder.ID, *history.OriginalTreatmentID)
	require.Equal(t, reminder.ProductName, history.ProductName)
	require.Equal(t, performed, history.DateGiven)
	require.Equal(t, next, history.NextDueDate)

	confirmed, err := svc.ByID(ctx, KindVaccination, reminder.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, confirmed.Status)
	require.Nil(t, confirmed.AppointmentID)

	// Both halves already completed: confirming again must fail without
	// creating more history.
	_, err = svc.ConfirmReminder(ctx, KindVaccination, reminder.ID, ConfirmInput{DatePerformed: performed})
	require.ErrorIs(t, err, ErrAlreadyCompleted)

	recs, err := svc.ByKind(ctx, KindVaccination)
	require.NoError(t, err)
	require.Len(t, recs, 4)
}

func TestConfirmReminderRejectsAdministeredRecord(t *testing.T) {
	p := dhppProtocol()
	protocols := &fakeProtocols{protocols: map[uuid.UUID]protocol.Protocol{p.ID: p}}
	svc, _ := newTestService(t, protocols, nil)
	ctx := context.Background()

	result, err := svc.Add(ctx, AddInput{
		Kind:        KindVaccination,
		PatientID:   uuid.New(),
		OwnerID:     uuid.New(),
		Species:     "Chien",
		DateGiven:   day("2024-01-15"),
		ProtocolIDs: []uuid.UUID{p.ID},
	})
	require.NoError(t, err)

	_, err = svc.ConfirmReminder(ctx, KindVaccination, result.Created[0].ID, ConfirmInput{DatePerformed: day("2024-02-06")})
	require.ErrorIs(t, err, ErrNotReminder)
}

func TestUpdatePreservesCalculatedDueDate(t *testing.T) {
	p := dhppProtocol()
	protocols := &fakeProtocols{protocols: map[uuid.UUID]protocol.Protocol{p.ID: p}}
	svc, _ := newTestService(t, protocols, nil)
	ctx := context.Background()

	result, err := svc.Add(ctx, AddInput{
		Kind:        KindVaccination,
		PatientID:   uuid.New(),
		OwnerID:     uuid.New(),
		Species:     "Chien",
		DateGiven:   day("2024-01-15"),
		ProtocolIDs: []uuid.UUID{p.ID},
	})
	require.NoError(t, err)
	rec := result.Created[2]
	require.NotNil(t, rec.CalculatedDueDate)
	suggested := *rec.CalculatedDueDate

	manual := day("2025-03-01")
	updated, err := svc.Update(ctx, KindVaccination, rec.ID, UpdateInput{NextDueDate: &manual})
	require.NoError(t, err)
	require.Equal(t, manual, updated.NextDueDate)
	require.NotNil(t, updated.CalculatedDueDate)
	require.Equal(t, suggested, *updated.CalculatedDueDate)
}

func TestQueriesSweepOnRead(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	svc.now = func() time.Time { return day("2024-06-01") }
	ctx := context.Background()
	patientID := uuid.New()

	result, err := svc.Add(ctx, AddInput{
		Kind:        KindVaccination,
		PatientID:   patientID,
		OwnerID:     uuid.New(),
		DateGiven:   day("2024-01-01"),
		ProductName: "Rage",
		NextDueDate: day("2024-02-01"),
	})
	require.NoError(t, err)
	rec := result.Created[0]

	// Administered records are terminal; force a pending state to observe
	// the sweep.
	scheduled := StatusScheduled
	_, err = svc.Update(ctx, KindVaccination, rec.ID, UpdateInput{Status: &scheduled})
	require.NoError(t, err)

	overdue, err := svc.Overdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	require.Equal(t, rec.ID, overdue[0].ID)

	byPatient, err := svc.ByPatient(ctx, patientID)
	require.NoError(t, err)
	require.Len(t, byPatient, 1)
	require.Equal(t, StatusOverdue, byPatient[0].Status)
}

func TestSweepNeverTouchesCompleted(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	svc.now = func() time.Time { return day("2024-06-01") }
	ctx := context.Background()

	result, err := svc.Add(ctx, AddInput{
		Kind:        KindVaccination,
		PatientID:   uuid.New(),
		OwnerID:     uuid.New(),
		DateGiven:   day("2024-01-01"),
		ProductName: "Rage",
		NextDueDate: day("2024-02-01"),
	})
	require.NoError(t, err)
	rec := result.Created[0]
	require.Equal(t, StatusCompleted, rec.Status)

	require.NoError(t, svc.Sweep(ctx))
	got, err := svc.ByID(ctx, KindVaccination, rec.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
}

func TestUpcomingWindow(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	svc.now = func() time.Time { return day("2024-06-01") }
	ctx := context.Background()

	add := func(due string) Record {
		result, err := svc.Add(ctx, AddInput{
			Kind:        KindAntiparasitic,
			PatientID:   uuid.New(),
			OwnerID:     uuid.New(),
			DateGiven:   day("2024-01-01"),
			ProductName: "Milbemax",
			NextDueDate: day(due),
		})
		require.NoError(t, err)
		rec := result.Created[0]
		scheduled := StatusScheduled
		_, err = svc.Update(ctx, KindAntiparasitic, rec.ID, UpdateInput{Status: &scheduled})
		require.NoError(t, err)
		return rec
	}
	inWindow := add("2024-06-05")
	add("2024-08-01")
	add("2024-05-01") // already overdue, not upcoming

	upcoming, err := svc.Upcoming(ctx, 7)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	require.Equal(t, inWindow.ID, upcoming[0].ID)
}

func TestRecordsPersistAcrossReload(t *testing.T) {
	p := dhppProtocol()
	protocols := &fakeProtocols{protocols: map[uuid.UUID]protocol.Protocol{p.ID: p}}
	svc, store := newTestService(t, protocols, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, AddInput{
		Kind:        KindVaccination,
		PatientID:   uuid.New(),
		OwnerID:     uuid.New(),
		Species:     "Chien",
		DateGiven:   day("2024-01-15"),
		ProtocolIDs: []uuid.UUID{p.ID},
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reloaded, err := NewService(ctx, store, logger, protocols, &fakeStock{})
	require.NoError(t, err)
	recs, err := reloaded.ByKind(ctx, KindVaccination)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for _, r := range recs {
		require.Equal(t, KindVaccination, r.Kind)
	}
}
