package accounting

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func day(value string) time.Time {
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDeriveEntriesIsIdempotent(t *testing.T) {
	now := day("2024-06-15")
	events := []Event{
		{Source: SourceConsultation, SourceID: uuid.New(), Type: EntryRevenue, Date: day("2024-06-01"), Amount: 50, Description: "Consultation"},
		{Source: SourceVaccination, SourceID: uuid.New(), Type: EntryRevenue, Date: day("2024-06-02"), Amount: 45, Description: "Vaccin DHPP"},
	}

	first := DeriveEntries(events, nil, day("2024-06-01"), day("2024-06-30"), now)
	require.Len(t, first, 2)
	for _, e := range first {
		require.Equal(t, CategoryAutomatic, e.Category)
	}

	second := DeriveEntries(events, first, day("2024-06-01"), day("2024-06-30"), now)
	require.Empty(t, second)
}

func TestDeriveEntriesDedupesBySourcePair(t *testing.T) {
	id := uuid.New()
	now := day("2024-06-15")
	events := []Event{
		{Source: SourceConsultation, SourceID: id, Type: EntryRevenue, Date: day("2024-06-01"), Amount: 50},
		{Source: SourcePrescription, SourceID: id, Type: EntryRevenue, Date: day("2024-06-01"), Amount: 30},
	}

	// Same ID under two different sources is two distinct entries.
	out := DeriveEntries(events, nil, day("2024-06-01"), day("2024-06-30"), now)
	require.Len(t, out, 2)

	// A duplicated event in the same batch collapses to one entry.
	dup := append(events, events[0])
	out = DeriveEntries(dup, nil, day("2024-06-01"), day("2024-06-30"), now)
	require.Len(t, out, 2)
}

func TestDeriveEntriesSkipsZeroAndNegativeAmounts(t *testing.T) {
	now := day("2024-06-15")
	events := []Event{
		{Source: SourceConsultation, SourceID: uuid.New(), Type: EntryRevenue, Date: day("2024-06-01"), Amount: 0},
		{Source: SourceConsultation, SourceID: uuid.New(), Type: EntryRevenue, Date: day("2024-06-01"), Amount: -10},
		{Source: SourceConsultation, SourceID: uuid.New(), Type: EntryRevenue, Date: day("2024-06-01"), Amount: 10},
	}
	out := DeriveEntries(events, nil, day("2024-06-01"), day("2024-06-30"), now)
	require.Len(t, out, 1)
	require.Equal(t, 10.0, out[0].Amount)
}

func TestDeriveEntriesHonorsRange(t *testing.T) {
	now := day("2024-06-15")
	events := []Event{
		{Source: SourceConsultation, SourceID: uuid.New(), Type: EntryRevenue, Date: day("2024-05-31"), Amount: 10},
		{Source: SourceConsultation, SourceID: uuid.New(), Type: EntryRevenue, Date: day("2024-06-01"), Amount: 20},
		{Source: SourceConsultation, SourceID: uuid.New(), Type: EntryRevenue, Date: day("2024-06-30"), Amount: 30},
		{Source: SourceConsultation, SourceID: uuid.New(), Type: EntryRevenue, Date: day("2024-07-01"), Amount: 40},
	}
	out := DeriveEntries(events, nil, day("2024-06-01"), day("2024-06-30"), now)
	require.Len(t, out, 2)
	require.Equal(t, 20.0, out[0].Amount)
	require.Equal(t, 30.0, out[1].Amount)
}

func TestDeriveEntriesIgnoresManualEntriesForDedup(t *testing.T) {
	id := uuid.New()
	now := day("2024-06-15")
	manual := []Entry{{
		ID:       uuid.New(),
		Type:     EntryRevenue,
		Category: CategoryManual,
		Source:   SourceConsultation,
		SourceID: id,
		Amount:   50,
		Date:     day("2024-06-01"),
	}}
	events := []Event{
		{Source: SourceConsultation, SourceID: id, Type: EntryRevenue, Date: day("2024-06-01"), Amount: 50},
	}
	out := DeriveEntries(events, manual, day("2024-06-01"), day("2024-06-30"), now)
	require.Len(t, out, 1)
}
