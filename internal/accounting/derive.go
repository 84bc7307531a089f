package accounting

import (
	"time"

	"github.com/google/uuid"
)

type dedupKey struct {
	source   string
	sourceID uuid.UUID
}

// DeriveEntries emits one automatic entry per event inside the range that
// has no existing automatic entry with the same (source, sourceID) pair.
// Pure function: re-running it over an unchanged event set yields nothing.
func DeriveEntries(events []Event, existing []Entry, from, to time.Time, now time.Time) []Entry {
	seen := make(map[dedupKey]struct{}, len(existing))
	for _, e := range existing {
		if e.Category != CategoryAutomatic {
			continue
		}
		seen[dedupKey{e.Source, e.SourceID}] = struct{}{}
	}

	var out []Entry
	for _, ev := range events {
		if ev.Amount <= 0 {
			continue
		}
		if ev.Date.Before(from) || ev.Date.After(to) {
			continue
		}
		key := dedupKey{ev.Source, ev.SourceID}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Entry{
			ID:          uuid.New(),
			Type:        ev.Type,
			Category:    CategoryAutomatic,
			Description: ev.Description,
			Amount:      ev.Amount,
			Date:        ev.Date,
			Source:      ev.Source,
			SourceID:    ev.SourceID,
			CreatedAt:   now,
		})
	}
	return out
}
