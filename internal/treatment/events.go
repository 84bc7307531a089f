package treatment

import (
	"context"

	"github.com/vetoapp23/vetoapp/internal/accounting"
)

var eventSources = map[Kind]string{
	KindVaccination:   accounting.SourceVaccination,
	KindAntiparasitic: accounting.SourceAntiparasitic,
}

// AccountingEvents exposes completed administrations with a cost as revenue
// events, keyed by record ID.
func (s *Service) AccountingEvents(ctx context.Context) ([]accounting.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []accounting.Event
	for kind, recs := range s.records {
		for _, r := range recs {
			if r.Status != StatusCompleted || r.Cost <= 0 {
				continue
			}
			events = append(events, accounting.Event{
				Source:      eventSources[kind],
				SourceID:    r.ID,
				Type:        accounting.EntryRevenue,
				Date:        r.DateGiven,
				Amount:      r.Cost,
				Description: string(kind) + ": " + r.ProductName,
			})
		}
	}
	return events, nil
}
