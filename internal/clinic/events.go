package clinic

import (
	"context"

	"github.com/vetoapp23/vetoapp/internal/accounting"
)

// AccountingEvents exposes consultations and prescriptions as revenue
// events. Prescription amounts are the sum of line cost times quantity.
func (s *Service) AccountingEvents(ctx context.Context) ([]accounting.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []accounting.Event
	for _, c := range s.consultations {
		events = append(events, accounting.Event{
			Source:      accounting.SourceConsultation,
			SourceID:    c.ID,
			Type:        accounting.EntryRevenue,
			Date:        c.Date,
			Amount:      c.Cost,
			Description: "Consultation: " + c.Reason,
		})
	}
	for _, p := range s.prescriptions {
		events = append(events, accounting.Event{
			Source:      accounting.SourcePrescription,
			SourceID:    p.ID,
			Type:        accounting.EntryRevenue,
			Date:        p.Date,
			Amount:      p.Total(),
			Description: "Prescription",
		})
	}
	return events, nil
}
