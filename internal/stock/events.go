package stock

import (
	"context"

	"github.com/vetoapp23/vetoapp/internal/accounting"
)

// AccountingEvents exposes purchase movements as expense events. Each
// inbound purchase movement yields one event keyed by the movement ID, so
// repeated derivation never duplicates an entry.
func (s *Service) AccountingEvents(ctx context.Context) ([]accounting.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices := make(map[string]float64, len(s.items))
	names := make(map[string]string, len(s.items))
	for _, item := range s.items {
		prices[item.ID.String()] = item.PurchasePrice
		names[item.ID.String()] = item.Name
	}

	var events []accounting.Event
	for _, m := range s.movements {
		if m.Type != MovementIn || m.Reason != ReasonPurchase {
			continue
		}
		price := prices[m.ItemID.String()]
		if price <= 0 {
			continue
		}
		events = append(events, accounting.Event{
			Source:      accounting.SourceStockPurchase,
			SourceID:    m.ID,
			Type:        accounting.EntryExpense,
			Date:        m.Date,
			Amount:      float64(m.Quantity) * price,
			Description: "Stock purchase: " + names[m.ItemID.String()],
		})
	}
	return events, nil
}
