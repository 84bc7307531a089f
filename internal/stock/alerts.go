package stock

import (
	"fmt"
	"time"
)

// expiryWarningWindow is how far ahead expiration warnings look.
const expiryWarningWindow = 30 * 24 * time.Hour

// ComputeAlerts derives the alert set for a list of items at a point in
// time. Pure function: the result depends only on its arguments.
func ComputeAlerts(items []Item, today time.Time) []Alert {
	var alerts []Alert
	for _, item := range items {
		if !item.IsActive {
			continue
		}
		if item.CurrentStock <= item.MinimumStock {
			severity := SeverityHigh
			if item.CurrentStock == 0 {
				severity = SeverityCritical
			}
			alerts = append(alerts, Alert{
				ItemID:   item.ID,
				ItemName: item.Name,
				Type:     AlertLowStock,
				Severity: severity,
				Message:  fmt.Sprintf("%s: %d left (minimum %d)", item.Name, item.CurrentStock, item.MinimumStock),
			})
		}
		if item.ExpirationDate == nil {
			continue
		}
		exp := *item.ExpirationDate
		switch {
		case exp.Before(today):
			alerts = append(alerts, Alert{
				ItemID:   item.ID,
				ItemName: item.Name,
				Type:     AlertExpired,
				Severity: SeverityCritical,
				Message:  fmt.Sprintf("%s expired on %s", item.Name, exp.Format(time.DateOnly)),
			})
		case exp.Before(today.Add(expiryWarningWindow)):
			alerts = append(alerts, Alert{
				ItemID:   item.ID,
				ItemName: item.Name,
				Type:     AlertExpiringSoon,
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("%s expires on %s", item.Name, exp.Format(time.DateOnly)),
			})
		}
	}
	return alerts
}

// Alerts derives the current alert set from the live ledger.
func (s *Service) Alerts() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ComputeAlerts(s.items, s.now())
}
