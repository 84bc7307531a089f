package treatment

import "time"

// SweepStatuses reclassifies non-terminal records as scheduled or overdue
// based on their next due date. Completed records are terminal and pass
// through untouched. Pure function over a copy of the input.
func SweepStatuses(records []Record, today time.Time) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	for i := range out {
		out[i] = sweepOne(out[i], today)
	}
	return out
}

func sweepOne(r Record, today time.Time) Record {
	if r.Status == StatusCompleted {
		return r
	}
	due := dateOnly(r.NextDueDate)
	day := dateOnly(today)
	if due.Before(day) {
		r.Status = StatusOverdue
	} else {
		r.Status = StatusScheduled
	}
	return r
}

// dateOnly truncates a timestamp to its calendar date in UTC. Due dates are
// calendar dates; an appointment at 09:00 is not overdue at 10:00 the same
// day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
