package models

// Counts tallies reminders by status
type Counts struct {
	Pending   int `json:"pending"`
	Snoozed   int `json:"snoozed"`
	Notified  int `json:"notified"`
	Completed int `json:"completed"`
	Dismissed int `json:"dismissed"`
	Total     int `json:"total"`
	Active    int `json:"active"`
	Archived  int `json:"archived"`
}

// ComputeCounts tallies reminders by status. Unknown statuses count toward Total only.
func ComputeCounts(reminders []*Reminder) Counts {
	c := Counts{Total: len(reminders)}
	for _, r := range reminders {
		switch r.Status {
		case StatusPending:
			c.Pending++
		case StatusSnoozed:
			c.Snoozed++
		case StatusNotified:
			c.Notified++
		case StatusCompleted:
			c.Completed++
		case StatusDismissed:
			c.Dismissed++
		}
	}
	c.Active = c.Pending + c.Snoozed + c.Notified
	c.Archived = c.Completed + c.Dismissed
	return c
}
