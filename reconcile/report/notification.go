package report

import (
	"fmt"
	"time"
)

// Notification is the payload handed to a notifier. Sending it is up to the
// caller.
type Notification struct {
	Subject         string  `json:"subject"`
	Body            string  `json:"body"`
	MatchPercentage float64 `json:"matchPercentage"`
	Left            string  `json:"left"`
	Right           string  `json:"right"`
}

// Notification builds the notifier payload for a report generated at the
// given time. The body is the text report.
func (r Report) Notification(generatedAt time.Time) Notification {
	left, right := r.Left.Label(), r.Right.Label()
	return Notification{
		Subject: fmt.Sprintf(
			"TableMigrationCheck Results: %s vs %s - %s",
			left,
			right,
			generatedAt.UTC().Format(time.RFC3339),
		),
		Body:            r.Text(),
		MatchPercentage: r.Summary.MatchPercentage,
		Left:            left,
		Right:           right,
	}
}
