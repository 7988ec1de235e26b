package amqp

import (
	"encoding/json"
	"time"
)

// AlertDigestMessage carries the high-priority findings of one analysis
// run to the export worker. It is self-contained: the worker appends it to
// the spreadsheet without re-reading the database, so a digest reflects
// the snapshot that produced it even if records change afterwards.
type AlertDigestMessage struct {
	GeneratedAt   time.Time     `json:"generated_at"`
	HealthScore   int           `json:"health_score"`
	TotalIncome   float64       `json:"total_income"`
	TotalExpenses float64       `json:"total_expenses"`
	Alerts        []DigestAlert `json:"alerts"`
}

// DigestAlert is one Critical or Urgent finding within a digest.
type DigestAlert struct {
	Title          string  `json:"title"`
	Priority       string  `json:"priority"`
	Timeline       string  `json:"timeline"`
	ImpactEstimate float64 `json:"impact_estimate"`
}

// ToJSON converts the message to JSON bytes
func (m *AlertDigestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AlertDigestMessageFromJSON creates a message from JSON bytes
func AlertDigestMessageFromJSON(data []byte) (*AlertDigestMessage, error) {
	var msg AlertDigestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
