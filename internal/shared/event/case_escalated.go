package event

import "time"

const CaseEscalatedDestination string = "engine_case_escalated"

type CaseEscalatedMessage struct {
	CaseID     int64     `json:"case_id"`
	BusinessID int64     `json:"business_id"`
	CustomerID int64     `json:"customer_id"`
	FromLevel  int32     `json:"from_level"`
	ToLevel    int32     `json:"to_level"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
