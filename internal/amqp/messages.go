package amqp

import (
	"encoding/json"
	"time"
)

// PlanRefreshMessage tells the planner worker that stored financial data
// changed and cached plans plus the forecast snapshot are stale.
// Contains only the entity and ID, the worker reloads from the database.
type PlanRefreshMessage struct {
	Entity    string    `json:"entity"`
	ID        int64     `json:"id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPlanRefreshMessage creates a refresh message for one changed record
func NewPlanRefreshMessage(entity string, id int64, reason string) *PlanRefreshMessage {
	return &PlanRefreshMessage{
		Entity:    entity,
		ID:        id,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PlanRefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PlanRefreshMessageFromJSON creates a message from JSON bytes
func PlanRefreshMessageFromJSON(data []byte) (*PlanRefreshMessage, error) {
	var msg PlanRefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
