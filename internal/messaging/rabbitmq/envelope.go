package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal/core/events"
)

// Envelope is the wire form of a work-order event.
type Envelope struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	OccurredAt   time.Time `json:"occurred_at"`
	WorkOrderID  string    `json:"work_order_id"`
	TechnicianID string    `json:"technician_id"`
	ActorID      string    `json:"actor_id"`
	FromStatus   string    `json:"from_status"`
	ToStatus     string    `json:"to_status"`
}

var ErrUnsupportedEvent = errors.New("event cannot be relayed")

func EnvelopeFrom(e events.Event) (Envelope, error) {
	wo, ok := e.(*events.WorkOrderEvent)
	if !ok {
		return Envelope{}, fmt.Errorf("%w: %T", ErrUnsupportedEvent, e)
	}
	return Envelope{
		ID:           wo.EventID(),
		Type:         wo.EventType(),
		OccurredAt:   wo.OccurredAt(),
		WorkOrderID:  wo.WorkOrderID,
		TechnicianID: wo.TechnicianID,
		ActorID:      wo.ActorID,
		FromStatus:   wo.FromStatus,
		ToStatus:     wo.ToStatus,
	}, nil
}

// Event rebuilds the in-process event, keeping the original id and time.
func (env Envelope) Event() *events.WorkOrderEvent {
	e := events.NewWorkOrderEvent(env.Type, env.WorkOrderID, env.TechnicianID, env.ActorID, env.FromStatus, env.ToStatus)
	e.ID = env.ID
	e.Timestamp = env.OccurredAt
	return e
}

func DecodeEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" || env.WorkOrderID == "" {
		return env, errors.New("decode envelope: type and work_order_id are required")
	}
	return env, nil
}
