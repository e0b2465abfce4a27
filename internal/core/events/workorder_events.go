package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeWorkOrderCreated        = "workorder.created"
	EventTypeWorkOrderStarted        = "workorder.started"
	EventTypeWorkOrderFieldCompleted = "workorder.field_completed"
	EventTypeWorkOrderFinalized      = "workorder.finalized"
)

// WorkOrderEventTypes lists every status-change event, in workflow order.
var WorkOrderEventTypes = []string{
	EventTypeWorkOrderCreated,
	EventTypeWorkOrderStarted,
	EventTypeWorkOrderFieldCompleted,
	EventTypeWorkOrderFinalized,
}

// WorkOrderEvent records one accepted status transition.
type WorkOrderEvent struct {
	BaseEvent
	WorkOrderID  string `json:"work_order_id"`
	TechnicianID string `json:"technician_id"`
	ActorID      string `json:"actor_id"`
	FromStatus   string `json:"from_status"`
	ToStatus     string `json:"to_status"`
}

func NewWorkOrderEvent(eventType, workOrderID, technicianID, actorID, from, to string) *WorkOrderEvent {
	return &WorkOrderEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"work_order_id": workOrderID,
				"technician_id": technicianID,
				"actor_id":      actorID,
				"from_status":   from,
				"to_status":     to,
			},
		},
		WorkOrderID:  workOrderID,
		TechnicianID: technicianID,
		ActorID:      actorID,
		FromStatus:   from,
		ToStatus:     to,
	}
}

// TechnicianOf extracts the assignee from any event carrying one in its payload.
func TechnicianOf(e Event) string {
	if wo, ok := e.(*WorkOrderEvent); ok {
		return wo.TechnicianID
	}
	if data, ok := e.Payload().(map[string]interface{}); ok {
		if id, ok := data["technician_id"].(string); ok {
			return id
		}
	}
	return ""
}
