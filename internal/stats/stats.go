package stats

import (
	"github.com/frahmantamala/tracker-workorders/internal/user"
	"github.com/frahmantamala/tracker-workorders/internal/workorder"
)

// Stats is the dashboard counter for the signed-in user.
type Stats struct {
	Role   user.Role        `json:"role"`
	Status workorder.Status `json:"status"`
	Count  int              `json:"count"`
	Cached bool             `json:"cached"`
}

const keyPrefix = "stats:"

// PendingKey caches a technician's pending queue size.
func PendingKey(technicianID string) string {
	return keyPrefix + "technician:" + technicianID + ":" + string(workorder.StatusPending)
}

// AwaitingSupportKey caches the back-office review queue size.
func AwaitingSupportKey() string {
	return keyPrefix + string(workorder.StatusAwaitingSupport)
}
