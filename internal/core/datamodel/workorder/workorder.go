package workorder

import "time"

type WorkOrder struct {
	ID                 string            `gorm:"column:id;primaryKey;type:uuid"`
	ClientName         string            `gorm:"column:client_name;not null"`
	ClientAddress      string            `gorm:"column:client_address;not null"`
	VehicleModel       string            `gorm:"column:vehicle_model;not null"`
	VehiclePlate       string            `gorm:"column:vehicle_plate;index;not null"`
	VehicleCategory    string            `gorm:"column:vehicle_category;not null"`
	ServiceType        string            `gorm:"column:service_type;not null"`
	TrackerTypes       []string          `gorm:"column:tracker_types;serializer:json;type:jsonb"`
	CameraCount        int               `gorm:"column:camera_count"`
	ProblemDescription string            `gorm:"column:problem_description"`
	TechnicianID       string            `gorm:"column:technician_id;type:uuid;index;not null"`
	TechnicianName     string            `gorm:"column:technician_name"`
	CreatedByID        string            `gorm:"column:created_by_id;type:uuid;not null"`
	Status             string            `gorm:"column:status;index;not null"`
	TrackerSerialID    string            `gorm:"column:tracker_serial_id"`
	ChecklistResponses map[string]string `gorm:"column:checklist_responses;serializer:json;type:jsonb"`
	Notes              string            `gorm:"column:notes"`
	LockInstalled      bool              `gorm:"column:lock_installed"`
	PhotoRefs          map[string]string `gorm:"column:photo_refs;serializer:json;type:jsonb"`
	SignatureRefs      map[string]string `gorm:"column:signature_refs;serializer:json;type:jsonb"`
	FinalizedAt        *time.Time        `gorm:"column:finalized_at;index"`
	ClosedAt           *time.Time        `gorm:"column:closed_at"`
	CreatedAt          time.Time         `gorm:"column:created_at;index"`
	UpdatedAt          time.Time         `gorm:"column:updated_at"`
}

func (WorkOrder) TableName() string {
	return "work_orders"
}

// History is one accepted status transition. Creation is stored with an empty FromStatus.
type History struct {
	ID          string    `gorm:"column:id;primaryKey;type:uuid"`
	WorkOrderID string    `gorm:"column:work_order_id;type:uuid;index;not null"`
	FromStatus  string    `gorm:"column:from_status"`
	ToStatus    string    `gorm:"column:to_status;not null"`
	ActorID     string    `gorm:"column:actor_id;type:uuid;not null"`
	OccurredAt  time.Time `gorm:"column:occurred_at;not null"`
}

func (History) TableName() string {
	return "work_order_history"
}
