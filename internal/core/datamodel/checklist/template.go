package checklist

import "time"

// Template is keyed by vehicle category; one row per category.
type Template struct {
	VehicleCategory string    `gorm:"column:vehicle_category;primaryKey"`
	Items           []string  `gorm:"column:items;serializer:json;type:jsonb;not null"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Template) TableName() string {
	return "checklist_templates"
}
