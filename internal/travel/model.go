package travel

import "time"

// Destination models a named travel location that owns knowledge-base notes.
type Destination struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;size:255;not null;uniqueIndex:idx_destinations_name"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`

	Notes []Note `gorm:"foreignKey:DestinationID;constraint:OnDelete:CASCADE"`
}

// TableName provides the explicit table binding for GORM.
func (Destination) TableName() string {
	return "destinations"
}

// Note is a free-text knowledge-base entry attached to a destination.
type Note struct {
	ID            uint      `gorm:"column:id;primaryKey"`
	DestinationID uint      `gorm:"column:destination_id;not null;index:idx_knowledge_base_destination"`
	Content       string    `gorm:"column:content;type:text;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "knowledge_base"
}
