package complaints

import "time"

// Complaint lifecycle states.
const (
	StatusOpen     = "OPEN"
	StatusResolved = "RESOLVED"

	resolvedNote = "Resolved by admin"
)

// Complaint is a customer report about one delivered assignment.
type Complaint struct {
	ID           uint       `gorm:"column:id;primaryKey" json:"id"`
	UserID       uint       `gorm:"column:user_id;not null;index" json:"user_id"`
	AssignmentID uint       `gorm:"column:assignment_id;not null;index" json:"assignment_id"`
	Type         string     `gorm:"column:type;size:100;not null" json:"type"`
	Description  string     `gorm:"column:description;type:text;not null" json:"description"`
	Status       string     `gorm:"column:status;size:50;not null;default:OPEN;index" json:"status"`
	AdminNotes   *string    `gorm:"column:admin_notes;type:text" json:"admin_notes"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	ResolvedAt   *time.Time `gorm:"column:resolved_at" json:"resolved_at"`
}

// TableName exposes the complaint table.
func (Complaint) TableName() string {
	return "complaints"
}

// Submission is the customer-supplied complaint body.
type Submission struct {
	AssignmentID uint   `json:"assignment_id" binding:"required"`
	Type         string `json:"type" binding:"required"`
	Description  string `json:"description" binding:"required"`
}
