package models

import "gorm.io/datatypes"

// Notification - запись для best-effort уведомлений.
// Создание уведомления никогда не блокирует и не роняет
// вызвавшую транзакцию.
type Notification struct {
	BaseModel
	FreelancerID string `gorm:"not null;index"`
	Type         string `gorm:"not null"`
	Title        string `gorm:"not null"`
	Message      string
	Data         datatypes.JSON `gorm:"type:jsonb"`
	IsRead       bool           `gorm:"default:false"`
}

const (
	NotificationTypeAssigned           = "assignment_created"
	NotificationTypeAssignmentStarted  = "assignment_started"
	NotificationTypeAssignmentComplete = "assignment_completed"
	NotificationTypeEligibilityChanged = "eligibility_recalculated"
	NotificationTypeMilestoneDeadlines = "milestone_deadlines_set"
)
