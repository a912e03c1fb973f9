package models

import "time"

// Assignment - назначение фрилансера на оплаченный уровень шаблона.
// Уникальный индекс на (response, freelancer) - защита от дублей
// при конкурентных assign() на уровне хранилища, не в коде.
type Assignment struct {
	BaseModel
	ResponseID   string           `gorm:"not null;uniqueIndex:idx_assignment_response_freelancer"`
	FreelancerID string           `gorm:"not null;uniqueIndex:idx_assignment_response_freelancer;index"`
	Status       AssignmentStatus `gorm:"default:'pending';index"`
	Progress     float64          `gorm:"default:0"` // 0..100

	FreelancerPayout float64
	PlatformFee      float64

	AssignedAt  *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	// Relations
	Response *TemplateResponse `gorm:"foreignKey:ResponseID"`
}

// IsActive - назначение в одном из рабочих статусов
func (a *Assignment) IsActive() bool {
	for _, st := range ActiveAssignmentStatuses {
		if a.Status == st {
			return true
		}
	}
	return false
}

// CanTransitionTo - таблица допустимых переходов машины состояний
func (a *Assignment) CanTransitionTo(target AssignmentStatus) bool {
	allowed, ok := assignmentTransitions[a.Status]
	if !ok {
		return false
	}
	for _, st := range allowed {
		if st == target {
			return true
		}
	}
	return false
}

var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentStatusPending: {AssignmentStatusAssigned},
	AssignmentStatusAssigned: {
		AssignmentStatusInProgress,
		AssignmentStatusCancelled,
		AssignmentStatusDisputed,
	},
	AssignmentStatusInProgress: {
		AssignmentStatusReview,
		AssignmentStatusCompleted,
		AssignmentStatusCancelled,
		AssignmentStatusDisputed,
	},
	AssignmentStatusReview: {
		AssignmentStatusCompleted,
		AssignmentStatusInProgress,
		AssignmentStatusCancelled,
		AssignmentStatusDisputed,
	},
	AssignmentStatusCompleted: {},
	AssignmentStatusCancelled: {},
	AssignmentStatusDisputed:  {},
}
