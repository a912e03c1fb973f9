package handlers

import (
	"obsp_backend/internal/services"
)

// AppHandlers - все HTTP-handlers приложения
type AppHandlers struct {
	Templates     *TemplateHandler
	Criteria      *CriteriaHandler
	Eligibility   *EligibilityHandler
	Assignments   *AssignmentHandler
	Milestones    *MilestoneHandler
	Notifications *NotificationHandler
}

func NewAppHandlers(sc *services.ServiceContainer) *AppHandlers {
	return &AppHandlers{
		Templates:     NewTemplateHandler(sc.Templates),
		Criteria:      NewCriteriaHandler(sc.Criteria),
		Eligibility:   NewEligibilityHandler(sc.Eligibility),
		Assignments:   NewAssignmentHandler(sc.Assignments),
		Milestones:    NewMilestoneHandler(sc.Milestones),
		Notifications: NewNotificationHandler(sc.Notifications),
	}
}
