package models

type TierLevel string
type TemplateStatus string
type ResponseStatus string
type AssignmentStatus string
type MilestoneStatus string
type DeadlineType string
type ProjectStatus string
type FeedbackSource string

const (
	TierEasy   TierLevel = "easy"
	TierMedium TierLevel = "medium"
	TierHard   TierLevel = "hard"

	TemplateStatusDraft     TemplateStatus = "draft"
	TemplateStatusPublished TemplateStatus = "published"
	TemplateStatusArchived  TemplateStatus = "archived"

	ResponseStatusPending    ResponseStatus = "pending"
	ResponseStatusProcessing ResponseStatus = "processing"
	ResponseStatusCompleted  ResponseStatus = "completed"
	ResponseStatusCancelled  ResponseStatus = "cancelled"

	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusAssigned   AssignmentStatus = "assigned"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusReview     AssignmentStatus = "review"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusCancelled  AssignmentStatus = "cancelled"
	AssignmentStatusDisputed   AssignmentStatus = "disputed"

	MilestoneStatusPending    MilestoneStatus = "pending"
	MilestoneStatusInProgress MilestoneStatus = "in_progress"
	MilestoneStatusCompleted  MilestoneStatus = "completed"

	DeadlineTypeDefault  DeadlineType = "default"
	DeadlineTypeExtended DeadlineType = "extended"
	DeadlineTypeCustom   DeadlineType = "custom"

	ProjectStatusOngoing   ProjectStatus = "ongoing"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"

	FeedbackSourceClient   FeedbackSource = "client"
	FeedbackSourcePlatform FeedbackSource = "platform"
)

// AllTiers - порядок уровней фиксирован: от простого к сложному
var AllTiers = []TierLevel{TierEasy, TierMedium, TierHard}

// ActiveAssignmentStatuses - статусы, в которых назначение считается "активным"
var ActiveAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusAssigned,
	AssignmentStatusInProgress,
	AssignmentStatusReview,
}

// PriorTier возвращает предыдущий уровень (для гейта по prior-tier completions).
// У easy предыдущего уровня нет.
func (t TierLevel) PriorTier() (TierLevel, bool) {
	switch t {
	case TierMedium:
		return TierEasy, true
	case TierHard:
		return TierMedium, true
	default:
		return "", false
	}
}
