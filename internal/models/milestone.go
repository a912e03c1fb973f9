package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Milestone - упорядоченная веха уровня шаблона.
// Проценты выплат по вехам одного уровня должны суммироваться в 100
// (проверяется при публикации шаблона).
type Milestone struct {
	BaseModel
	TierID           string `gorm:"not null;uniqueIndex:idx_tier_milestone_order"`
	Order            int    `gorm:"not null;uniqueIndex:idx_tier_milestone_order"`
	Title            string `gorm:"not null"`
	Description      string
	EstimatedDays    int            `gorm:"not null"`
	PayoutPercentage float64        `gorm:"not null"`
	Deliverables     datatypes.JSON `gorm:"type:jsonb"` // ["wireframes", "style guide"]
}

// GetDeliverables возвращает артефакты вехи как slice строк
func (m *Milestone) GetDeliverables() []string {
	var deliverables []string
	if len(m.Deliverables) > 0 {
		_ = json.Unmarshal(m.Deliverables, &deliverables)
	}
	return deliverables
}

// SetDeliverables устанавливает артефакты вехи
func (m *Milestone) SetDeliverables(deliverables []string) {
	data, _ := json.Marshal(deliverables)
	m.Deliverables = datatypes.JSON(data)
}

// PayoutAmount - сумма выплаты за веху от цены уровня
func (m *Milestone) PayoutAmount(tierPrice float64) float64 {
	return tierPrice * m.PayoutPercentage / 100
}

// MilestoneProgress - прогресс одной вехи в рамках оплаченного response
type MilestoneProgress struct {
	BaseModel
	ResponseID   string          `gorm:"not null;uniqueIndex:idx_response_milestone"`
	MilestoneID  string          `gorm:"not null;uniqueIndex:idx_response_milestone"`
	Status       MilestoneStatus `gorm:"default:'pending'"`
	Deadline     *time.Time
	DeadlineType DeadlineType `gorm:"default:'default'"`
	CompletedAt  *time.Time

	// Relations
	Milestone *Milestone `gorm:"foreignKey:MilestoneID"`
}
