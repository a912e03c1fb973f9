package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// ServiceTemplate - каталожная запись пакетной услуги (OBSP).
// Каждый шаблон продается на трех уровнях: easy / medium / hard.
type ServiceTemplate struct {
	BaseModel
	Title       string `gorm:"not null"`
	Description string
	Category    string         `gorm:"index"` // вертикаль: "web", "design", "marketing"...
	Status      TemplateStatus `gorm:"default:'draft';index"`

	// Relations
	Tiers []TemplateTier `gorm:"foreignKey:TemplateID"`
}

// TemplateTier - один уровень шаблона со своей ценой и вехами
type TemplateTier struct {
	BaseModel
	TemplateID    string    `gorm:"not null;uniqueIndex:idx_template_tier"`
	Level         TierLevel `gorm:"not null;uniqueIndex:idx_template_tier"`
	Price         float64   `gorm:"not null"`
	EstimatedDays int

	// Relations
	Template   *ServiceTemplate `gorm:"foreignKey:TemplateID"`
	Milestones []Milestone      `gorm:"foreignKey:TierID"`
}

// TemplateResponse - оплаченный экземпляр уровня шаблона,
// к которому назначается фрилансер
type TemplateResponse struct {
	BaseModel
	TemplateID string         `gorm:"not null;index"`
	TierID     string         `gorm:"not null;index"`
	ClientID   string         `gorm:"not null;index"`
	Status     ResponseStatus `gorm:"default:'pending'"`
	Price      float64        // снапшот цены уровня на момент покупки
	// Явная ссылка на активное назначение, выставляется транзакционно
	// при assign() вместо выборки "первого активного"
	ActiveAssignmentID *string        `gorm:"index"`
	Requirements       datatypes.JSON `gorm:"type:jsonb"`

	// Relations
	Template   *ServiceTemplate    `gorm:"foreignKey:TemplateID"`
	Tier       *TemplateTier       `gorm:"foreignKey:TierID"`
	Milestones []MilestoneProgress `gorm:"foreignKey:ResponseID"`
}

// GetRequirements возвращает пожелания клиента как map
func (r *TemplateResponse) GetRequirements() map[string]any {
	var reqs map[string]any
	if len(r.Requirements) > 0 {
		_ = json.Unmarshal(r.Requirements, &reqs)
	}
	return reqs
}
