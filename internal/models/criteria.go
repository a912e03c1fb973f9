package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// TierCriteria - конфигурация порогов и весов для одной пары (template, tier).
// Это типизированная версия прежних "открытых" таблиц весов: именованные поля
// плюс generic-карта Extensions для нестандартных правил. Версионируется,
// валидируется при создании, evaluator ее только потребляет.
type TierCriteria struct {
	BaseModel
	TemplateID string    `gorm:"not null;uniqueIndex:idx_criteria_template_tier"`
	Level      TierLevel `gorm:"not null;uniqueIndex:idx_criteria_template_tier"`
	Version    int       `gorm:"default:1"`

	// Веса первых четырех sub-score (должны суммироваться в 1.0)
	ExperienceWeight float64 `gorm:"not null"`
	SkillWeight      float64 `gorm:"not null"`
	RatingWeight     float64 `gorm:"not null"`
	DeadlineWeight   float64 `gorm:"not null"`

	// Минимальные пороги (они же hard-гейты)
	MinCompletedProjects     int     `gorm:"not null"`
	MinAvgRating             float64 `gorm:"not null"`
	MinSkillMatch            float64 `gorm:"not null"` // %
	MinDeadlineCompliance    float64 // %
	RequiredPriorCompletions int     // завершения на предыдущем уровне

	// Фильтры истории проектов
	MinProjectBudget       float64
	MinProjectDurationDays int

	// Наборы скиллов и доменов
	RequiredSkills  datatypes.JSON `gorm:"type:jsonb"`
	CoreSkills      datatypes.JSON `gorm:"type:jsonb"`
	OptionalSkills  datatypes.JSON `gorm:"type:jsonb"`
	RequiredDomains datatypes.JSON `gorm:"type:jsonb"`

	// Бонусы/штрафы: имя правила -> очки
	BonusTable   datatypes.JSON `gorm:"type:jsonb"`
	PenaltyTable datatypes.JSON `gorm:"type:jsonb"`

	// Расширения для нестандартных правил, не покрытых именованными полями
	Extensions datatypes.JSON `gorm:"type:jsonb"`
}

func (c *TierCriteria) GetRequiredSkills() []string {
	return unmarshalStrings(c.RequiredSkills)
}

func (c *TierCriteria) GetCoreSkills() []string {
	return unmarshalStrings(c.CoreSkills)
}

func (c *TierCriteria) GetOptionalSkills() []string {
	return unmarshalStrings(c.OptionalSkills)
}

func (c *TierCriteria) GetRequiredDomains() []string {
	return unmarshalStrings(c.RequiredDomains)
}

// GetBonusTable возвращает таблицу бонусов как map "правило" -> очки
func (c *TierCriteria) GetBonusTable() map[string]float64 {
	return unmarshalFloatMap(c.BonusTable)
}

// GetPenaltyTable возвращает таблицу штрафов как map "правило" -> очки
func (c *TierCriteria) GetPenaltyTable() map[string]float64 {
	return unmarshalFloatMap(c.PenaltyTable)
}

func (c *TierCriteria) SetRequiredSkills(skills []string) {
	c.RequiredSkills = marshalJSON(skills)
}

func (c *TierCriteria) SetCoreSkills(skills []string) {
	c.CoreSkills = marshalJSON(skills)
}

func (c *TierCriteria) SetOptionalSkills(skills []string) {
	c.OptionalSkills = marshalJSON(skills)
}

func (c *TierCriteria) SetRequiredDomains(domains []string) {
	c.RequiredDomains = marshalJSON(domains)
}

func (c *TierCriteria) SetBonusTable(table map[string]float64) {
	c.BonusTable = marshalJSON(table)
}

func (c *TierCriteria) SetPenaltyTable(table map[string]float64) {
	c.PenaltyTable = marshalJSON(table)
}

// --- json helpers ---

func unmarshalStrings(data datatypes.JSON) []string {
	var out []string
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return out
}

func unmarshalFloatMap(data datatypes.JSON) map[string]float64 {
	out := make(map[string]float64)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return out
}

func marshalJSON(v any) datatypes.JSON {
	data, _ := json.Marshal(v)
	return datatypes.JSON(data)
}
