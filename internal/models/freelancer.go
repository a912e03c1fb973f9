package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// FreelancerProfile - профиль исполнителя. Скиллы профиля при оценке
// объединяются со скиллами, проставленными на завершенных проектах.
type FreelancerProfile struct {
	BaseModel
	UserID         string `gorm:"uniqueIndex;not null"`
	Name           string `gorm:"not null"`
	Email          string
	Skills         datatypes.JSON `gorm:"type:jsonb"`
	Certifications datatypes.JSON `gorm:"type:jsonb"`
	PortfolioItems int            `gorm:"default:0"`
	Rating         float64        `gorm:"default:0"`
	IsAvailable    bool           `gorm:"default:true"`

	// Relations
	Projects []Project `gorm:"foreignKey:FreelancerID"`
}

// GetSkills возвращает скиллы профиля как slice строк
func (p *FreelancerProfile) GetSkills() []string {
	var skills []string
	if len(p.Skills) > 0 {
		_ = json.Unmarshal(p.Skills, &skills)
	}
	return skills
}

// SetSkills устанавливает скиллы профиля
func (p *FreelancerProfile) SetSkills(skills []string) {
	data, _ := json.Marshal(skills)
	p.Skills = datatypes.JSON(data)
}

// SetCertifications устанавливает сертификаты
func (p *FreelancerProfile) SetCertifications(certs []string) {
	data, _ := json.Marshal(certs)
	p.Certifications = datatypes.JSON(data)
}

// GetCertifications возвращает сертификаты как slice строк
func (p *FreelancerProfile) GetCertifications() []string {
	var certs []string
	if len(p.Certifications) > 0 {
		_ = json.Unmarshal(p.Certifications, &certs)
	}
	return certs
}

// Project - запись истории проектов фрилансера (внешняя по отношению к OBSP)
type Project struct {
	BaseModel
	FreelancerID    string `gorm:"not null;index"`
	Title           string
	Domain          string `gorm:"index"` // вертикаль проекта
	Budget          float64
	DurationDays    int
	Status          ProjectStatus `gorm:"default:'ongoing';index"`
	CompletedOnTime bool
	Skills          datatypes.JSON `gorm:"type:jsonb"` // теги скиллов проекта
}

// GetSkills возвращает теги скиллов проекта
func (p *Project) GetSkills() []string {
	var skills []string
	if len(p.Skills) > 0 {
		_ = json.Unmarshal(p.Skills, &skills)
	}
	return skills
}

// ProjectFeedback - оценка 1..5 из одного из двух независимых источников.
// При расчете rating-критерия источники просто конкатенируются.
type ProjectFeedback struct {
	BaseModel
	FreelancerID string         `gorm:"not null;index"`
	ProjectID    *string        `gorm:"index"`
	Source       FeedbackSource `gorm:"not null"`
	Rating       int            `gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment      string
}
