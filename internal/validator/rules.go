package validator

import (
	"github.com/go-playground/validator/v10"

	"obsp_backend/internal/models"
)

// customRules - доменные правила, доступные в binding-тегах
var customRules = map[string]validator.Func{
	"tierlevel":    validateTierLevel,
	"deadlinetype": validateDeadlineType,
}

// tierlevel: easy / medium / hard
func validateTierLevel(fl validator.FieldLevel) bool {
	value := models.TierLevel(fl.Field().String())
	for _, level := range models.AllTiers {
		if value == level {
			return true
		}
	}
	return false
}

// deadlinetype: default / extended / custom
func validateDeadlineType(fl validator.FieldLevel) bool {
	switch models.DeadlineType(fl.Field().String()) {
	case models.DeadlineTypeDefault, models.DeadlineTypeExtended, models.DeadlineTypeCustom:
		return true
	}
	return false
}
