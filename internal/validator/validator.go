package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"obsp_backend/internal/logger"
)

// Init регистрирует кастомные правила в валидаторе gin binding
func Init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		logger.Warn("gin binding validator engine unavailable, custom rules skipped")
		return
	}

	for tag, fn := range customRules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			logger.Fatal("failed to register validation rule", "tag", tag, "error", err)
		}
	}
}
