package main

import (
	"obsp_backend/internal/app"
	"obsp_backend/internal/logger"
)

func main() {
	a, err := app.New()
	if err != nil {
		logger.Fatal("application bootstrap failed", "error", err)
	}

	if err := a.Run(); err != nil {
		logger.Fatal("application stopped with error", "error", err)
	}
}
