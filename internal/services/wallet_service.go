package services

import (
	"context"

	"obsp_backend/internal/logger"
)

// loggingWalletService - адаптер финансового сервиса. Движение средств
// живет вне ядра; здесь только фиксируется факт передачи сумм наружу.
// Реальная интеграция подключается заменой этой реализации.
type loggingWalletService struct{}

func NewWalletHoldService() WalletHoldService {
	return &loggingWalletService{}
}

func (s *loggingWalletService) CreateHold(ctx context.Context, assignmentID string, payout, fee float64) error {
	logger.CtxInfo(ctx, "wallet hold requested",
		"assignment_id", assignmentID,
		"freelancer_payout", payout,
		"platform_fee", fee)
	return nil
}

func (s *loggingWalletService) ReleaseHold(ctx context.Context, assignmentID string) error {
	logger.CtxInfo(ctx, "wallet hold release requested",
		"assignment_id", assignmentID)
	return nil
}
