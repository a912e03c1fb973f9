package services

import (
	"context"
	"encoding/json"

	gomail "gopkg.in/gomail.v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"obsp_backend/internal/config"
	"obsp_backend/internal/logger"
	"obsp_backend/internal/models"
	"obsp_backend/internal/repositories"
)

// NotificationService пишет in-app уведомления и, если включено,
// дублирует их письмом. Строго best-effort: любая ошибка логируется
// и проглатывается, бизнес-операция от уведомления не зависит.
type NotificationService interface {
	Notifier
	ListForFreelancer(db *gorm.DB, freelancerID string, limit int) ([]models.Notification, error)
	MarkAsRead(db *gorm.DB, notificationID string) error
}

type notificationService struct {
	db            *gorm.DB
	notifications repositories.NotificationRepository
	history       repositories.HistoryRepository
	emailCfg      *config.Config
}

func NewNotificationService(db *gorm.DB, notifications repositories.NotificationRepository, history repositories.HistoryRepository, cfg *config.Config) NotificationService {
	return &notificationService{
		db:            db,
		notifications: notifications,
		history:       history,
		emailCfg:      cfg,
	}
}

// Notify пишет уведомление отдельным соединением, вне транзакции
// вызывающего: откат бизнес-операции не должен терять и не должен
// дожидаться уведомления
func (s *notificationService) Notify(ctx context.Context, freelancerID, notificationType, title, message string, data map[string]any) {
	notification := &models.Notification{
		FreelancerID: freelancerID,
		Type:         notificationType,
		Title:        title,
		Message:      message,
	}
	if len(data) > 0 {
		if raw, err := json.Marshal(data); err == nil {
			notification.Data = datatypes.JSON(raw)
		}
	}

	if err := s.notifications.CreateNotification(s.db, notification); err != nil {
		logger.CtxWithError(ctx, "notification write failed", err,
			"freelancer_id", freelancerID,
			"type", notificationType)
		return
	}

	if s.emailCfg != nil && s.emailCfg.Email.Enabled {
		go s.sendEmail(freelancerID, title, message)
	}
}

func (s *notificationService) sendEmail(freelancerID, subject, body string) {
	profile, err := s.history.FindProfile(s.db, freelancerID)
	if err != nil || profile.Email == "" {
		return
	}

	cfg := s.emailCfg.Email
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(cfg.FromEmail, cfg.FromName))
	m.SetHeader("To", profile.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		logger.Warn("notification email send failed",
			"freelancer_id", freelancerID, "error", err)
	}
}

func (s *notificationService) ListForFreelancer(db *gorm.DB, freelancerID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notifications.FindByFreelancer(db, freelancerID, limit)
}

func (s *notificationService) MarkAsRead(db *gorm.DB, notificationID string) error {
	return s.notifications.MarkAsRead(db, notificationID)
}
