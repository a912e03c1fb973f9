package repositories

import (
	"gorm.io/gorm"

	"obsp_backend/internal/models"
)

type NotificationRepository interface {
	CreateNotification(db *gorm.DB, notification *models.Notification) error
	FindByFreelancer(db *gorm.DB, freelancerID string, limit int) ([]models.Notification, error)
	MarkAsRead(db *gorm.DB, notificationID string) error
}

type NotificationRepositoryImpl struct{}

func NewNotificationRepository() NotificationRepository {
	return &NotificationRepositoryImpl{}
}

func (r *NotificationRepositoryImpl) CreateNotification(db *gorm.DB, notification *models.Notification) error {
	return db.Create(notification).Error
}

func (r *NotificationRepositoryImpl) FindByFreelancer(db *gorm.DB, freelancerID string, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := db.Where("freelancer_id = ?", freelancerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (r *NotificationRepositoryImpl) MarkAsRead(db *gorm.DB, notificationID string) error {
	return db.Model(&models.Notification{}).
		Where("id = ?", notificationID).
		Update("is_read", true).Error
}
