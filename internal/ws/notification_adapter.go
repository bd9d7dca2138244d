package ws

import (
	"context"

	"github.com/google/uuid"

	"github.com/lukamba/kitadi-backend/internal/models"
)

// NotificationServiceAdapter адаптирует сервис уведомлений к
// интерфейсу NotificationSaver хаба.
type NotificationServiceAdapter struct {
	service interface {
		CreateNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) (*models.Notification, error)
	}
}

// NewNotificationServiceAdapter создаёт новый адаптер.
func NewNotificationServiceAdapter(service interface {
	CreateNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) (*models.Notification, error)
}) *NotificationServiceAdapter {
	return &NotificationServiceAdapter{service: service}
}

// SaveNotification реализует интерфейс NotificationSaver.
func (a *NotificationServiceAdapter) SaveNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) error {
	_, err := a.service.CreateNotification(ctx, userID, event, data)
	return err
}
