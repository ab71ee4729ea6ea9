package repository

import (
	"context"
	"errors"

	"github.com/Geometrically/fabricate/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository defines persistence operations for notifications.
// A notification and its actions are always written together.
type NotificationRepository interface {
	GenerateID(ctx context.Context) (models.ID, error)
	Insert(ctx context.Context, notification *models.Notification) error
	Get(ctx context.Context, id models.ID) (*models.Notification, error)
	ListForUser(ctx context.Context, userID models.ID) ([]models.Notification, error)
	MarkRead(ctx context.Context, id models.ID) error
	Delete(ctx context.Context, id models.ID) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository returns a new NotificationRepository implementation.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) GenerateID(ctx context.Context) (models.ID, error) {
	return GenerateID(ctx, r.db, "notifications")
}

func (r *notificationRepository) Insert(ctx context.Context, notification *models.Notification) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(notification).Error; err != nil {
			return err
		}
		for i := range notification.Actions {
			notification.Actions[i].NotificationID = notification.ID
			if err := tx.Create(&notification.Actions[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id models.ID) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).First(&notification, int64(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("notification")
		}
		return nil, models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Where("notification_id = ?", int64(id)).
		Order("id ASC").Find(&notification.Actions).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return &notification, nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID models.ID) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.WithContext(ctx).Where("user_id = ?", int64(userID)).
		Order("created DESC").Find(&notifications).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(notifications) == 0 {
		return notifications, nil
	}

	ids := make([]int64, len(notifications))
	for i, n := range notifications {
		ids[i] = int64(n.ID)
	}
	var actions []models.NotificationAction
	if err := r.db.WithContext(ctx).Where("notification_id IN ?", ids).
		Order("id ASC").Find(&actions).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	actionsByNotification := make(map[models.ID][]models.NotificationAction)
	for _, a := range actions {
		actionsByNotification[a.NotificationID] = append(actionsByNotification[a.NotificationID], a)
	}
	for i := range notifications {
		notifications[i].Actions = actionsByNotification[notifications[i].ID]
		if notifications[i].Actions == nil {
			notifications[i].Actions = []models.NotificationAction{}
		}
	}
	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id models.ID) error {
	err := r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", int64(id)).
		UpdateColumn("read", true).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *notificationRepository) Delete(ctx context.Context, id models.ID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("notification_id = ?", int64(id)).Delete(&models.NotificationAction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Notification{}, int64(id)).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
