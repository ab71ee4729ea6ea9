package service

import (
	"context"

	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/repository"
)

// NotificationService implements the recipient-scoped notification surface.
type NotificationService struct {
	notifications repository.NotificationRepository
}

// NewNotificationService wires a NotificationService.
func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, caller *models.CallerIdentity) ([]models.Notification, error) {
	if caller == nil {
		return nil, models.NewAuthenticationError("authentication required")
	}
	return s.notifications.ListForUser(ctx, caller.UserID)
}

func (s *NotificationService) owned(ctx context.Context, caller *models.CallerIdentity, id models.ID) (*models.Notification, error) {
	if caller == nil {
		return nil, models.NewAuthenticationError("authentication required")
	}
	notification, err := s.notifications.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.UserID != caller.UserID && !caller.Role.IsMod() {
		return nil, models.NewNotFoundError("notification")
	}
	return notification, nil
}

// Get returns one of the caller's notifications; other users' notifications
// answer not-found rather than forbidden.
func (s *NotificationService) Get(ctx context.Context, caller *models.CallerIdentity, id models.ID) (*models.Notification, error) {
	return s.owned(ctx, caller, id)
}

// MarkRead flags the caller's notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, caller *models.CallerIdentity, id models.ID) error {
	notification, err := s.owned(ctx, caller, id)
	if err != nil {
		return err
	}
	return s.notifications.MarkRead(ctx, notification.ID)
}

// Delete removes the caller's notification with its actions.
func (s *NotificationService) Delete(ctx context.Context, caller *models.CallerIdentity, id models.ID) error {
	notification, err := s.owned(ctx, caller, id)
	if err != nil {
		return err
	}
	return s.notifications.Delete(ctx, notification.ID)
}
