package repository

import (
	"context"
	"errors"

	"github.com/Geometrically/fabricate/internal/cache"
	"github.com/Geometrically/fabricate/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GenerateID(ctx context.Context) (models.ID, error)
	GetByID(ctx context.Context, id models.ID) (*models.User, error)
	GetMany(ctx context.Context, ids []models.ID) ([]models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ResolveID(ctx context.Context, ref string) (models.ID, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id models.ID, fields map[string]interface{}) error
	TeamIDs(ctx context.Context, userID models.ID) ([]models.ID, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GenerateID(ctx context.Context) (models.ID, error) {
	return GenerateID(ctx, r.db, "users")
}

func (r *userRepository) GetByID(ctx context.Context, id models.ID) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, int64(id)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("user")
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetMany returns the users for the given ids, silently skipping ids that do
// not exist.
func (r *userRepository) GetMany(ctx context.Context, ids []models.ID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", raw).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("user")
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// ResolveID maps a username-or-id reference to a user id.
func (r *userRepository) ResolveID(ctx context.Context, ref string) (models.ID, error) {
	if id, err := models.ParseID(ref); err == nil {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", int64(id)).Count(&count).Error; err != nil {
			return 0, models.NewInternalError(err)
		}
		if count > 0 {
			return id, nil
		}
	}
	user, err := r.GetByUsername(ctx, ref)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("username is already taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id models.ID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", int64(id)).Updates(fields).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("username is already taken")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

// TeamIDs lists the teams the user holds a membership row in, accepted or
// not.
func (r *userRepository) TeamIDs(ctx context.Context, userID models.ID) ([]models.ID, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.TeamMember{}).
		Select("team_id").
		Where("user_id = ?", int64(userID)).
		Find(&ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	out := make([]models.ID, len(ids))
	for i, id := range ids {
		out[i] = models.ID(id)
	}
	return out, nil
}
