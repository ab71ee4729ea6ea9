package repository

import (
	"context"
	"errors"

	"github.com/Geometrically/fabricate/internal/models"

	"gorm.io/gorm"
)

// TeamRepository defines persistence operations for teams and their members.
type TeamRepository interface {
	GenerateMemberID(ctx context.Context) (models.ID, error)

	Exists(ctx context.Context, teamID models.ID) (bool, error)
	GetMembers(ctx context.Context, teamID models.ID) ([]models.TeamMember, error)
	GetMember(ctx context.Context, teamID, userID models.ID) (*models.TeamMember, error)
	InsertMember(ctx context.Context, member *models.TeamMember) error
	UpdateMember(ctx context.Context, memberID models.ID, fields map[string]interface{}) error
	DeleteMember(ctx context.Context, memberID models.ID) error
	ProjectForTeam(ctx context.Context, teamID models.ID) (*models.Project, error)
}

type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository returns a new TeamRepository implementation.
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) GenerateMemberID(ctx context.Context) (models.ID, error) {
	return GenerateID(ctx, r.db, "team_members")
}

func (r *teamRepository) Exists(ctx context.Context, teamID models.ID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Team{}).Where("id = ?", int64(teamID)).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *teamRepository) GetMembers(ctx context.Context, teamID models.ID) ([]models.TeamMember, error) {
	var members []models.TeamMember
	err := r.db.WithContext(ctx).Where("team_id = ?", int64(teamID)).Order("id ASC").Find(&members).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return members, nil
}

// GetMember returns nil without error when the user has no membership row.
func (r *teamRepository) GetMember(ctx context.Context, teamID, userID models.ID) (*models.TeamMember, error) {
	var member models.TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", int64(teamID), int64(userID)).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &member, nil
}

func (r *teamRepository) InsertMember(ctx context.Context, member *models.TeamMember) error {
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("user is already a member of this team")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *teamRepository) UpdateMember(ctx context.Context, memberID models.ID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.TeamMember{}).Where("id = ?", int64(memberID)).Updates(fields).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *teamRepository) DeleteMember(ctx context.Context, memberID models.ID) error {
	if err := r.db.WithContext(ctx).Delete(&models.TeamMember{}, int64(memberID)).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ProjectForTeam finds the project a team owns, used to route membership
// notifications back to the project page.
func (r *teamRepository) ProjectForTeam(ctx context.Context, teamID models.ID) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).Where("team_id = ?", int64(teamID)).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("team")
		}
		return nil, models.NewInternalError(err)
	}
	return &project, nil
}
