package service

import (
	"context"

	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/repository"
)

// UserService implements user profile reads and edits.
type UserService struct {
	users    repository.UserRepository
	projects repository.ProjectRepository
	teams    repository.TeamRepository
}

// NewUserService wires a UserService.
func NewUserService(
	users repository.UserRepository,
	projects repository.ProjectRepository,
	teams repository.TeamRepository,
) *UserService {
	return &UserService{users: users, projects: projects, teams: teams}
}

// GetUser fetches a user by username or id. The email field is private:
// only the user themself and moderators receive it.
func (s *UserService) GetUser(ctx context.Context, caller *models.CallerIdentity, ref string) (*models.User, error) {
	id, err := s.users.ResolveID(ctx, ref)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller == nil || (caller.UserID != user.ID && !caller.Role.IsMod()) {
		user.Email = nil
		user.GithubID = nil
	}
	return user, nil
}

// GetUsers fetches a batch of users by id. Ids that do not exist are omitted
// rather than erroring; private fields are always stripped.
func (s *UserService) GetUsers(ctx context.Context, ids []models.ID) ([]models.User, error) {
	users, err := s.users.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Email = nil
		users[i].GithubID = nil
	}
	return users, nil
}

// GetCurrentUser fetches the caller's own profile, private fields included.
func (s *UserService) GetCurrentUser(ctx context.Context, caller *models.CallerIdentity) (*models.User, error) {
	if caller == nil {
		return nil, models.NewAuthenticationError("authentication required")
	}
	return s.users.GetByID(ctx, caller.UserID)
}

// EditUserInput is the profile update payload.
type EditUserInput struct {
	Username  *string                  `json:"username"`
	Name      *string                  `json:"name"`
	Bio       *string                  `json:"bio"`
	Email     models.Omittable[string] `json:"email"`
	AvatarURL models.Omittable[string] `json:"avatar_url"`
	Role      *models.Role             `json:"role"`
}

// EditUser updates a profile. Users edit themselves; moderators edit anyone;
// role changes are admin-only.
func (s *UserService) EditUser(ctx context.Context, caller *models.CallerIdentity, ref string, in EditUserInput) error {
	if caller == nil {
		return models.NewAuthenticationError("authentication required")
	}
	id, err := s.users.ResolveID(ctx, ref)
	if err != nil {
		return err
	}
	if caller.UserID != id && !caller.Role.IsMod() {
		return models.NewAuthorizationError("you may only edit your own profile")
	}

	fields := make(map[string]interface{})
	if in.Username != nil {
		if len(*in.Username) < 3 || len(*in.Username) > 64 {
			return models.NewValidationError("username must be 3-64 characters")
		}
		fields["username"] = *in.Username
	}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Bio != nil {
		if len(*in.Bio) > 2048 {
			return models.NewValidationError("bio too long (max 2048 characters)")
		}
		fields["bio"] = *in.Bio
	}
	if in.Email.Present() {
		fields["email"] = in.Email.Value()
	}
	if in.AvatarURL.Present() {
		fields["avatar_url"] = in.AvatarURL.Value()
	}
	if in.Role != nil {
		if caller.Role != models.RoleAdmin {
			return models.NewAuthorizationError("only admins may change user roles")
		}
		fields["role"] = *in.Role
	}
	return s.users.UpdateFields(ctx, id, fields)
}

// ListUserProjects returns the projects of every team the user belongs to,
// with the caller's visibility applied.
func (s *UserService) ListUserProjects(ctx context.Context, caller *models.CallerIdentity, ref string) ([]models.QueryProject, error) {
	id, err := s.users.ResolveID(ctx, ref)
	if err != nil {
		return nil, err
	}
	teamIDs, err := s.users.TeamIDs(ctx, id)
	if err != nil {
		return nil, err
	}

	var projectIDs []models.ID
	for _, teamID := range teamIDs {
		project, err := s.teams.ProjectForTeam(ctx, teamID)
		if err != nil {
			// Orphan membership rows are skipped, not fatal.
			continue
		}
		projectIDs = append(projectIDs, project.ID)
	}
	projects, err := s.projects.GetManyFull(ctx, projectIDs)
	if err != nil {
		return nil, err
	}

	out := make([]models.QueryProject, 0, len(projects))
	for _, p := range projects {
		if !p.Status.Hidden() {
			out = append(out, p)
			continue
		}
		if caller == nil {
			continue
		}
		if caller.Role.IsMod() {
			out = append(out, p)
			continue
		}
		member, err := s.teams.GetMember(ctx, p.TeamID, caller.UserID)
		if err != nil {
			return nil, err
		}
		if member != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListUserTeams returns the ids of every team the user belongs to.
func (s *UserService) ListUserTeams(ctx context.Context, ref string) ([]models.ID, error) {
	id, err := s.users.ResolveID(ctx, ref)
	if err != nil {
		return nil, err
	}
	teamIDs, err := s.users.TeamIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	if teamIDs == nil {
		teamIDs = []models.ID{}
	}
	return teamIDs, nil
}
