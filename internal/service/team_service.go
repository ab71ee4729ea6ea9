package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/repository"
)

// TeamService implements team membership: listing, invites, edits, removal
// and joining.
type TeamService struct {
	teams         repository.TeamRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
}

// NewTeamService wires a TeamService.
func NewTeamService(
	teams repository.TeamRepository,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
) *TeamService {
	return &TeamService{teams: teams, users: users, notifications: notifications}
}

// GetMembers lists a team's members. Outsiders see only accepted members
// with their permission bits masked; members and moderators see everything,
// pending invites included.
func (s *TeamService) GetMembers(ctx context.Context, caller *models.CallerIdentity, teamID models.ID) ([]models.TeamMember, error) {
	exists, err := s.teams.Exists(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("team")
	}
	members, err := s.teams.GetMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}

	insider := false
	if caller != nil {
		if caller.Role.IsMod() {
			insider = true
		} else {
			for _, m := range members {
				if m.UserID == caller.UserID {
					insider = true
					break
				}
			}
		}
	}
	if insider {
		return members, nil
	}

	out := make([]models.TeamMember, 0, len(members))
	for _, m := range members {
		if !m.Accepted {
			continue
		}
		m.Permissions = models.PermissionsNone
		out = append(out, m)
	}
	return out, nil
}

// AddMemberInput is the invite payload.
type AddMemberInput struct {
	UserID      models.ID          `json:"user_id"`
	Role        string             `json:"role"`
	Permissions models.Permissions `json:"permissions"`
}

// AddMember invites a user. The grantor must hold the invite permission and
// every bit being granted, so permissions can only narrow down the chain.
func (s *TeamService) AddMember(ctx context.Context, caller *models.CallerIdentity, teamID models.ID, in AddMemberInput) error {
	if caller == nil {
		return models.NewAuthenticationError("authentication required")
	}
	perms, _, err := resolvePermissions(ctx, s.teams, caller, teamID)
	if err != nil {
		return err
	}
	if !perms.Contains(models.PermissionManageInvites) {
		return models.NewAuthorizationError("you do not have permission to invite members to this team")
	}
	if !perms.Contains(in.Permissions) {
		return models.NewAuthorizationError("you cannot grant permissions you do not hold")
	}
	if in.Role == models.OwnerRole {
		return models.NewValidationError("the Owner role cannot be granted")
	}

	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return err
	}
	existing, err := s.teams.GetMember(ctx, teamID, in.UserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return models.NewConflictError("user is already a member of this team")
	}

	memberID, err := s.teams.GenerateMemberID(ctx)
	if err != nil {
		return err
	}
	member := models.TeamMember{
		ID:          memberID,
		TeamID:      teamID,
		UserID:      in.UserID,
		Name:        user.Username,
		Role:        in.Role,
		Permissions: in.Permissions,
		Accepted:    false,
	}
	if err := s.teams.InsertMember(ctx, &member); err != nil {
		return err
	}

	project, err := s.teams.ProjectForTeam(ctx, teamID)
	if err != nil {
		return err
	}
	notificationID, err := s.notifications.GenerateID(ctx)
	if err != nil {
		return err
	}
	teamRoute := fmt.Sprintf("/api/v1/team/%s", teamID.Base62())
	notification := models.Notification{
		ID:      notificationID,
		UserID:  in.UserID,
		Title:   "You have been invited to join a team",
		Text:    fmt.Sprintf("Team invite for project %s", project.Title),
		Created: time.Now().UTC(),
		Actions: []models.NotificationAction{
			{Title: "Accept", ActionRoute: teamRoute + "/join"},
			{Title: "Deny", ActionRoute: teamRoute + "/members/" + user.ID.Base62()},
		},
	}
	return s.notifications.Insert(ctx, &notification)
}

// EditMemberInput is the member update payload.
type EditMemberInput struct {
	Role        *string             `json:"role"`
	Permissions *models.Permissions `json:"permissions"`
}

// EditMember updates a member's role or permissions. The Owner cannot be
// edited, and granted bits must be a subset of the grantor's.
func (s *TeamService) EditMember(ctx context.Context, caller *models.CallerIdentity, teamID, userID models.ID, in EditMemberInput) error {
	if caller == nil {
		return models.NewAuthenticationError("authentication required")
	}
	perms, _, err := resolvePermissions(ctx, s.teams, caller, teamID)
	if err != nil {
		return err
	}
	if !perms.Contains(models.PermissionEditMember) {
		return models.NewAuthorizationError("you do not have permission to edit members of this team")
	}

	target, err := s.teams.GetMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if target == nil {
		return models.NewNotFoundError("team member")
	}
	if target.Role == models.OwnerRole {
		return models.NewAuthorizationError("the team owner cannot be edited")
	}

	fields := make(map[string]interface{})
	if in.Role != nil {
		if *in.Role == models.OwnerRole {
			return models.NewValidationError("the Owner role cannot be granted")
		}
		fields["role"] = *in.Role
	}
	if in.Permissions != nil {
		if !perms.Contains(*in.Permissions) {
			return models.NewAuthorizationError("you cannot grant permissions you do not hold")
		}
		fields["permissions"] = *in.Permissions
	}
	return s.teams.UpdateMember(ctx, target.ID, fields)
}

// RemoveMember removes a member or withdraws a pending invite. Accepted
// members require the removal permission; pending invites only the invite
// permission. Members may always remove themselves, and the Owner can never
// be removed.
func (s *TeamService) RemoveMember(ctx context.Context, caller *models.CallerIdentity, teamID, userID models.ID) error {
	if caller == nil {
		return models.NewAuthenticationError("authentication required")
	}
	target, err := s.teams.GetMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if target == nil {
		return models.NewNotFoundError("team member")
	}
	if target.Role == models.OwnerRole {
		return models.NewAuthorizationError("the team owner cannot be removed")
	}

	if caller.UserID != userID {
		perms, _, err := resolvePermissions(ctx, s.teams, caller, teamID)
		if err != nil {
			return err
		}
		required := models.PermissionRemoveMember
		if !target.Accepted {
			required = models.PermissionManageInvites
		}
		if !perms.Contains(required) {
			return models.NewAuthorizationError("you do not have permission to remove this member")
		}
	}
	return s.teams.DeleteMember(ctx, target.ID)
}

// JoinTeam accepts the caller's own pending invite.
func (s *TeamService) JoinTeam(ctx context.Context, caller *models.CallerIdentity, teamID models.ID) error {
	if caller == nil {
		return models.NewAuthenticationError("authentication required")
	}
	member, err := s.teams.GetMember(ctx, teamID, caller.UserID)
	if err != nil {
		return err
	}
	if member == nil {
		return models.NewNotFoundError("team invite")
	}
	if member.Accepted {
		return models.NewConflictError("you are already a member of this team")
	}
	return s.teams.UpdateMember(ctx, member.ID, map[string]interface{}{"accepted": true})
}
