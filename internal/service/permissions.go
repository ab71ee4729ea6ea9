// Package service implements the business rules on top of the repositories.
package service

import (
	"context"

	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/repository"
)

// resolvePermissions yields the caller's effective permission bitset for a
// team. Moderators and admins act with the full bitset without holding a
// membership row; pending invitees hold none of their granted bits until
// they accept.
func resolvePermissions(ctx context.Context, teamRepo repository.TeamRepository, caller *models.CallerIdentity, teamID models.ID) (models.Permissions, *models.TeamMember, error) {
	if caller == nil {
		return models.PermissionsNone, nil, nil
	}
	member, err := teamRepo.GetMember(ctx, teamID, caller.UserID)
	if err != nil {
		return models.PermissionsNone, nil, err
	}
	if caller.Role.IsMod() {
		return models.PermissionsAll, member, nil
	}
	if member == nil || !member.Accepted {
		return models.PermissionsNone, member, nil
	}
	return member.Permissions, member, nil
}
