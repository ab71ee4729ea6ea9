package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionsContains(t *testing.T) {
	grantor := PermissionUploadVersion | PermissionEditDetails | PermissionManageInvites

	assert.True(t, grantor.Contains(PermissionUploadVersion))
	assert.True(t, grantor.Contains(PermissionUploadVersion|PermissionEditDetails))
	assert.True(t, grantor.Contains(PermissionsNone))

	assert.False(t, grantor.Contains(PermissionDeleteProject))
	assert.False(t, grantor.Contains(PermissionUploadVersion|PermissionDeleteProject))
}

func TestPermissionsAllCoversEveryBit(t *testing.T) {
	bits := []Permissions{
		PermissionUploadVersion, PermissionDeleteVersion, PermissionEditDetails,
		PermissionEditBody, PermissionManageInvites, PermissionRemoveMember,
		PermissionEditMember, PermissionDeleteProject,
	}
	for _, bit := range bits {
		assert.True(t, PermissionsAll.Contains(bit))
	}
	assert.True(t, PermissionsAll.Contains(PermissionsAll))
}
