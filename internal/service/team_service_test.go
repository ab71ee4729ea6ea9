package service

import (
	"context"
	"testing"

	"github.com/Geometrically/fabricate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// teamRepoStub is a stub for repository.TeamRepository.
type teamRepoStub struct {
	generateMemberIDFn func(context.Context) (models.ID, error)
	existsFn           func(context.Context, models.ID) (bool, error)
	getMembersFn       func(context.Context, models.ID) ([]models.TeamMember, error)
	getMemberFn        func(context.Context, models.ID, models.ID) (*models.TeamMember, error)
	insertMemberFn     func(context.Context, *models.TeamMember) error
	updateMemberFn     func(context.Context, models.ID, map[string]interface{}) error
	deleteMemberFn     func(context.Context, models.ID) error
	projectForTeamFn   func(context.Context, models.ID) (*models.Project, error)
}

func (s *teamRepoStub) GenerateMemberID(ctx context.Context) (models.ID, error) {
	return s.generateMemberIDFn(ctx)
}
func (s *teamRepoStub) Exists(ctx context.Context, teamID models.ID) (bool, error) {
	return s.existsFn(ctx, teamID)
}
func (s *teamRepoStub) GetMembers(ctx context.Context, teamID models.ID) ([]models.TeamMember, error) {
	return s.getMembersFn(ctx, teamID)
}
func (s *teamRepoStub) GetMember(ctx context.Context, teamID, userID models.ID) (*models.TeamMember, error) {
	return s.getMemberFn(ctx, teamID, userID)
}
func (s *teamRepoStub) InsertMember(ctx context.Context, member *models.TeamMember) error {
	return s.insertMemberFn(ctx, member)
}
func (s *teamRepoStub) UpdateMember(ctx context.Context, memberID models.ID, fields map[string]interface{}) error {
	return s.updateMemberFn(ctx, memberID, fields)
}
func (s *teamRepoStub) DeleteMember(ctx context.Context, memberID models.ID) error {
	return s.deleteMemberFn(ctx, memberID)
}
func (s *teamRepoStub) ProjectForTeam(ctx context.Context, teamID models.ID) (*models.Project, error) {
	return s.projectForTeamFn(ctx, teamID)
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn func(context.Context, models.ID) (*models.User, error)
}

func (s *userRepoStub) GenerateID(ctx context.Context) (models.ID, error) { return 0, nil }
func (s *userRepoStub) GetByID(ctx context.Context, id models.ID) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetMany(ctx context.Context, ids []models.ID) ([]models.User, error) {
	return nil, nil
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, models.NewNotFoundError("user")
}
func (s *userRepoStub) ResolveID(ctx context.Context, ref string) (models.ID, error) {
	return 0, models.NewNotFoundError("user")
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error { return nil }
func (s *userRepoStub) UpdateFields(ctx context.Context, id models.ID, fields map[string]interface{}) error {
	return nil
}
func (s *userRepoStub) TeamIDs(ctx context.Context, userID models.ID) ([]models.ID, error) {
	return nil, nil
}

// notificationRepoStub is a stub for repository.NotificationRepository.
type notificationRepoStub struct {
	inserted []*models.Notification
}

func (s *notificationRepoStub) GenerateID(ctx context.Context) (models.ID, error) { return 900, nil }
func (s *notificationRepoStub) Insert(ctx context.Context, n *models.Notification) error {
	s.inserted = append(s.inserted, n)
	return nil
}
func (s *notificationRepoStub) Get(ctx context.Context, id models.ID) (*models.Notification, error) {
	return nil, models.NewNotFoundError("notification")
}
func (s *notificationRepoStub) ListForUser(ctx context.Context, userID models.ID) ([]models.Notification, error) {
	return nil, nil
}
func (s *notificationRepoStub) MarkRead(ctx context.Context, id models.ID) error { return nil }
func (s *notificationRepoStub) Delete(ctx context.Context, id models.ID) error   { return nil }

const (
	testTeamID  models.ID = 10
	testOwnerID models.ID = 100
	testUserID  models.ID = 200
)

func memberTable(members ...models.TeamMember) *teamRepoStub {
	stub := &teamRepoStub{}
	stub.generateMemberIDFn = func(context.Context) (models.ID, error) { return 999, nil }
	stub.existsFn = func(context.Context, models.ID) (bool, error) { return true, nil }
	stub.getMembersFn = func(context.Context, models.ID) ([]models.TeamMember, error) {
		return members, nil
	}
	stub.getMemberFn = func(_ context.Context, _ models.ID, userID models.ID) (*models.TeamMember, error) {
		for i := range members {
			if members[i].UserID == userID {
				m := members[i]
				return &m, nil
			}
		}
		return nil, nil
	}
	stub.insertMemberFn = func(context.Context, *models.TeamMember) error { return nil }
	stub.updateMemberFn = func(context.Context, models.ID, map[string]interface{}) error { return nil }
	stub.deleteMemberFn = func(context.Context, models.ID) error { return nil }
	stub.projectForTeamFn = func(context.Context, models.ID) (*models.Project, error) {
		return &models.Project{ID: 1, TeamID: testTeamID, Title: "Iron Craft"}, nil
	}
	return stub
}

func ownerMember() models.TeamMember {
	return models.TeamMember{
		ID: 1, TeamID: testTeamID, UserID: testOwnerID,
		Name: "owner", Role: models.OwnerRole,
		Permissions: models.PermissionsAll, Accepted: true,
	}
}

func testUsers() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id models.ID) (*models.User, error) {
			return &models.User{ID: id, Username: "invitee"}, nil
		},
	}
}

func TestGetMembersMasksPermissionsForOutsiders(t *testing.T) {
	pending := models.TeamMember{
		ID: 2, TeamID: testTeamID, UserID: testUserID,
		Role: "Developer", Permissions: models.PermissionUploadVersion, Accepted: false,
	}
	svc := NewTeamService(memberTable(ownerMember(), pending), testUsers(), &notificationRepoStub{})

	// Anonymous callers see accepted members only, with permissions zeroed.
	members, err := svc.GetMembers(context.Background(), nil, testTeamID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, testOwnerID, members[0].UserID)
	assert.Equal(t, models.PermissionsNone, members[0].Permissions)

	// A member sees everything, pending invites included.
	caller := &models.CallerIdentity{UserID: testOwnerID, Role: models.RoleDeveloper}
	members, err = svc.GetMembers(context.Background(), caller, testTeamID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, models.PermissionsAll, members[0].Permissions)
}

func TestAddMemberRejectsPermissionsBeyondGrantor(t *testing.T) {
	grantor := models.TeamMember{
		ID: 3, TeamID: testTeamID, UserID: testUserID,
		Role:        "Developer",
		Permissions: models.PermissionManageInvites | models.PermissionUploadVersion,
		Accepted:    true,
	}
	svc := NewTeamService(memberTable(ownerMember(), grantor), testUsers(), &notificationRepoStub{})
	caller := &models.CallerIdentity{UserID: testUserID, Role: models.RoleDeveloper}

	err := svc.AddMember(context.Background(), caller, testTeamID, AddMemberInput{
		UserID:      300,
		Role:        "Developer",
		Permissions: models.PermissionDeleteProject,
	})
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func TestAddMemberOwnerRoleUngrantable(t *testing.T) {
	svc := NewTeamService(memberTable(ownerMember()), testUsers(), &notificationRepoStub{})
	caller := &models.CallerIdentity{UserID: testOwnerID, Role: models.RoleDeveloper}

	err := svc.AddMember(context.Background(), caller, testTeamID, AddMemberInput{
		UserID: 300,
		Role:   models.OwnerRole,
	})
	assert.Error(t, err)
}

func TestAddMemberSendsInviteNotification(t *testing.T) {
	notifications := &notificationRepoStub{}
	svc := NewTeamService(memberTable(ownerMember()), testUsers(), notifications)
	caller := &models.CallerIdentity{UserID: testOwnerID, Role: models.RoleDeveloper}

	err := svc.AddMember(context.Background(), caller, testTeamID, AddMemberInput{
		UserID:      300,
		Role:        "Developer",
		Permissions: models.PermissionUploadVersion,
	})
	require.NoError(t, err)
	require.Len(t, notifications.inserted, 1)
	assert.Equal(t, models.ID(300), notifications.inserted[0].UserID)
	require.Len(t, notifications.inserted[0].Actions, 2)
	assert.Contains(t, notifications.inserted[0].Actions[0].ActionRoute, "/join")
}

func TestAddMemberDuplicateConflict(t *testing.T) {
	existing := models.TeamMember{ID: 4, TeamID: testTeamID, UserID: 300, Accepted: true}
	svc := NewTeamService(memberTable(ownerMember(), existing), testUsers(), &notificationRepoStub{})
	caller := &models.CallerIdentity{UserID: testOwnerID, Role: models.RoleDeveloper}

	err := svc.AddMember(context.Background(), caller, testTeamID, AddMemberInput{
		UserID: 300,
		Role:   "Developer",
	})
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "CONFLICT", appErr.Code)
}

func TestEditMemberOwnerProtected(t *testing.T) {
	editor := models.TeamMember{
		ID: 5, TeamID: testTeamID, UserID: testUserID,
		Permissions: models.PermissionEditMember, Accepted: true,
	}
	svc := NewTeamService(memberTable(ownerMember(), editor), testUsers(), &notificationRepoStub{})
	caller := &models.CallerIdentity{UserID: testUserID, Role: models.RoleDeveloper}

	err := svc.EditMember(context.Background(), caller, testTeamID, testOwnerID, EditMemberInput{})
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func TestRemoveMemberRules(t *testing.T) {
	member := models.TeamMember{
		ID: 6, TeamID: testTeamID, UserID: testUserID,
		Permissions: models.PermissionUploadVersion, Accepted: true,
	}

	t.Run("owner cannot be removed even by a moderator", func(t *testing.T) {
		svc := NewTeamService(memberTable(ownerMember(), member), testUsers(), &notificationRepoStub{})
		mod := &models.CallerIdentity{UserID: 999, Role: models.RoleModerator}
		err := svc.RemoveMember(context.Background(), mod, testTeamID, testOwnerID)
		assert.Error(t, err)
	})

	t.Run("members may remove themselves", func(t *testing.T) {
		svc := NewTeamService(memberTable(ownerMember(), member), testUsers(), &notificationRepoStub{})
		self := &models.CallerIdentity{UserID: testUserID, Role: models.RoleDeveloper}
		assert.NoError(t, svc.RemoveMember(context.Background(), self, testTeamID, testUserID))
	})

	t.Run("removing another member requires the removal permission", func(t *testing.T) {
		other := models.TeamMember{ID: 9, TeamID: testTeamID, UserID: 302, Accepted: true}
		svc := NewTeamService(memberTable(ownerMember(), member, other), testUsers(), &notificationRepoStub{})
		// The caller only holds upload permission, not removal.
		caller := &models.CallerIdentity{UserID: testUserID, Role: models.RoleDeveloper}
		err := svc.RemoveMember(context.Background(), caller, testTeamID, 302)
		assert.Error(t, err)
	})
}

func TestJoinTeam(t *testing.T) {
	t.Run("pending invite accepted", func(t *testing.T) {
		pending := models.TeamMember{ID: 7, TeamID: testTeamID, UserID: testUserID, Accepted: false}
		var updated map[string]interface{}
		stub := memberTable(ownerMember(), pending)
		stub.updateMemberFn = func(_ context.Context, _ models.ID, fields map[string]interface{}) error {
			updated = fields
			return nil
		}
		svc := NewTeamService(stub, testUsers(), &notificationRepoStub{})
		caller := &models.CallerIdentity{UserID: testUserID, Role: models.RoleDeveloper}

		require.NoError(t, svc.JoinTeam(context.Background(), caller, testTeamID))
		assert.Equal(t, map[string]interface{}{"accepted": true}, updated)
	})

	t.Run("already accepted is a conflict", func(t *testing.T) {
		accepted := models.TeamMember{ID: 8, TeamID: testTeamID, UserID: testUserID, Accepted: true}
		svc := NewTeamService(memberTable(ownerMember(), accepted), testUsers(), &notificationRepoStub{})
		caller := &models.CallerIdentity{UserID: testUserID, Role: models.RoleDeveloper}

		err := svc.JoinTeam(context.Background(), caller, testTeamID)
		require.Error(t, err)
		appErr, ok := err.(*models.AppError)
		require.True(t, ok)
		assert.Equal(t, "CONFLICT", appErr.Code)
	})

	t.Run("no invite is not found", func(t *testing.T) {
		svc := NewTeamService(memberTable(ownerMember()), testUsers(), &notificationRepoStub{})
		caller := &models.CallerIdentity{UserID: testUserID, Role: models.RoleDeveloper}

		err := svc.JoinTeam(context.Background(), caller, testTeamID)
		require.Error(t, err)
		appErr, ok := err.(*models.AppError)
		require.True(t, ok)
		assert.Equal(t, "NOT_FOUND", appErr.Code)
	})
}
