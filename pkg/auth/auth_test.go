package auth_test

import (
	"log/slog"
	"testing"

	"github.com/ebrains-prov/provenance-api/pkg/auth"
	"github.com/ebrains-prov/provenance-api/pkg/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const token = "access-token"

func newGate(teams []string) (*auth.Gate, *mocks.MockIdentityProvider, *mocks.MockCollabService) {
	identity := &mocks.MockIdentityProvider{}
	identity.On("UserInfo", mock.Anything, token).Return(&auth.User{Subject: "u1", Username: "adavison", Teams: teams}, nil)

	collabs := &mocks.MockCollabService{}

	return auth.NewGate(identity, collabs, slog.New(slog.DiscardHandler)), identity, collabs
}

func TestHighestRole(t *testing.T) {
	teams := []string{
		"collab-neuro-viewer",
		"collab-neuro-administrator",
		"collab-neuro-editor",
		"collab-neuro-lab-editor",
		"collab-other-viewer",
	}

	assert.Equal(t, auth.RoleAdministrator, auth.HighestRole(teams, "neuro"))
	assert.Equal(t, auth.RoleEditor, auth.HighestRole(teams, "neuro-lab"))
	assert.Equal(t, auth.RoleViewer, auth.HighestRole(teams, "other"))
	assert.Equal(t, auth.RoleNone, auth.HighestRole(teams, "unknown"))
	assert.Equal(t, auth.RoleNone, auth.HighestRole(nil, "neuro"))
}

func TestPermissionsFor(t *testing.T) {
	tests := []struct {
		role auth.Role
		want auth.Permissions
	}{
		{auth.RoleNone, auth.Permissions{}},
		{auth.RoleViewer, auth.Permissions{View: true}},
		{auth.RoleEditor, auth.Permissions{View: true, Update: true}},
		{auth.RoleAdministrator, auth.Permissions{View: true, Update: true, Delete: true}},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, auth.PermissionsFor(tt.role))
		})
	}
}

func TestGate_MayModify(t *testing.T) {
	tests := []struct {
		name   string
		space  string
		teams  []string
		public *bool
		want   bool
	}{
		{name: "private space", space: "myspace", want: true},
		{name: "administrator", space: "collab-neuro", teams: []string{"collab-neuro-administrator"}, want: true},
		{name: "editor", space: "collab-neuro", teams: []string{"collab-neuro-editor"}, want: false},
		{name: "viewer", space: "collab-neuro", teams: []string{"collab-neuro-viewer"}, want: false},
		{name: "public collab without membership", space: "collab-open", public: ptr(true), want: false},
		{name: "private collab without membership", space: "collab-closed", public: ptr(false), want: false},
		{name: "legacy numeric id", space: "collab-1234", teams: []string{"collab-1234-administrator"}, public: ptr(true), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, identity, collabs := newGate(tt.teams)
			if tt.public != nil {
				collabs.On("IsPublic", mock.Anything, auth.CollabID(tt.space), token).Return(*tt.public, nil)
			}

			got, err := gate.MayModify(t.Context(), tt.space, token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			if tt.space == "myspace" {
				identity.AssertNotCalled(t, "UserInfo", mock.Anything, mock.Anything)
			}

			collabs.AssertExpectations(t)
		})
	}
}

func TestGate_PermissionsFallback(t *testing.T) {
	gate, _, collabs := newGate([]string{"collab-neuro-editor"})
	collabs.On("IsPublic", mock.Anything, "open", token).Return(true, nil)

	perms, err := gate.Permissions(t.Context(), "collab-open", token)
	require.NoError(t, err)
	assert.Equal(t, auth.Permissions{View: true}, perms)

	perms, err = gate.Permissions(t.Context(), "collab-neuro", token)
	require.NoError(t, err)
	assert.Equal(t, auth.Permissions{View: true, Update: true}, perms)

	collabs.AssertNumberOfCalls(t, "IsPublic", 1)
}

func TestGate_Errors(t *testing.T) {
	identity := &mocks.MockIdentityProvider{}
	identity.On("UserInfo", mock.Anything, "expired").Return(nil, auth.ErrUnauthorized)

	gate := auth.NewGate(identity, &mocks.MockCollabService{}, slog.New(slog.DiscardHandler))

	_, err := gate.MayModify(t.Context(), "collab-neuro", "expired")
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	_, err = gate.EditableCollabs(t.Context(), "expired")
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestGate_EditableCollabs(t *testing.T) {
	gate, _, _ := newGate([]string{
		"collab-neuro-lab-administrator",
		"collab-neuro-lab-editor",
		"collab-alpha-editor",
		"collab-beta-viewer",
		"group-admins",
	})

	got, err := gate.EditableCollabs(t.Context(), token)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "neuro-lab"}, got)
}

func TestCollabID(t *testing.T) {
	assert.Equal(t, "neuro", auth.CollabID("collab-neuro"))
	assert.Equal(t, "computation", auth.CollabID("computation"))
	assert.True(t, auth.IsLegacyID("1234"))
	assert.False(t, auth.IsLegacyID("neuro"))
}

func ptr[T any](v T) *T { return &v }
