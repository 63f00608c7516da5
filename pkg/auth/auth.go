// Package auth decides who may modify provenance records. It reads the
// caller's team memberships from the identity provider and falls back to
// the collaboration service for visibility of collaborations the caller is
// not a member of.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
)

const collabPrefix = "collab-"

var (
	// ErrUnauthorized indicates the bearer token was rejected by the identity
	// provider.
	ErrUnauthorized = errors.New("invalid or expired token")

	// ErrInvalidCollab indicates the collaboration service could not describe
	// the requested collaboration.
	ErrInvalidCollab = errors.New("invalid collab id")
)

// Role is a collaboration team role.
type Role int

const (
	RoleNone Role = iota
	RoleViewer
	RoleEditor
	RoleAdministrator
)

var roleNames = map[Role]string{
	RoleViewer:        "viewer",
	RoleEditor:        "editor",
	RoleAdministrator: "administrator",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}

	return "none"
}

// Permissions is what a caller may do within one collaboration.
type Permissions struct {
	View   bool `json:"VIEW"`
	Update bool `json:"UPDATE"`
	Delete bool `json:"DELETE"`
}

// PermissionsFor returns the permissions granted by role.
func PermissionsFor(role Role) Permissions {
	return Permissions{
		View:   role >= RoleViewer,
		Update: role >= RoleEditor,
		Delete: role >= RoleAdministrator,
	}
}

// CollabID strips the "collab-" prefix from a space name.
func CollabID(space string) string {
	return strings.TrimPrefix(space, collabPrefix)
}

// IsLegacyID reports whether id is a numeric identifier from the first
// generation of the collaboration service. Those never appear in team
// claims.
func IsLegacyID(id string) bool {
	_, err := strconv.Atoi(id)
	return err == nil
}

// HighestRole scans team names of the form "collab-<id>-<role>" and returns
// the strongest role held in collaboration id.
func HighestRole(teams []string, id string) Role {
	highest := RoleNone

	for role, name := range roleNames {
		if role > highest && slices.Contains(teams, collabPrefix+id+"-"+name) {
			highest = role
		}
	}

	return highest
}

// Gate answers whether a caller may modify records stored in a space.
type Gate struct {
	identity IdentityProvider
	collabs  CollabService
	logger   *slog.Logger
}

func NewGate(identity IdentityProvider, collabs CollabService, logger *slog.Logger) *Gate {
	return &Gate{
		identity: identity,
		collabs:  collabs,
		logger:   logger.With("module", "auth"),
	}
}

// Permissions returns what the caller may do in the collaboration owning
// space. Team claims decide first; without a matching team the
// collaboration service is asked whether the collaboration is public, which
// grants viewing only.
func (g *Gate) Permissions(ctx context.Context, space, token string) (Permissions, error) {
	id := CollabID(space)

	if !IsLegacyID(id) {
		user, err := g.identity.UserInfo(ctx, token)
		if err != nil {
			return Permissions{}, err
		}

		if role := HighestRole(user.Teams, id); role != RoleNone {
			g.logger.DebugContext(ctx, "permissions from team claims", "collab", id, "role", role.String())

			return PermissionsFor(role), nil
		}
	}

	public, err := g.collabs.IsPublic(ctx, id, token)
	if err != nil {
		return Permissions{}, err
	}

	if public {
		return PermissionsFor(RoleViewer), nil
	}

	return Permissions{}, nil
}

// MayModify reports whether the caller may replace, patch or delete records
// in space: always in their private space, otherwise only as administrator
// of the owning collaboration.
func (g *Gate) MayModify(ctx context.Context, space, token string) (bool, error) {
	if space == kg.MySpace {
		return true, nil
	}

	perms, err := g.Permissions(ctx, space, token)
	if err != nil {
		return false, err
	}

	return perms.Delete, nil
}

// EditableCollabs lists, sorted, the collaborations in which the caller is
// an editor or administrator.
func (g *Gate) EditableCollabs(ctx context.Context, token string) ([]string, error) {
	user, err := g.identity.UserInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	var ids []string

	for _, team := range user.Teams {
		if !strings.HasSuffix(team, "-editor") && !strings.HasSuffix(team, "-administrator") {
			continue
		}

		parts := strings.Split(team, "-")
		if len(parts) < 3 {
			continue
		}

		ids = append(ids, strings.Join(parts[1:len(parts)-1], "-"))
	}

	slices.Sort(ids)

	return slices.Compact(ids), nil
}
