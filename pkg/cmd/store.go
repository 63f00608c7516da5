package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ebrains-prov/provenance-api/pkg/auth"
	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/kg/file"
	"github.com/ebrains-prov/provenance-api/pkg/kg/kgcore"
	"github.com/ebrains-prov/provenance-api/pkg/kg/postgres"
	"go.opentelemetry.io/otel/trace"
)

// NewConnector selects the graph store backend from host. A "file://" host
// keeps instances on local disk and a "postgres://" URL keeps them in a
// database, both with accounts taken from the identity provider's userinfo.
// Anything else is a KG core API host.
func NewConnector(
	ctx context.Context,
	host string,
	identity auth.IdentityProvider,
	logger *slog.Logger,
	tracer trace.Tracer,
) (kg.Connector, error) {
	switch {
	case strings.HasPrefix(host, "file://"):
		return file.NewConnector(host, accountFromIdentity(identity)), nil
	case strings.HasPrefix(host, "postgres://"), strings.HasPrefix(host, "postgresql://"):
		conn, err := postgres.NewConnector(ctx, logger, host, accountFromIdentity(identity))
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}

		return conn, nil
	default:
		return kgcore.NewConnector(host, logger, kgcore.WithTracer(tracer)), nil
	}
}

func accountFromIdentity(identity auth.IdentityProvider) kg.AccountFunc {
	return func(ctx context.Context, token string) (*kg.Account, error) {
		user, err := identity.UserInfo(ctx, token)
		if err != nil {
			return nil, err
		}

		return &kg.Account{
			Username:   user.Username,
			GivenName:  user.GivenName,
			FamilyName: user.FamilyName,
		}, nil
	}
}
