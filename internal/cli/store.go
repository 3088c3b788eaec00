package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/roster/internal/membership"
	"github.com/mesh-intelligence/roster/internal/records"
	pgstore "github.com/mesh-intelligence/roster/pkg/postgres"
	sqlitestore "github.com/mesh-intelligence/roster/pkg/sqlite"
	"github.com/mesh-intelligence/roster/pkg/types"
)

// openStore attaches the configured backend. The caller must Detach it.
func (a *app) openStore(logger *zap.Logger) (types.Store, error) {
	cfg := a.storeConfig()
	if err := cfg.Validate(); err != nil {
		return nil, userError(fmt.Errorf("invalid configuration: %w", err))
	}

	var store types.Store
	switch cfg.Backend {
	case types.BackendPostgres:
		store = pgstore.NewBackend(logger)
	default:
		store = sqlitestore.NewBackend(logger)
	}
	if err := store.Attach(cfg); err != nil {
		return nil, sysError(fmt.Errorf("attach %s backend: %w", cfg.Backend, err))
	}
	return store, nil
}

// services bundles what the one-shot commands work with.
type services struct {
	manager *membership.Manager
	members *records.MemberService
	groups  *records.GroupService
}

// withServices attaches the store, runs fn and detaches. Business rejections
// are reported by the command itself, so the logger only passes warnings.
func (a *app) withServices(ctx context.Context, fn func(context.Context, *services) error) (err error) {
	logger := a.logger.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))
	store, err := a.openStore(logger)
	if err != nil {
		return err
	}
	defer func() {
		if derr := store.Detach(); derr != nil && err == nil {
			err = sysError(fmt.Errorf("detach: %w", derr))
		}
	}()

	v := records.NewValidator()
	svc := &services{
		manager: membership.NewManager(store, membership.WithLogger(logger)),
		members: records.NewMemberService(store, v),
		groups:  records.NewGroupService(store, v),
	}
	return classify(fn(ctx, svc))
}
