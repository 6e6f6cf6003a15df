package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/kaziapp/taggraph/internal/config"
	"github.com/kaziapp/taggraph/internal/logger"
	"github.com/kaziapp/taggraph/internal/registry"
	"github.com/kaziapp/taggraph/internal/sse"
	"github.com/kaziapp/taggraph/internal/store"
	"github.com/kaziapp/taggraph/internal/store/badgerdb"
	"github.com/kaziapp/taggraph/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.WithComponent("sse"))

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured store backend.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	s, err := OpenStore(cfg, log)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "backend", cfg.Storage.Backend, "path", cfg.StorePath())
	return &StoreHandle{Store: s}, nil
}

// OpenStore opens the backend named by cfg. It is shared with the admin CLI.
func OpenStore(cfg *config.Config, log *logger.Logger) (store.Store, error) {
	if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	if cfg.Storage.Backend == config.BackendBadger {
		s, err := badgerdb.Open(badgerdb.Options{Path: cfg.StorePath(), Logger: log.WithComponent("badger")})
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	s, err := sqlite.Open(cfg.StorePath(), log.WithComponent("sqlite"))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RegistryHandle wraps the type registry with shutdown capability.
type RegistryHandle struct {
	*registry.Registry
}

// Shutdown implements do.Shutdownable.
func (h *RegistryHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideRegistry provides the type registry and registers the seed object types.
func ProvideRegistry(i do.Injector) (*RegistryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	reg, err := NewRegistry(context.Background(), cfg, storeHandle.Store, log)
	if err != nil {
		return nil, err
	}
	return &RegistryHandle{Registry: reg}, nil
}

// NewRegistry builds the registry for cfg and ensures the seed object types exist.
func NewRegistry(ctx context.Context, cfg *config.Config, s store.Store, log *logger.Logger) (*registry.Registry, error) {
	reg, err := registry.New(s, registry.Options{
		ExtraItemTypes:         cfg.Types.ExtraItemTypes,
		ExtraRelationshipTypes: cfg.Types.ExtraRelationshipTypes,
	}, log.WithComponent("registry"))
	if err != nil {
		return nil, err
	}

	if err := reg.EnsureTypes(ctx, cfg.Types.SeedObjectTypes); err != nil {
		reg.Close()
		return nil, fmt.Errorf("seed object types: %w", err)
	}

	log.Info("Type registry ready",
		"item_types", len(reg.ItemTypes()),
		"relationship_types", len(reg.RelationshipTypes()),
		"seeded", len(cfg.Types.SeedObjectTypes),
	)
	return reg, nil
}
