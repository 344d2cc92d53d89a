package TableDB

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nickyhof/TableDB/core"
	"github.com/nickyhof/TableDB/db"
	"github.com/nickyhof/TableDB/internal/config"
	"github.com/nickyhof/TableDB/op"
	"github.com/nickyhof/TableDB/ps"
)

// Instance is an open registry together with the repository its snapshots
// are committed to.
type Instance struct {
	Persistence *ps.Persistence

	cfg    *config.Config
	logger *slog.Logger

	mu       sync.RWMutex
	registry *op.Registry
}

// Open prepares the persistence named by cfg, restores the latest snapshot
// of cfg.Registry when one exists, and applies cfg.Schema on top.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Instance, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	persistence, err := openPersistence(cfg.Persistence, logger)
	if err != nil {
		return nil, err
	}

	instance := &Instance{
		Persistence: persistence,
		cfg:         cfg,
		logger:      logger,
	}
	if err := instance.load(); err != nil {
		return nil, err
	}

	if cfg.Schema != "" {
		if err := instance.ApplySchema(ctx, cfg.Schema); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

func openPersistence(cfg config.PersistenceConfig, logger *slog.Logger) (*ps.Persistence, error) {
	if cfg.BaseDir == "" {
		logger.Info("using memory persistence")
		persistence, err := ps.NewMemoryPersistence()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize memory persistence: %w", err)
		}
		return persistence, nil
	}

	logger.Info("using file persistence", "dir", cfg.BaseDir)
	var gitURL *string
	if cfg.GitURL != "" {
		gitURL = &cfg.GitURL
	}
	persistence, err := ps.NewFilePersistence(cfg.BaseDir, gitURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file persistence: %w", err)
	}
	return persistence, nil
}

// load replaces the registry with the HEAD snapshot, or an empty registry
// before the first snapshot.
func (instance *Instance) load() error {
	name := instance.cfg.Registry
	registry, err := instance.Persistence.LoadRegistry(name, op.WithLogger(instance.logger))
	switch {
	case errors.Is(err, ps.ErrNoSnapshot):
		instance.logger.Info("starting empty registry", "registry", name)
		registry = op.NewRegistry(name, op.WithLogger(instance.logger))
	case err != nil:
		return err
	default:
		instance.logger.Info("registry restored", "registry", name,
			"tables", len(registry.TableNames()),
			"transaction", instance.Persistence.LatestTransaction().ID)
	}

	instance.mu.Lock()
	instance.registry = registry
	instance.mu.Unlock()
	return nil
}

func (instance *Instance) Registry() *op.Registry {
	instance.mu.RLock()
	defer instance.mu.RUnlock()
	return instance.registry
}

// Engine returns an engine over the current registry that authors
// snapshots as identity.
func (instance *Instance) Engine(identity core.Identity) *db.Engine {
	return db.NewEngine(instance.Registry(),
		db.WithPersistence(instance.Persistence, identity),
		db.WithS3(instance.cfg.S3),
		db.WithLogger(instance.logger),
	)
}

// ApplySchema reads a schema file from path and creates the tables it
// declares. Tables the registry already holds are left alone, so a schema
// can be applied on every start.
func (instance *Instance) ApplySchema(ctx context.Context, path string) error {
	data, err := instance.ReadSource(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	file, err := op.ParseSchemaFile(data)
	if err != nil {
		return fmt.Errorf("schema %s: %w", path, err)
	}

	registry := instance.Registry()
	var pending []op.TableSchema
	for _, table := range file.Tables {
		if _, err := registry.GetTable(table.Name); err == nil {
			instance.logger.Debug("schema table exists", "table", table.Name)
			continue
		}
		pending = append(pending, table)
	}

	tables, err := registry.ApplySchemaFile(op.SchemaFile{Tables: pending})
	if err != nil {
		return fmt.Errorf("schema %s: %w", path, err)
	}
	instance.logger.Info("schema applied", "source", path, "created", len(tables))
	return nil
}

// ReadSource reads a local, http(s):// or s3:// file with the configured
// S3 credentials.
func (instance *Instance) ReadSource(ctx context.Context, path string) ([]byte, error) {
	return db.ReadSource(ctx, path, instance.cfg.S3)
}

// Snapshot commits the current registry as the configured identity.
func (instance *Instance) Snapshot(message string) (ps.Transaction, error) {
	return instance.Persistence.SaveRegistry(instance.Registry(), instance.cfg.Identity, message)
}

// Push publishes snapshots to the configured remote.
func (instance *Instance) Push() error {
	return instance.Persistence.Push(ps.DefaultRemote, &instance.cfg.Persistence.Remote)
}

// Pull fetches snapshots from the configured remote and reloads the
// registry from the new HEAD. Engines created before the pull keep the
// old registry.
func (instance *Instance) Pull() error {
	if err := instance.Persistence.Pull(ps.DefaultRemote, &instance.cfg.Persistence.Remote); err != nil {
		return err
	}
	return instance.load()
}
