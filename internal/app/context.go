package app

import (
	"database/sql"
	"fmt"
	"os"

	"garagedesk/internal/config"
	"garagedesk/internal/db"
	"garagedesk/internal/engine"
	"garagedesk/internal/migrate"
	"garagedesk/internal/notify"
)

// Context holds everything a command or server needs after bootstrap.
type Context struct {
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
}

// Options control bootstrap behavior.
type Options struct {
	Workspace string
	// GarageID seeds a config file when none exists. Empty means a
	// missing config is an error.
	GarageID string
	// Gateway renders records and delivers notifications. Nil falls back
	// to the logging gateway.
	Gateway notify.Gateway
}

// Open resolves the workspace, runs migrations, and loads (or seeds) the
// config file. Callers own closing ctx.DB.
func Open(opts Options) (*Context, error) {
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	cfg, err := resolveConfig(opts)
	if err != nil {
		conn.Close()
		return nil, err
	}
	gateway := opts.Gateway
	if gateway == nil {
		gateway = &notify.LogGateway{}
	}
	return &Context{
		DB:     conn,
		Config: cfg,
		Engine: engine.New(conn, cfg, gateway),
	}, nil
}

func resolveConfig(opts Options) (*config.Config, error) {
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}
	if opts.GarageID == "" {
		return nil, fmt.Errorf("config %s not found; run gd init first", config.Path(opts.Workspace))
	}
	path := config.Path(opts.Workspace)
	if err := os.WriteFile(path, []byte(config.GenerateDefault(opts.GarageID)), 0o644); err != nil {
		return nil, fmt.Errorf("seed config: %w", err)
	}
	return config.Load(opts.Workspace)
}

// Close releases bootstrap resources.
func (c *Context) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
