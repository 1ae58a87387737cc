// Package support parses support command flags and composes transport entrypoints.
package support

import (
	"context"
	"flag"
	"fmt"

	"github.com/emberworks/questline/internal/auth/token"
	entrypoint "github.com/emberworks/questline/internal/platform/cmd"
	server "github.com/emberworks/questline/internal/services/support/app"
)

// Config holds support command configuration.
type Config struct {
	HTTPAddr    string `env:"QUESTLINE_SUPPORT_HTTP_ADDR"    envDefault:":8093"`
	StoragePath string `env:"QUESTLINE_SUPPORT_STORAGE_PATH" envDefault:"support.db"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "support HTTP listen address")
	fs.StringVar(&cfg.StoragePath, "storage-path", cfg.StoragePath, "support sqlite storage path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the support app and serves it until the context ends.
func Run(ctx context.Context, cfg Config) error {
	tokenConfig, err := token.LoadConfigFromEnv(nil)
	if err != nil {
		return fmt.Errorf("load token config: %w", err)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSupport, func(context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:    cfg.HTTPAddr,
			StoragePath: cfg.StoragePath,
			Token:       tokenConfig,
		}); err != nil {
			return fmt.Errorf("serve support: %w", err)
		}
		return nil
	})
}
