package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/raketrapport/raket/internal/auditlog"
	"github.com/raketrapport/raket/internal/config"
	"github.com/raketrapport/raket/internal/logging"
	"github.com/raketrapport/raket/internal/report"
	"github.com/raketrapport/raket/internal/rules"
	"github.com/raketrapport/raket/internal/storage/postgres"
	"github.com/raketrapport/raket/internal/tax"
)

type globalOptions struct {
	configPath string
	logLevel   string
	envFile    string
}

// env is what a command needs once configuration is loaded.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	catalog *rules.Catalog
	store   *postgres.Store // nil unless rules come from postgres
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	if o.envFile != "" {
		if err := config.LoadEnvFile(o.envFile); err != nil {
			return nil, err
		}
	}
	path := o.configPath
	if path == "" {
		if _, err := os.Stat(config.FileName); err == nil {
			path = config.FileName
		}
	}
	return config.Load(path)
}

// open loads configuration, builds the logger and compiles the rule catalog.
// The caller must call close.
func (o *globalOptions) open(ctx context.Context) (*env, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging, o.logLevel)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, logger: logger}
	src, err := e.source(ctx)
	if err != nil {
		e.close()
		return nil, err
	}
	cat, err := rules.LoadCatalog(ctx, src)
	if err != nil {
		e.close()
		if errors.Is(err, rules.ErrMalformedTable) {
			logger.Error("rule tables rejected", zap.String("op", "commands.open"), zap.Error(err))
		}
		return nil, fmt.Errorf("loading rules from %s: %w", cfg.Rules.Source, err)
	}
	e.catalog = cat
	return e, nil
}

func (e *env) source(ctx context.Context) (rules.Source, error) {
	switch e.cfg.Rules.Source {
	case config.SourceFile:
		return rules.LoadFile(e.cfg.Rules.Path)
	case config.SourcePostgres:
		store, err := postgres.Open(ctx, e.cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		e.store = store
		return store, nil
	}
	return rules.Builtin(), nil
}

func (e *env) reports() *report.Service {
	return report.NewService(tax.NewService(e.catalog), auditlog.New(e.cfg.Audit.Dir), e.logger)
}

func (e *env) close() {
	if e.store != nil {
		e.store.Close()
	}
	_ = e.logger.Sync()
}
