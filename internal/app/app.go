// Package app assembles the task stack from configuration.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"golang.org/x/oauth2"

	"todosync/internal/backend/googletasks"
	"todosync/internal/cache"
	"todosync/internal/config"
	"todosync/internal/credstore"
	"todosync/internal/gateway"
	"todosync/internal/identity"
	"todosync/internal/kvstore"
	"todosync/internal/logging"
	"todosync/internal/service"
	"todosync/internal/tasksync"
)

// Identity is the sign-in surface used by commands.
type Identity interface {
	SignIn(ctx context.Context) (service.Credential, error)
	SignOut(ctx context.Context) error
	Profile(ctx context.Context) (service.Profile, bool, error)
}

// App holds the assembled components for one command run.
type App struct {
	Tasks    *tasksync.Orchestrator
	Identity Identity
	Logger   *slog.Logger

	kv kvstore.Store
}

// Deps are the pieces Assemble wires together.
type Deps struct {
	KV     kvstore.Store
	Remote service.Remote
	OAuth  *oauth2.Config // nil when no OAuth client is configured
	Logger *slog.Logger

	// IdentityOptions are passed to identity.New.
	IdentityOptions []identity.Option
}

// Assemble builds an App from explicit dependencies.
func Assemble(d Deps) *App {
	logger := logging.OrDefault(d.Logger)
	creds := credstore.New(d.KV, logger)
	snapshot := cache.New(d.KV, logger)

	opts := append([]identity.Option{identity.WithLogger(logger)}, d.IdentityOptions...)
	id := identity.New(d.OAuth, creds, d.KV, snapshot, opts...)

	gw := gateway.New(d.Remote, creds, id, d.KV, snapshot, gateway.WithLogger(logger))
	return &App{
		Tasks:    tasksync.New(gw, snapshot, logger),
		Identity: id,
		Logger:   logger,
		kv:       d.KV,
	}
}

// New opens the configured store and builds the Google-backed App.
// A missing OAuth client file is not an error here; sign-in and token
// refresh report it when they need it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, prompt io.Writer) (*App, error) {
	logger = logging.OrDefault(logger)
	if err := cfg.EnsureDir(); err != nil {
		return nil, err
	}

	kv, err := kvstore.Open(cfg)
	if err != nil {
		return nil, err
	}

	oc, err := identity.LoadOAuthConfig(cfg)
	if err != nil {
		if !errors.Is(err, identity.ErrNoOAuthClient) {
			kv.Close()
			return nil, err
		}
		logger.Debug("no oauth client configured", logging.Err(err))
		oc = nil
	}

	creds := credstore.New(kv, logger)
	remote, err := googletasks.New(ctx, creds.TokenSource(ctx), cfg.APITimeout)
	if err != nil {
		kv.Close()
		return nil, err
	}

	opts := []identity.Option{identity.WithPrompt(prompt)}
	if cfg.OpenBrowser {
		opts = append(opts, identity.WithOpener(identity.OpenBrowser))
	}

	return Assemble(Deps{
		KV:              kv,
		Remote:          remote,
		OAuth:           oc,
		Logger:          logger,
		IdentityOptions: opts,
	}), nil
}

// Close releases the store.
func (a *App) Close() error {
	if a.kv == nil {
		return nil
	}
	return a.kv.Close()
}
