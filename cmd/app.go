package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/aiguard/console/internal/config"
	"github.com/aiguard/console/internal/credstore"
	"github.com/aiguard/console/internal/gateway"
	"github.com/aiguard/console/internal/identity"
	"github.com/aiguard/console/internal/identity/firebase"
	"github.com/aiguard/console/internal/monitoring"
	"github.com/aiguard/console/internal/services"
	"github.com/aiguard/console/internal/session"
	"github.com/aiguard/console/internal/tui"
	"github.com/aiguard/console/internal/utils"
)

// app is everything a command needs, built once per process.
type app struct {
	cfg      *config.Config
	debug    bool
	jsonOut  bool
	provider identity.Provider
	client   *gateway.Client
	svc      *services.Services
	store    *session.Store
	prompt   *tui.Prompter

	closers []func() error
}

// newApp wires config, logging, the identity provider, the gateway, the
// resource services and the session store, in that order.
func newApp(ctx context.Context, opts globalOptions) (*app, error) {
	config.LoadEnvFiles()

	path := opts.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.debug {
		cfg.Monitoring.Log.Level = "debug"
	}

	a := &app{
		cfg:     cfg,
		debug:   opts.debug,
		jsonOut: opts.jsonOut,
		prompt:  tui.NewPrompter(),
	}

	closeLog, err := monitoring.SetupLogger(cfg.Monitoring.Log)
	if err != nil {
		return nil, fmt.Errorf("setting up logger: %w", err)
	}
	a.closers = append(a.closers, closeLog)

	tracker, err := monitoring.NewTracker(cfg.Monitoring.Trace)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening request trace: %w", err)
	}
	a.closers = append(a.closers, tracker.Close)

	provider, err := a.buildProvider(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.provider = provider

	a.client = gateway.NewClient(cfg.API.BaseURL,
		gateway.WithTokenSource(provider),
		gateway.WithTimeout(cfg.API.Timeout),
		gateway.WithUserAgent(cfg.API.UserAgent),
		gateway.WithTracker(tracker),
	)
	a.svc = services.New(a.client)

	a.store = session.NewStore(provider, a.svc.Users, session.WithSyncTimeout(cfg.API.Timeout))
	a.client.OnAuthenticatedSuccess(a.store.ResyncIfSynthesized)
	a.store.Start(ctx)

	log.Debug().
		Str("base_url", cfg.API.BaseURL).
		Str("provider", cfg.Identity.Provider).
		Str("phase", a.store.Phase().String()).
		Msg("console ready")
	return a, nil
}

// buildProvider creates the configured identity provider and restores a
// saved session when persistence is on.
func (a *app) buildProvider(ctx context.Context) (identity.Provider, error) {
	cfg := a.cfg
	switch cfg.Identity.Provider {
	case config.ProviderMemory:
		log.Warn().Msg("memory identity provider: sessions last for this process only")
		return identity.NewMemoryProvider(), nil

	case config.ProviderFirebase:
		opts := []firebase.Option{
			firebase.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		}
		if cfg.Storage.Persist {
			creds, err := credstore.Open(ctx, cfg.Storage.CredentialsPath)
			if err != nil {
				return nil, fmt.Errorf("opening credential store: %w", err)
			}
			a.closers = append(a.closers, creds.Close)
			opts = append(opts, firebase.WithCredentialStore(creds))
		}

		p, err := firebase.New(cfg.Identity, opts...)
		if err != nil {
			return nil, err
		}
		if err := p.Restore(ctx); err != nil {
			if errors.Is(err, identity.ErrSessionExpired) {
				tui.PrintWarn("Saved session has expired. Please log in again.")
			} else {
				log.Warn().Err(err).Msg("could not restore saved session")
			}
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown identity provider %q", cfg.Identity.Provider)
}

// Close stops the session store and releases resources in reverse order.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.client != nil {
		log.Debug().Str("metrics", a.client.Metrics().String()).Msg("gateway metrics")
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Debug().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}

// requireSession fails unless a principal is signed in.
func (a *app) requireSession() (*session.Identity, error) {
	st := a.store.State()
	if st.Identity == nil {
		return nil, errors.New("not signed in; run 'aiguard login' first")
	}
	return st.Identity, nil
}

// emit prints v as JSON under --json, otherwise calls render.
func (a *app) emit(v any, render func()) error {
	if !a.jsonOut {
		render()
		return nil
	}
	data, err := utils.MarshalBody(v)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(tui.Out, string(data))
	return err
}
