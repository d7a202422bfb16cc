package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/kalambet/talentflow/internal/bus"
	"github.com/kalambet/talentflow/internal/config"
	"github.com/kalambet/talentflow/internal/notify"
	"github.com/kalambet/talentflow/internal/remote"
)

// loadConfig is replaced in tests.
var loadConfig = config.Load

// clientApp is the per-invocation client state: the remote binding, the
// event hub shared by the stores and the notification center listening on it.
type clientApp struct {
	cfg    config.Config
	remote *remote.Client
	hub    *bus.Hub
	toasts *notify.Center
	detach func()
}

func newClientApp() (*clientApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	token := cfg.Server.APIToken
	if token == "" {
		token, err = config.APIToken(config.NewKeychain())
		if err != nil {
			return nil, fmt.Errorf("getting API token: %w", err)
		}
	}

	app := &clientApp{
		cfg:    cfg,
		remote: remote.NewClient(cfg.Server.BaseURL, token, cfg.Client.Timeout),
		hub:    bus.NewHub(),
		toasts: notify.NewCenter(cfg.Notify.Duration),
	}
	app.detach = app.toasts.Attach(app.hub)
	slog.Debug("client ready", "base_url", cfg.Server.BaseURL)
	return app, nil
}

func (a *clientApp) Close() {
	if a.detach != nil {
		a.detach()
	}
}

// failure returns the first error notification raised during the command,
// printing every active notification on the way.
func (a *clientApp) failure() error {
	var first error
	for _, t := range a.toasts.Active() {
		switch t.Kind {
		case notify.Error:
			printError("%s", t.Message)
			if first == nil {
				first = errors.New(t.Message)
			}
		case notify.Success:
			printSuccess("%s", t.Message)
		default:
			printStep("%s", t.Message)
		}
	}
	return first
}
