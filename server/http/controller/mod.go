// Package controller implements the initializer that runs the HTTP server of
// the node.
package controller

import (
	"go.dedis.ch/jellybean"
	"go.dedis.ch/jellybean/cli"
	"go.dedis.ch/jellybean/cli/config"
	"go.dedis.ch/jellybean/cli/node"
	"go.dedis.ch/jellybean/core/ordering"
	"go.dedis.ch/jellybean/server/http"
	"golang.org/x/xerrors"
)

// miniController is the initializer of the HTTP server. The server listens on
// the address of the configuration and is disabled when it is empty.
//
// - implements node.Initializer
type miniController struct{}

// NewController returns a new initializer of the HTTP server.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. In this case we don't need any
// command, the address is a flag of the configuration.
func (miniController) SetCommands(builder node.Builder) {}

// OnStart implements node.Initializer. It starts the server with the routes
// of the state and the metrics, and injects it.
func (miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	var cfg config.Config
	err := inj.Resolve(&cfg)
	if err != nil {
		return xerrors.Errorf("failed to resolve config: %v", err)
	}

	if cfg.HTTPAddr == "" {
		jellybean.Logger.Info().Msg("http server disabled")
		return nil
	}

	var srvc ordering.Service
	err = inj.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("failed to resolve ordering service: %v", err)
	}

	srv := http.NewHTTP(cfg.HTTPAddr)

	http.RegisterRoutes(srv, srvc)

	err = http.RegisterMetrics(srv)
	if err != nil {
		return xerrors.Errorf("metrics: %v", err)
	}

	err = srv.Listen()
	if err != nil {
		return xerrors.Errorf("failed to start server: %v", err)
	}

	inj.Inject(srv)

	return nil
}

// OnStop implements node.Initializer. It stops the server if it is running.
func (miniController) OnStop(inj node.Injector) error {
	var srv *http.HTTP
	err := inj.Resolve(&srv)
	if err != nil {
		return nil
	}

	err = srv.Stop()
	if err != nil {
		return xerrors.Errorf("failed to stop server: %v", err)
	}

	return nil
}
