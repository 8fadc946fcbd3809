package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/ofxhost/pkg/observability"
	"github.com/platinummonkey/ofxhost/pkg/watch"
)

type serveOptions struct {
	paths  []string
	listen string
	watch  bool
}

func newServeCommand(a *app, version string) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve plugin lookups over HTTP",
		Long: `Serve scans the plugin directories and answers lookups over HTTP.

Endpoints:
  GET  /api/v1/plugins                        all plugins (?context=filter)
  GET  /api/v1/plugins/id/{id}/{major}        lookup by identifier
  GET  /api/v1/plugins/label/{label}/{major}  lookup by label
  GET  /api/v1/modules                        module records (?failed=true)
  POST /api/v1/rescan                         scan now
  GET  /healthz, /metrics

The cache is rescanned on the configured cron schedule, and on filesystem
changes with --watch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd.Context(), &opts, version)
		},
	}
	cmd.Flags().StringSliceVar(&opts.paths, "path", nil, "plugin directory to scan (repeatable, default: the configured search path)")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "listen address (default: the configured address)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "rescan when plugin directories change")
	return cmd
}

func (a *app) runServe(ctx context.Context, opts *serveOptions, version string) error {
	svc, err := a.newService(ctx, opts.paths)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.rescanner.Rescan(ctx); err != nil {
		return err
	}

	listen := opts.listen
	if listen == "" {
		listen = a.cfg.Server.Listen
	}
	sc := a.cfg.Server
	httpServer := a.newServer(svc, version).HTTPServer(listen, sc.ReadTimeout, sc.WriteTimeout, sc.IdleTimeout)
	shutdown := observability.NewShutdownManager(a.log, httpServer, sc.ShutdownTimeout)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if schedule := a.cfg.Cache.RescanSchedule; schedule != "" {
		scheduler, err := watch.NewScheduler(svc.rescanner, schedule, a.log)
		if err != nil {
			return err
		}
		scheduler.Start()
		shutdown.OnShutdown("rescan scheduler", scheduler.Stop)
		a.log.Infof("Rescanning on schedule %q", schedule)
	}

	if opts.watch {
		stop, err := a.startWatcher(ctx, svc)
		if err != nil {
			return err
		}
		defer stop()
	}

	serveErr := make(chan error, 1)
	go func() {
		a.log.Infof("Serving plugin lookups on %s", listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancel()
		}
	}()

	err = shutdown.WaitForShutdown(ctx)
	select {
	case e := <-serveErr:
		return fmt.Errorf("server failed: %w", e)
	default:
	}
	return err
}
