package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newWatchCommand(a *app) *cobra.Command {
	var paths []string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the cache current as plugin directories change",
		Long: `Watch scans the plugin directories once, then rescans and saves the
cache whenever a module is added, changed or removed. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd.Context(), paths)
		},
	}
	cmd.Flags().StringSliceVar(&paths, "path", nil, "plugin directory to watch (repeatable, default: the configured search path)")
	return cmd
}

func (a *app) runWatch(ctx context.Context, paths []string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := a.newService(ctx, paths)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.rescanner.Rescan(ctx); err != nil {
		return err
	}

	stopWatcher, err := a.startWatcher(ctx, svc)
	if err != nil {
		return err
	}
	<-ctx.Done()
	stopWatcher()
	a.log.Info("Stopped watching")
	return nil
}
