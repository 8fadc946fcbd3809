package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/ofxhost/pkg/ofx"
	"github.com/platinummonkey/ofxhost/pkg/plugincache"
)

type listOptions struct {
	cacheFlags
	context string
	scan    bool
	asJSON  bool
}

func newListCommand(a *app) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the cached plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList(cmd.Context(), cmd.OutOrStdout(), &opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&opts.context, "context", "", "only list plugins supporting this context")
	cmd.Flags().BoolVar(&opts.scan, "scan", false, "scan the plugin directories before listing")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the plugins as JSON")
	return cmd
}

func (a *app) runList(ctx context.Context, out io.Writer, opts *listOptions) error {
	filter := ofx.ParseContextTag(opts.context)
	if opts.context != "" && filter == ofx.ContextNone {
		return fmt.Errorf("unknown context: %s", opts.context)
	}

	cache, err := a.loadCache(ctx, &opts.cacheFlags, opts.scan)
	if err != nil {
		return err
	}
	defer cache.Close()

	plugins := make([]*plugincache.Descriptor, 0)
	for _, d := range cache.Plugins() {
		if filter == ofx.ContextNone || d.SupportsContext(filter) {
			plugins = append(plugins, d)
		}
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(plugins)
	}
	if len(plugins) == 0 {
		fmt.Fprintln(out, "No plugins cached")
		return nil
	}
	fmt.Fprintln(out, pluginTable(plugins))
	return nil
}

func pluginTable(plugins []*plugincache.Descriptor) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("IDENTIFIER", "VERSION", "LABEL", "CONTEXTS", "MODULE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})

	for _, d := range plugins {
		contexts := make([]string, 0, len(d.Contexts))
		for _, c := range d.Contexts {
			contexts = append(contexts, c.String())
		}
		t.Row(
			d.Identifier,
			strconv.Itoa(d.VersionMajor)+"."+strconv.Itoa(d.VersionMinor),
			d.Label,
			strings.Join(contexts, ","),
			d.ModulePath,
		)
	}
	return t.Render()
}
