package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/ofxhost/pkg/plugincache"
)

type lookupOptions struct {
	cacheFlags
	id     string
	label  string
	major  int
	scan   bool
	asJSON bool
}

func newLookupCommand(a *app) *cobra.Command {
	var opts lookupOptions

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Find a plugin by identifier or label and major version",
		Long: `Lookup resolves an identifier or label and a major version to a cached
plugin. When the major version is not cached an older one may answer,
depending on the configured version policy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLookup(cmd.Context(), cmd.OutOrStdout(), &opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&opts.id, "id", "", "plugin identifier")
	cmd.Flags().StringVar(&opts.label, "label", "", "plugin label")
	cmd.Flags().IntVar(&opts.major, "major", 1, "major version")
	cmd.Flags().BoolVar(&opts.scan, "scan", false, "scan the plugin directories before looking up")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the descriptor as JSON")
	cmd.MarkFlagsMutuallyExclusive("id", "label")
	cmd.MarkFlagsOneRequired("id", "label")
	return cmd
}

func (a *app) runLookup(ctx context.Context, out io.Writer, opts *lookupOptions) error {
	if opts.major < 0 {
		return errors.New("major version must not be negative")
	}

	cache, err := a.loadCache(ctx, &opts.cacheFlags, opts.scan)
	if err != nil {
		return err
	}
	defer cache.Close()

	var d *plugincache.Descriptor
	if opts.id != "" {
		d, err = cache.GetPluginByID(opts.id, opts.major)
	} else {
		d, err = cache.GetPluginByLabel(opts.label, opts.major)
	}
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	printDescriptor(out, d)
	return nil
}

func printDescriptor(out io.Writer, d *plugincache.Descriptor) {
	contexts := make([]string, 0, len(d.Contexts))
	for _, c := range d.Contexts {
		contexts = append(contexts, c.String())
	}
	flags := make([]string, 0, len(d.Flags))
	for _, f := range d.Flags {
		flags = append(flags, f.String())
	}

	fmt.Fprintf(out, "Identifier: %s\n", d.Identifier)
	fmt.Fprintf(out, "Version:    %d.%d\n", d.VersionMajor, d.VersionMinor)
	fmt.Fprintf(out, "Label:      %s\n", d.Label)
	fmt.Fprintf(out, "API:        %s v%d\n", d.API, d.APIVersion)
	fmt.Fprintf(out, "Contexts:   %s\n", strings.Join(contexts, ", "))
	if len(flags) > 0 {
		fmt.Fprintf(out, "Flags:      %s\n", strings.Join(flags, ", "))
	}
	fmt.Fprintf(out, "Module:     %s [%d]\n", d.ModulePath, d.Index)
}
