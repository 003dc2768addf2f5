package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"closetfit/internal/core"
)

var exportFlags struct {
	items []string
	out   string
	trace bool
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Compose the given items and render the outfit to PNG",
	Long: `Adds each item in order, as tap-to-add would, then renders the outfit.
The image is stored in the configured blob store under exports/ and, with --out,
also written to a local file.`,
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringSliceVar(&exportFlags.items, "items", nil, "comma-separated item ids (required)")
	f.StringVarP(&exportFlags.out, "out", "o", "", "also write the PNG to this path")
	f.BoolVar(&exportFlags.trace, "trace", false, "print composer spans as JSON lines to stderr")

	_ = exportCmd.MarkFlagRequired("items")
}

func runExport(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx := cmd.Context()
	notifier := &consoleNotifier{w: cmd.ErrOrStderr()}
	opts := a.composerOptions(core.WithNotifier(notifier))
	if exportFlags.trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(cmd.ErrOrStderr())))
	}
	c := core.NewComposer(opts...)
	defer c.Close()

	for _, id := range exportFlags.items {
		if err := c.AddByID(ctx, a.catalog, id); err != nil {
			return fmt.Errorf("%s: %w", id, notifier.userError(err))
		}
	}
	res, err := c.Export(ctx)
	if err != nil {
		return notifier.userError(err)
	}
	if exportFlags.out != "" {
		if err := os.WriteFile(exportFlags.out, res.Image, 0o644); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", res.FileName, res.Location)
	return nil
}
