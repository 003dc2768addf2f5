package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"closetfit/internal/core"
)

var randomizeFlags struct {
	seed uint64
}

var randomizeCmd = &cobra.Command{
	Use:   "randomize",
	Short: "Print a random outfit drawn from the catalog",
	RunE:  runRandomize,
}

func init() {
	randomizeCmd.Flags().Uint64Var(&randomizeFlags.seed, "seed", 0, "seed for a reproducible outfit (0 picks one)")
}

func runRandomize(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	notifier := &consoleNotifier{w: cmd.ErrOrStderr()}
	opts := a.composerOptions(core.WithNotifier(notifier))
	if randomizeFlags.seed != 0 {
		opts = append(opts, core.WithRNG(newSeededRNG(randomizeFlags.seed)))
	}
	c := core.NewComposer(opts...)
	defer c.Close()

	if err := c.RandomizeFrom(cmd.Context(), a.catalog); err != nil {
		return notifier.userError(err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(c.Outfit())
}
