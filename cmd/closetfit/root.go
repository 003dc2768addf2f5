// closetfit serves outfit composition sessions and offers catalog and export
// commands against the same configuration.
//
// Usage:
//
//	closetfit serve [--addr=:8080]
//	closetfit catalog import <file.yaml>
//	closetfit catalog list [--category=top] [--search=tee] [--sort=name]
//	closetfit randomize [--seed=42]
//	closetfit export --items=a,b,c [--out=outfit.png]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
}

var rootCmd = &cobra.Command{
	Use:   "closetfit",
	Short: "Compose outfits from a clothing catalog",
	Long:  "closetfit runs the outfit composition service: slot routing, drag and drop,\nreordering, randomization and PNG export over a clothing catalog.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", "", "YAML config file (default $CLOSETFIT_CONFIG)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(randomizeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
