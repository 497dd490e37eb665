// Command snapshot loads a package snapshot into the database or dumps the
// database back out, without going through the task queue.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"package-dashboard/internal/config"
)

var (
	configFile string
	verbose    bool
	cfg        *config.Config
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "snapshot",
		Short:         "Import and export package build-status snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if verbose {
				c.LogLevel = "debug"
			}
			config.SetupLogging(c.LogLevel)
			cfg = c
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", os.Getenv("CONFIG_FILE"), "config file (env vars take precedence)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newImportCmd(), newExportCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
