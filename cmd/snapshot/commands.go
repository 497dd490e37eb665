package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"package-dashboard/internal/db"
	"package-dashboard/internal/importer"
	"package-dashboard/internal/migrations"
	"package-dashboard/internal/storage"
)

// connect opens the database and, when configured, the object store.
func connect(ctx context.Context) (*sqlx.DB, importer.ObjectStore, error) {
	dbase, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Storage.Enabled() {
		return dbase, nil, nil
	}
	s3c, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		dbase.Close()
		return nil, nil, err
	}
	return dbase, s3c, nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|s3://bucket/key>",
		Short: "Replace all packages with the contents of a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := migrations.Run(cfg.DatabaseURL); err != nil {
				return err
			}
			dbase, objects, err := connect(ctx)
			if err != nil {
				return err
			}
			defer dbase.Close()

			rc, err := importer.OpenSource(ctx, args[0], objects)
			if err != nil {
				return err
			}
			defer rc.Close()

			n, err := importer.Import(ctx, db.NewPackageStore(dbase), rc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d packages from %s\n", n, args[0])
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var toStore bool
	cmd := &cobra.Command{
		Use:   "export [file|s3://bucket/key]",
		Short: "Write every package to a snapshot",
		Long: `Write every package to a snapshot. Without a destination the snapshot
goes to stdout, or with --store to a new timestamped object in the bucket.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dbase, objects, err := connect(ctx)
			if err != nil {
				return err
			}
			defer dbase.Close()

			var buf bytes.Buffer
			n, err := importer.Export(ctx, db.NewPackageStore(dbase), &buf)
			if err != nil {
				return err
			}
			if len(args) == 0 && !toStore {
				_, err := os.Stdout.Write(buf.Bytes())
				return err
			}
			dest := ""
			if len(args) == 1 {
				dest = args[0]
			}
			where, err := importer.WriteDestination(ctx, dest, buf.Bytes(), objects)
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{"packages": n, "destination": where}).Info("snapshot exported")
			return nil
		},
	}
	cmd.Flags().BoolVar(&toStore, "store", false, "upload to the configured bucket when no destination is given")
	return cmd
}
