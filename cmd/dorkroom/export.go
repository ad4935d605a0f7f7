package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dorkroom/internal/blob"
	"dorkroom/internal/core"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		to                                 string
		sqlitePath, boltPath, postgresDSN  string
		blobDriver, fsRoot, prefix, bucket string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy the loaded dataset into another snapshot store",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.withEngine(func(cmd *cobra.Command, _ []string) error {
		opts := a.cfg.StorageOptions()
		opts.Driver = core.StorageDriver(to)
		flags := cmd.Flags()
		if flags.Changed("sqlite-path") {
			opts.SQLitePath = sqlitePath
		}
		if flags.Changed("bolt-path") {
			opts.BoltPath = boltPath
		}
		if flags.Changed("postgres-dsn") {
			opts.PostgresDSN = postgresDSN
		}
		if flags.Changed("blob-driver") {
			opts.Blob.Driver = blob.Driver(blobDriver)
		}
		if flags.Changed("fs-root") {
			opts.Blob.FSRoot = fsRoot
		}
		if flags.Changed("prefix") {
			opts.BlobPrefix = prefix
		}
		if flags.Changed("bucket") {
			opts.Blob.S3.Bucket = bucket
		}

		dst, err := core.OpenSnapshotStore(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("open export target: %w", err)
		}
		if c, ok := dst.(io.Closer); ok {
			defer c.Close()
		}
		if err := a.svc.Export(cmd.Context(), dst); err != nil {
			return err
		}
		stats, err := a.engine().Stats()
		if err != nil {
			return err
		}
		return a.print(map[string]any{"driver": opts.Driver, "counts": stats.Counts})
	})
	flags := cmd.Flags()
	flags.StringVar(&to, "to", "", "target store: memory, sqlite, postgres, bolt or blob")
	flags.StringVar(&sqlitePath, "sqlite-path", "", "sqlite file for --to sqlite")
	flags.StringVar(&boltPath, "bolt-path", "", "bolt file for --to bolt")
	flags.StringVar(&postgresDSN, "postgres-dsn", "", "connection string for --to postgres")
	flags.StringVar(&blobDriver, "blob-driver", "", "blob driver for --to blob: fs, s3 or memory")
	flags.StringVar(&fsRoot, "fs-root", "", "directory for the fs blob driver")
	flags.StringVar(&prefix, "prefix", "", "key prefix for --to blob")
	flags.StringVar(&bucket, "bucket", "", "bucket for the s3 blob driver")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
