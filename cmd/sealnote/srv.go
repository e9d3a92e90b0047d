package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sealnote/internal/blobstore"
	"sealnote/internal/config"
	"sealnote/internal/server"
	"sealnote/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the sealnote API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Storage.DataDir, 0o700); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}

			ctx := cmd.Context()
			logger.Info("opening note store", "backend", cfg.Storage.Backend, "data_dir", cfg.Storage.DataDir)
			st, err := store.Open(ctx, storeOptions(cfg))
			if err != nil {
				return err
			}
			defer st.Close()

			bs, err := blobstore.Open(cfg.Storage.BlobBackend, cfg.BlobDir(), cfg.Limits.MaxAttachmentBytes)
			if err != nil {
				return err
			}

			srv := server.New(addr, st, bs, server.Options{
				MaxRequestBytes: cfg.Limits.MaxRequestBytes,
				WriteRPS:        cfg.Limits.WriteRPS,
				WriteBurst:      cfg.Limits.WriteBurst,
			}, logger)
			return srv.ListenAndServe(ctx)
		},
	}
}

func storeOptions(cfg *config.Config) store.Options {
	return store.Options{
		Backend:  cfg.Storage.Backend,
		DataDir:  cfg.Storage.DataDir,
		DBPath:   cfg.Storage.DBPath,
		MySQLDSN: cfg.Storage.MySQLDSN,
		Logger:   slog.Default().With("component", "store"),
	}
}
