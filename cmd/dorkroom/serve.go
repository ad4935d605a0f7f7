package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dorkroom/internal/adapters/httpapi"
	"dorkroom/internal/blob"
	"dorkroom/internal/core"
	"dorkroom/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		addr     string
		watch    bool
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read and admission HTTP API",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.withEngine(func(cmd *cobra.Command, _ []string) error {
		if addr == "" {
			addr = a.cfg.Server.Addr
		}
		var w *watcher.Watcher
		if watch {
			dir, err := a.watchDir()
			if err != nil {
				return err
			}
			w = watcher.New(dir, func(ctx context.Context) error {
				_, err := a.svc.Reload(ctx)
				return err
			}, watcher.WithDebounce(debounce), watcher.WithLogger(a.logger))
		}
		return a.serve(cmd.Context(), addr, w)
	})
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload when dataset files change (fs blob storage only)")
	cmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultDebounce, "quiet period before a watched change reloads")
	return cmd
}

// watchDir returns the directory holding the collection files, which only
// exists for the fs blob driver.
func (a *app) watchDir() (string, error) {
	driver := blob.Driver(a.cfg.Blob.Driver)
	if core.StorageDriver(a.cfg.Storage.Driver) != core.StorageBlob || (driver != "" && driver != blob.DriverFilesystem) {
		return "", errors.New("--watch requires blob storage with the fs driver")
	}
	return filepath.Join(a.cfg.Blob.FSRoot, filepath.FromSlash(a.cfg.Blob.Prefix)), nil
}

func (a *app) serve(ctx context.Context, addr string, w *watcher.Watcher) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           httpapi.NewHandler(a.svc, httpapi.WithLogger(a.logger), httpapi.WithGatherer(a.registry)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.logger.Info().Str("addr", ln.Addr().String()).Bool("watch", w != nil).Msg("serving")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if w != nil {
		g.Go(func() error { return w.Run(gctx, nil) })
	}
	err = g.Wait()
	a.logger.Info().Msg("server stopped")
	return err
}
