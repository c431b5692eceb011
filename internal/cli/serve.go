package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"item-console/internal/itemsapi"
	"item-console/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var dbPath string
	var frontendOrigin string
	var noCompress bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local items service (sqlite-backed) to develop against",
		Long: strings.TrimSpace(`
Run the items API the console talks to, backed by a sqlite file.

Routes: GET/POST /items/, PUT/DELETE /items/{item_id}, and GET /cdc/items for the
change journal. Logs are JSON lines on stderr (or --log-file).
`),
		Example: strings.TrimSpace(`
# Serve on the default address with ./sqlite.db
itemconsole serve

# In-memory database on a random port
itemconsole serve --addr 127.0.0.1:0 --db :memory:
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				return writeErr(cmd, errors.New("serve: missing --addr"))
			}

			log := app.logger()
			log.SetFormatter(&logrus.JSONFormatter{})
			gin.SetMode(gin.ReleaseMode)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := store.OpenItemStore(ctx, dbPath, log)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			srv, err := itemsapi.NewServer(itemsapi.ServerConfig{
				FrontendOrigin:     frontendOrigin,
				DisableCompression: noCompress,
			}, st, log)
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}

			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + "/"
			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actualAddr,
					"url":       url,
					"db":        dbPath,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "Items service running at %s (db=%s)\n", url, dbPath)

			return serveUntilDone(ctx, ln, srv.Handler(), log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", app.cfg.ServeAddr, "Bind address (host:port or :port)")
	cmd.Flags().StringVar(&dbPath, "db", app.cfg.ServeDB, "sqlite database path (:memory: for a throwaway store)")
	cmd.Flags().StringVar(&frontendOrigin, "frontend-origin", app.cfg.FrontendOrigin, "Origin allowed by CORS (* for any)")
	cmd.Flags().BoolVar(&noCompress, "no-compress", false, "Disable gzip/brotli response compression")
	return cmd
}

// serveUntilDone serves on ln until ctx is cancelled, then drains for up to 5s.
func serveUntilDone(ctx context.Context, ln net.Listener, h http.Handler, log *logrus.Logger) error {
	hs := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- hs.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Serve: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
