package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/projectcolab/internal/api"
	"golang.org/x/sync/errgroup"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and realtime updates",
	Long: `Start the HTTP server.

Routes:
  /api/v1/...   projects, tasks, timeline, presence, alerts and import
  /ws           WebSocket: join a project channel to receive task and
                presence events
  /metrics      Prometheus metrics
  /health       liveness

The server stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		addr := serveAddr
		shutdownTimeout := 10 * time.Second
		if Config != nil {
			if addr == "" {
				addr = Config.Server.Addr
			}
			if Config.Server.ShutdownTimeout > 0 {
				shutdownTimeout = Config.Server.ShutdownTimeout
			}
		}
		if addr == "" {
			addr = ":8080"
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", addr, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s\n", ln.Addr())
		return runServer(ctx, ln, newRouter(), shutdownTimeout)
	},
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	deps := api.Deps{
		Tasks:    TaskMgr,
		Importer: Importer,
		WS:       RealtimeServer,
		Presence: Presence,
		Alerts:   AlertEngine,
		Logger:   Logger,
		Now:      now,
	}
	if Registry != nil {
		deps.Registerer = Registry
		deps.Gatherer = Registry
	}
	return api.NewRouter(deps)
}

// runServer serves handler on ln until ctx is cancelled, then drains open
// requests for at most timeout.
func runServer(ctx context.Context, ln net.Listener, handler http.Handler, timeout time.Duration) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		Logger.Info().Str("addr", ln.Addr().String()).Msg("http server started")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		Logger.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}
