package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BioHazard786/sdprelay/internal/config"
	"github.com/BioHazard786/sdprelay/internal/logging"
	"github.com/BioHazard786/sdprelay/internal/metrics"
	"github.com/BioHazard786/sdprelay/internal/server"
	"github.com/BioHazard786/sdprelay/internal/signaling"
	"github.com/BioHazard786/sdprelay/internal/version"
)

const shutdownTimeout = 10 * time.Second

var (
	serveOpts        config.ServerOptions
	flagErrorReplies bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling relay",
	Long: `Run the signaling relay.

Every flag can also be set through the environment variable named in its
help text. Flags win over the environment.

Examples:
  sdprelay serve
  sdprelay serve --addr :9000 --origins https://app.example
  ROOM_TTL=0 sdprelay serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		serveOpts.LogLevel = flagLogLevel
		if cmd.Flags().Changed("error-replies") {
			serveOpts.ErrorReplies = &flagErrorReplies
		}
		cfg, err := config.LoadServer(serveOpts)
		if err != nil {
			return err
		}
		log, err := logging.New(cfg.LogLevel, false)
		if err != nil {
			return err
		}
		defer log.Sync()

		return serve(cmd.Context(), cfg, log)
	},
}

func serve(ctx context.Context, cfg *config.Server, log *zap.Logger) error {
	m := metrics.New()
	reg := signaling.NewRegistry(signaling.WithTTL(cfg.RoomTTL))
	m.TrackRooms(reg.Len)

	hub := signaling.NewHub(reg, signaling.HubOptions{
		Logger:       log,
		Metrics:      m,
		ErrorReplies: cfg.ErrorReplies,
	})

	if cfg.RoomTTL > 0 {
		go reg.RunSweeper(ctx, cfg.SweepInterval, func(n int) {
			m.RoomsEvicted.Add(float64(n))
			log.Info("evicted idle rooms", zap.Int("count", n))
		})
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.NewRouter(cfg, hub, m, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting signaling relay",
			zap.String("addr", cfg.ListenAddr),
			zap.Strings("origins", cfg.AllowedOrigins),
			zap.Duration("room_ttl", cfg.RoomTTL),
			zap.Bool("error_replies", cfg.ErrorReplies),
			zap.String("version", version.Version),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.StringVarP(&serveOpts.ListenAddr, "addr", "a", "", "Listen address (env LISTEN_ADDR, default "+config.DefaultListenAddr+")")
	f.StringVar(&serveOpts.AllowedOrigins, "origins", "", "Comma separated allowed origins, * for any (env ALLOWED_ORIGINS)")
	f.StringVar(&serveOpts.RoomTTL, "room-ttl", "", "Evict rooms idle this long, 0 disables (env ROOM_TTL, default 30m)")
	f.StringVar(&serveOpts.SweepInterval, "sweep-interval", "", "How often idle rooms are swept (env SWEEP_INTERVAL, default 1m)")
	f.IntVar(&serveOpts.SendBuffer, "send-buffer", 0, "Per connection outbox size (env SEND_BUFFER, default 256)")
	f.Int64Var(&serveOpts.MaxMessageBytes, "max-message-bytes", 0, "Largest accepted frame (env MAX_MESSAGE_BYTES, default 65536)")
	f.BoolVar(&flagErrorReplies, "error-replies", false, "Reply to malformed or unknown requests with an error (env ERROR_REPLIES)")
}
