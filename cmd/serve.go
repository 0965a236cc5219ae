package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/Rana718/datagen/internal/config"
	"github.com/Rana718/datagen/internal/server"
	"github.com/Rana718/datagen/internal/session"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	servePort  int
	serveSinks []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the datagen JSON API",
	Long: `Start an HTTP API for generating, browsing, exporting and transferring
tables. Clients keep their session by echoing the X-Session-ID header.`,
	Example: `  datagen serve
  datagen serve --port 3000 --sink store,file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, cfg, err := openEngine(ctx, serveSinks)
		if err != nil {
			return err
		}
		defer e.Close()

		sessions, closeSessions, err := openSessions(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeSessions()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := server.NewServer(e, sessions, cfg)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		errChan := make(chan error, 1)
		go func() {
			errChan <- srv.Start(port)
		}()

		color.Cyan("📦 Sinks: %v", e.SinkNames())
		color.Cyan("🗂  Sessions: %s", cfg.Session.Backend)

		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return srv.Shutdown()
		case err := <-errChan:
			return err
		}
	},
}

func openSessions(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	ttl, err := cfg.Session.Expiry()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Session.Backend != "redis" {
		return session.NewMemoryStore(ttl), func() {}, nil
	}

	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, nil, fmt.Errorf("session backend is redis but %s is not set", cfg.Session.RedisURLEnv)
	}

	store, err := session.NewRedisStore(ctx, redisURL, ttl)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	color.Cyan("🔗 Redis: %s", maskDBURL(redisURL))
	return store, func() { store.Close() }, nil
}

func maskDBURL(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil || u.User == nil {
		return dbURL
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config, 5555)")
	serveCmd.Flags().StringSliceVarP(&serveSinks, "sink", "s", nil, "Sinks generated tables are written to; default from config")
}
