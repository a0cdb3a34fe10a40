package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"scrolldoc/internal/engine"
	"scrolldoc/internal/prefs"
	"scrolldoc/internal/scene"
	"scrolldoc/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the document viewer",
	Long:  `Starts the scrolldoc server: the embedded viewer shell, the region content API and the websocket event bridge for one document session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort != 0 {
			cfg.Port = servePort
		}

		man, err := loadManifest(cfg)
		if err != nil {
			return fmt.Errorf("loading manifest: %w", err)
		}
		if len(man.Regions) == 0 {
			return fmt.Errorf("no regions found in %s", cfg.ContentDir)
		}

		// Open the preferences store.
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		dbPath := filepath.Join(cfg.DataDir, "scrolldoc.db")
		store, err := prefs.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening preferences store: %w", err)
		}
		defer store.Close()

		// Compose and start the session engine.
		eng := engine.New(cfg, man, buildFetcher(cfg), scene.NewRegistry(nil))
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go eng.Run(ctx)
		defer eng.Close()

		srv := server.New(server.Config{
			Port:      cfg.Port,
			AllowAll:  cfg.AllowAll,
			Authoring: cfg.Authoring,
		}, eng, store)

		// Graceful shutdown.
		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "scrolldoc v%s serving %q on port %d\n", Version, man.Title, cfg.Port)
		fmt.Fprintf(os.Stderr, "  Regions: %d\n", len(man.Regions))
		fmt.Fprintf(os.Stderr, "  Preferences: %s\n", dbPath)
		if cfg.Authoring {
			fmt.Fprintln(os.Stderr, "  Authoring mode: on (cache-defeating fetches)")
		}

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
