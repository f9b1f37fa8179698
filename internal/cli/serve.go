package cli

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/soyeahso/parley/internal/chat"
	"github.com/soyeahso/parley/internal/config"
	"github.com/soyeahso/parley/internal/contextcache"
	"github.com/soyeahso/parley/internal/gateway"
	"github.com/soyeahso/parley/internal/llm"
	"github.com/soyeahso/parley/internal/store"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			dbPath := cfg.Storage.Path
			if dbPath == "" {
				dbPath = filepath.Join(paths.Data, "parley.db")
			}
			db, err := store.Open(dbPath, log)
			if err != nil {
				return err
			}
			defer db.Close()

			cache := contextcache.NewMemory(
				cfg.Context.MaxTurns,
				time.Duration(cfg.Context.TTLMinutes)*time.Minute,
				log,
			)
			defer cache.Close()

			var gen llm.Generator
			switch cfg.Generator.Provider {
			case "openai":
				gen = llm.NewOpenAI(cfg.Generator.APIKey, cfg.Generator.BaseURL, cfg.Generator.Model)
			default:
				gen = &llm.MockGenerator{}
			}
			log.Info().Str("provider", gen.Name()).Msg("reply generator ready")

			svc := chat.NewService(store.NewChatStore(db), cache, gen, log)
			srv := gateway.NewServer(cfg.Server.Port, cfg.Server.Bind, svc, log)

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, all)")

	return cmd
}
