package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/animal"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/channel"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/config"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/emoji"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/emotion"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/flow"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/gateway"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/index"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/metrics"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/provider"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/sanitize"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/stats"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/store"
)

var (
	version    = "1.0.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = newLogger("info")

	root := &cobra.Command{
		Use:   "chatbot",
		Short: "Emotion-aware Turkish chatbot with document Q&A and animal media",
		Long: "A Turkish conversational bot that classifies each message into one of five\n" +
			"flows (animal media, document Q&A, emotion chat, mood statistics, help) and\n" +
			"serves them over CLI, Web, Telegram, and Discord.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.chatbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(indexCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(backupCmd())
	root.AddCommand(restoreCmd())
	root.AddCommand(installDaemonCmd())
	root.AddCommand(uninstallDaemonCmd())
	root.AddCommand(wizardCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	logger = newLogger(cfg.General.LogLevel)
	return cfg, nil
}

// loadConfigOrDefaults is for commands that should still work before
// 'chatbot init' has ever run.
func loadConfigOrDefaults() *config.Config {
	cfg, err := loadConfig()
	if err != nil {
		logger.Warn("config not found, using defaults", "path", resolveConfigPath(), "err", err)
		return config.Defaults()
	}
	return cfg
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			dataDir := config.ExpandPath(cfg.General.DataDir)
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return err
			}
			docsDir := config.ExpandPath(cfg.Documents.Dir)
			if err := os.MkdirAll(docsDir, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "data", dataDir, "documents", docsDir)
			return nil
		},
	}
}

// app bundles the wired components a running command needs.
type app struct {
	cfg    *config.Config
	router *flow.Router
	index  *index.Engine
	audit  *store.Audit
}

// buildApp wires sanitizer, stores, provider chain, gateway, document
// index, and the per-flow engines into the top-level router.
func buildApp(cfg *config.Config) (*app, error) {
	san := sanitize.New(logger)

	var audit *store.Audit
	if cfg.Storage.AuditLog {
		a, err := store.NewAudit(cfg.Storage.AuditDB, logger)
		if err != nil {
			return nil, fmt.Errorf("audit store: %w", err)
		}
		audit = a
	}
	san.OnBlock(func(pattern string) {
		metrics.SanitizerBlocks.Inc()
		if audit != nil {
			audit.LogBlock(context.Background(), "", pattern, "")
		}
	})

	counters := store.NewCounters(cfg.Storage.CounterFile, logger)
	chatLog := store.NewChatLog(cfg.Storage.ChatLogFile, logger)
	emojis := emoji.Load(cfg.Emotion.EmojiFile, logger)

	factory := provider.NewFactory(cfg, logger)
	prov, err := factory.FailoverChain()
	if err != nil {
		return nil, fmt.Errorf("provider chain: %w", err)
	}
	logger.Info("provider ready", "provider", prov.Name())

	gw := gateway.New(prov, cfg.Router.OverflowFlow, logger)

	idx, err := index.New(cfg.Documents, logger)
	if err != nil {
		return nil, fmt.Errorf("document index: %w", err)
	}
	idx.Preload()

	fcfg := flow.Config{
		Sanitizer: san,
		Gateway:   gw,
		Retriever: idx,
		Emotion:   emotion.New(cfg.Emotion, gw, san, counters, chatLog, emojis, logger),
		Animal:    animal.New(cfg.Animal, gw, san, logger),
		Stats:     stats.New(counters, chatLog, logger),
		Logger:    logger,
		TopK:      cfg.Documents.SearchTopK,
	}
	if audit != nil {
		fcfg.Audit = audit
	}

	return &app{
		cfg:    cfg,
		router: flow.New(fcfg),
		index:  idx,
		audit:  audit,
	}, nil
}

func (a *app) Close() {
	if a.audit != nil {
		a.audit.Close()
	}
}

// warmIndex indexes the documents directory in the background so the
// first RAG question does not pay the full indexing cost.
func (a *app) warmIndex(ctx context.Context) {
	go func() {
		st, err := a.index.EnsureIndexed(ctx)
		if err != nil {
			logger.Warn("background indexing failed", "err", err)
			return
		}
		if !st.Skipped {
			logger.Info("documents indexed", "chunks", st.Indexed, "files", len(st.Files))
		}
	}()
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start interactive chat (CLI)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrDefaults()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			a.warmIndex(ctx)

			cli := channel.NewCLI(channel.CLIConfig{Logger: logger})
			return cli.Start(ctx, a.router)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start all enabled channels (Web, Telegram, Discord)",
		Long:  "Starts every channel enabled in the config and serves until Ctrl+C.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	a.warmIndex(ctx)

	var channels []domain.Channel
	if cfg.Channels.Web.Enabled {
		channels = append(channels, channel.NewWeb(cfg.Channels.Web, cfg.Metrics, logger))
	}
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		channels = append(channels, channel.NewTelegram(channel.TelegramConfig{
			Token:     cfg.Channels.Telegram.Token,
			AllowFrom: cfg.Channels.Telegram.AllowFrom,
			ParseMode: cfg.Channels.Telegram.ParseMode,
			Logger:    logger,
		}))
	}
	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token != "" {
		channels = append(channels, channel.NewDiscord(channel.DiscordConfig{
			Token:   cfg.Channels.Discord.Token,
			GuildID: cfg.Channels.Discord.GuildID,
			Logger:  logger,
		}))
	}
	if len(channels) == 0 {
		return fmt.Errorf("no channels enabled; enable at least one of channels.web / channels.telegram / channels.discord")
	}

	for _, ch := range channels {
		ch := ch
		go func() {
			if err := ch.Start(ctx, a.router); err != nil {
				logger.Error("channel error", "channel", ch.Name(), "err", err)
			}
		}()
		logger.Info("channel enabled", "channel", ch.Name())
	}

	logger.Info("chatbot started. Press Ctrl+C to stop.")
	<-ctx.Done()
	logger.Info("shutting down...")

	const shutdownTimeout = 10 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, ch := range channels {
			if err := ch.Stop(); err != nil {
				logger.Warn("channel stop failed", "channel", ch.Name(), "err", err)
			}
		}
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		return fmt.Errorf("shutdown timed out")
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := loadConfig()
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}
			logger.Info("data", "dir", config.ExpandPath(cfg.General.DataDir))

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			factory := provider.NewFactory(cfg, logger)
			if prov := factory.HealthyProvider(ctx); prov != nil {
				logger.Info("provider", "name", prov.Name(), "healthy", true)
			} else {
				logger.Info("provider", "healthy", false)
			}

			if idx, err := index.New(cfg.Documents, logger); err != nil {
				logger.Info("index", "available", false, "err", err)
			} else {
				logger.Info("index", "available", true, "chunks", idx.Count())
			}

			if cfg.Storage.AuditLog {
				audit, err := store.NewAudit(cfg.Storage.AuditDB, logger)
				if err != nil {
					logger.Info("audit", "available", false, "err", err)
				} else {
					defer audit.Close()
					entries, err := audit.Recent(ctx, 5)
					if err != nil {
						logger.Info("audit", "available", false, "err", err)
					} else {
						logger.Info("audit", "available", true, "recent", len(entries))
						for _, e := range entries {
							logger.Info("audit entry", "time", e.Time.Format(time.RFC3339),
								"kind", e.Kind, "channel", e.Channel, "detail", e.Detail)
						}
					}
				}
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. documents.chunkSize)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. channels.web.port 8080)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
