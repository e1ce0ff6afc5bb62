package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on the chatbot installation",
		Long: `Verifies that the configuration, providers, storage files, and documents
directory are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("Chatbot Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				failed++
				fmt.Printf("\nRun 'chatbot init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
			} else {
				printPass("Config validation", "valid")
				passed++
			}

			if cfg == nil {
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return nil
			}

			// 3. Data directory
			dataDir := config.ExpandPath(cfg.General.DataDir)
			if info, err := os.Stat(dataDir); err != nil {
				printWarn("Data dir", fmt.Sprintf("not found: %s (created on first run)", dataDir))
				warned++
			} else if !info.IsDir() {
				printFail("Data dir", fmt.Sprintf("not a directory: %s", dataDir))
				failed++
			} else {
				printPass("Data dir", dataDir)
				passed++
			}

			// 4. Documents directory
			docsDir := config.ExpandPath(cfg.Documents.Dir)
			if info, err := os.Stat(docsDir); err != nil || !info.IsDir() {
				printWarn("Documents dir", fmt.Sprintf("not found: %s (document questions will fall back to help)", docsDir))
				warned++
			} else {
				entries, _ := os.ReadDir(docsDir)
				printPass("Documents dir", fmt.Sprintf("%s (%d entries)", docsDir, len(entries)))
				passed++
			}

			// 5. Audit database writable
			if cfg.Storage.AuditLog {
				if err := checkDatabase(cfg.Storage.AuditDB); err != nil {
					printFail("Audit DB", err.Error())
					failed++
				} else {
					printPass("Audit DB", cfg.Storage.AuditDB)
					passed++
				}
			}

			// 6. Providers
			providerCount := 0
			for name, p := range cfg.Providers {
				if !p.Enabled {
					continue
				}
				providerCount++
				if p.APIKey == "" {
					printWarn("Provider: "+name, "enabled but no API key configured")
					warned++
				} else {
					printPass("Provider: "+name, "configured")
					passed++
				}
			}
			if providerCount == 0 {
				printFail("Providers", "no providers enabled")
				failed++
			}

			// 7. Web port
			if cfg.Channels.Web.Enabled {
				port := cfg.Channels.Web.Port
				if port == 0 {
					port = 8000
				}
				if err := checkPort(port); err != nil {
					printWarn("Web port", fmt.Sprintf("port %d may be in use: %v", port, err))
					warned++
				} else {
					printPass("Web port", fmt.Sprintf(":%d available", port))
					passed++
				}
			}

			// 8. Bot tokens
			if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token == "" {
				printFail("Telegram", "enabled but no token configured")
				failed++
			}
			if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token == "" {
				printFail("Discord", "enabled but no token configured")
				failed++
			}

			// 9. Embedding server reachable
			if err := checkEmbedder(cfg.Documents.EmbedderURL); err != nil {
				printWarn("Embedder", fmt.Sprintf("%s unreachable: %v (document questions will fail)", cfg.Documents.EmbedderURL, err))
				warned++
			} else {
				printPass("Embedder", cfg.Documents.EmbedderURL)
				passed++
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running the chatbot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nThe chatbot should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! The chatbot is ready to run.\n")
			}
			return nil
		},
	}
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}

	// Try a write.
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")

	return nil
}

func checkPort(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func checkEmbedder(serverURL string) error {
	u, err := url.Parse(serverURL)
	if err != nil {
		return err
	}
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host += ":443"
		default:
			host += ":80"
		}
	}
	conn, err := net.DialTimeout("tcp", host, 3*time.Second)
	if err != nil {
		return err
	}
	conn.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
