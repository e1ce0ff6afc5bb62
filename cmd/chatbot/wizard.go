package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/config"
)

// providerMeta describes a provider option for the wizard.
type providerMeta struct {
	Name         string
	EnvVar       string
	APIBase      string
	DefaultModel string
}

var knownProviders = []providerMeta{
	{Name: "openai", EnvVar: "OPENAI_API_KEY", APIBase: "https://api.openai.com/v1", DefaultModel: "gpt-3.5-turbo"},
	{Name: "gemini", EnvVar: "GEMINI_API_KEY", APIBase: "https://generativelanguage.googleapis.com/v1beta", DefaultModel: "gemini-2.5-flash"},
}

var knownChannels = []struct {
	ID   string
	Desc string
}{
	{"cli", "Interactive terminal chat"},
	{"web", "Web UI (browser)"},
	{"telegram", "Telegram bot"},
	{"discord", "Discord bot"},
}

func wizardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Interactive setup: provider → channel → documents → save config",
		Long:  "Guides you through the LLM provider (and API key), the channel to enable, and the documents directory. Writes config to the path used by --config or default.",
		RunE:  runWizard,
	}
}

func runWizard(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		cfg = config.Defaults()
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]config.ProviderConfig)
	}

	reader := bufio.NewReader(os.Stdin)
	prompt := func(def string) (string, error) {
		if def != "" {
			fmt.Fprintf(os.Stdout, " [%s]: ", def)
		} else {
			fmt.Fprint(os.Stdout, ": ")
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		s := strings.TrimSpace(line)
		if s == "" && def != "" {
			return def, nil
		}
		return s, nil
	}

	// Step 1: Provider
	fmt.Println("\n--- Step 1: LLM provider ---")
	for i, p := range knownProviders {
		fmt.Fprintf(os.Stdout, "  %d) %s (set %s)\n", i+1, p.Name, p.EnvVar)
	}
	fmt.Fprint(os.Stdout, "Choose provider (1–"+fmt.Sprint(len(knownProviders))+")")
	defNum := "1"
	for i, p := range knownProviders {
		if p.Name == cfg.General.DefaultProvider {
			defNum = fmt.Sprint(i + 1)
			break
		}
	}
	choice, err := prompt(defNum)
	if err != nil {
		return err
	}
	var idx int
	if n, _ := fmt.Sscanf(choice, "%d", &idx); n != 1 || idx < 1 || idx > len(knownProviders) {
		idx = 1
	}
	prov := knownProviders[idx-1]
	cfg.General.DefaultProvider = prov.Name
	pc, ok := cfg.Providers[prov.Name]
	if !ok {
		pc = config.ProviderConfig{APIBase: prov.APIBase, DefaultModel: prov.DefaultModel}
	}
	pc.Enabled = true
	if pc.APIBase == "" {
		pc.APIBase = prov.APIBase
	}
	if pc.DefaultModel == "" {
		pc.DefaultModel = prov.DefaultModel
	}
	fmt.Fprintf(os.Stdout, "API key: paste key or env var reference (e.g. ${%s})", prov.EnvVar)
	key, err := prompt("${" + prov.EnvVar + "}")
	if err != nil {
		return err
	}
	if key != "" {
		pc.APIKey = key
	}
	cfg.Providers[prov.Name] = pc
	fmt.Fprintf(os.Stdout, "  Using provider: %s\n", prov.Name)

	// Step 2: Channel
	fmt.Println("\n--- Step 2: Channel ---")
	for i, c := range knownChannels {
		fmt.Fprintf(os.Stdout, "  %d) %s — %s\n", i+1, c.ID, c.Desc)
	}
	fmt.Fprint(os.Stdout, "Choose channel (1–"+fmt.Sprint(len(knownChannels))+")")
	chChoice, err := prompt("1")
	if err != nil {
		return err
	}
	var chIdx int
	if n, _ := fmt.Sscanf(chChoice, "%d", &chIdx); n != 1 || chIdx < 1 || chIdx > len(knownChannels) {
		chIdx = 1
	}
	chID := knownChannels[chIdx-1].ID
	cfg.Channels.CLI.Enabled = chID == "cli"
	cfg.Channels.Web.Enabled = chID == "web"
	cfg.Channels.Telegram.Enabled = chID == "telegram"
	cfg.Channels.Discord.Enabled = chID == "discord"
	if chID == "telegram" {
		fmt.Fprint(os.Stdout, "Telegram bot token (from @BotFather)")
		tok, err := prompt("")
		if err != nil {
			return err
		}
		if tok != "" {
			cfg.Channels.Telegram.Token = tok
		}
	}
	if chID == "discord" {
		fmt.Fprint(os.Stdout, "Discord bot token")
		tok, err := prompt("")
		if err != nil {
			return err
		}
		if tok != "" {
			cfg.Channels.Discord.Token = tok
		}
	}
	fmt.Fprintf(os.Stdout, "  Using channel: %s\n", chID)

	// Step 3: Documents
	fmt.Println("\n--- Step 3: Documents ---")
	fmt.Fprint(os.Stdout, "Directory with PDFs for document questions")
	docs, err := prompt(cfg.Documents.Dir)
	if err != nil {
		return err
	}
	if docs != "" {
		cfg.Documents.Dir = docs
	}
	expanded := config.ExpandPath(cfg.Documents.Dir)
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return fmt.Errorf("create documents dir: %w", err)
	}
	fmt.Fprintf(os.Stdout, "  Using documents dir: %s\n", expanded)

	// Save
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\nConfig saved to %s\n", cfgPath)
	fmt.Println("Next: run 'chatbot chat' for CLI, 'chatbot index' to index documents, or 'chatbot serve' for the other channels.")
	return nil
}
