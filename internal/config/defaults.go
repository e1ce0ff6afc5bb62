package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			DataDir:         "~/.chatbot/data",
			LogLevel:        "info",
			DefaultProvider: "openai",
			FailoverChain:   []string{"openai", "gemini"},
		},
		Providers: map[string]ProviderConfig{
			"openai": {
				Enabled:      true,
				APIBase:      "https://api.openai.com/v1",
				DefaultModel: "gpt-3.5-turbo",
			},
			"gemini": {
				Enabled:      false,
				APIBase:      "https://generativelanguage.googleapis.com/v1beta",
				DefaultModel: "gemini-2.5-flash",
			},
		},
		Router: RouterConfig{
			OverflowFlow: "HELP",
		},
		Channels: ChannelsConfig{
			Web: WebConfig{
				Enabled: true,
				Host:    "127.0.0.1",
				Port:    8000,
			},
			CLI: CLIConfig{
				Enabled: true,
			},
			Telegram: TelegramConfig{
				Enabled:   false,
				ParseMode: "Markdown",
			},
			Discord: DiscordConfig{
				Enabled: false,
			},
		},
		Documents: DocumentsConfig{
			Dir:           "~/.chatbot/documents",
			Include:       []string{"**/*.pdf", "**/*.txt", "**/*.md", "**/*.docx"},
			ChunkSize:     900,
			ChunkOverlap:  150,
			SearchTopK:    4,
			Collection:    "project_docs",
			StoragePath:   "~/.chatbot/data/chroma",
			EmbedderURL:   "http://localhost:11434",
			EmbedderModel: "nomic-embed-text",
		},
		Emotion: EmotionConfig{
			HistoryWindow: 10,
			EmojiFile:     "~/.chatbot/data/mood_emojis.yaml",
		},
		Animal: AnimalConfig{
			HTTPTimeoutSeconds: 15,
			PhotoRetries:       6,
		},
		Storage: StorageConfig{
			CounterFile: "~/.chatbot/data/mood_counter.txt",
			ChatLogFile: "~/.chatbot/data/chat_history.txt",
			AuditDB:     "~/.chatbot/data/audit.db",
			AuditLog:    true,
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
	}
}
