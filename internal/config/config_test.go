package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_InvalidOverflowFlow(t *testing.T) {
	cfg := Defaults()
	cfg.Router.OverflowFlow = "ANIMAL"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for overflowFlow=ANIMAL")
	}
}

func TestValidate_ValidOverflowFlows(t *testing.T) {
	for _, flow := range []string{"", "HELP", "EMOTION"} {
		cfg := Defaults()
		cfg.Router.OverflowFlow = flow
		if err := Validate(cfg); err != nil {
			t.Fatalf("overflowFlow %q should be valid: %v", flow, err)
		}
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Web.Port = -1
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for negative port")
	}

	cfg.Channels.Web.Port = 70000
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for port > 65535")
	}
}

func TestValidate_InvalidChunking(t *testing.T) {
	cfg := Defaults()
	cfg.Documents.ChunkSize = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for chunkSize=0")
	}

	cfg = Defaults()
	cfg.Documents.ChunkOverlap = cfg.Documents.ChunkSize
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for overlap >= chunkSize")
	}
}

func TestValidate_InvalidSearchTopK(t *testing.T) {
	cfg := Defaults()
	cfg.Documents.SearchTopK = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for searchTopK=0")
	}
}

func TestValidate_InvalidAnimalTimings(t *testing.T) {
	cfg := Defaults()
	cfg.Animal.HTTPTimeoutSeconds = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for httpTimeoutSeconds=0")
	}

	cfg = Defaults()
	cfg.Animal.PhotoRetries = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for photoRetries=0")
	}
}

func TestValidate_UnknownFailoverProvider(t *testing.T) {
	cfg := Defaults()
	cfg.General.FailoverChain = []string{"openai", "missing"}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown failover provider")
	}
}

func TestValidate_CustomProviderNeedsAPIBase(t *testing.T) {
	cfg := Defaults()
	cfg.Providers["local"] = ProviderConfig{Enabled: true}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for enabled provider without apiBase")
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := Defaults()
	original.General.DefaultProvider = "test-provider"
	original.Providers["test-provider"] = ProviderConfig{Enabled: true, APIBase: "http://localhost:9999"}

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.General.DefaultProvider != "test-provider" {
		t.Fatalf("expected 'test-provider', got %q", loaded.General.DefaultProvider)
	}
	if loaded.Documents.ChunkSize != 900 {
		t.Fatalf("expected chunkSize 900, got %d", loaded.Documents.ChunkSize)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	os.WriteFile(path, []byte("{not json}"), 0o644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoad_ValidatesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	// Invalid: chunkSize=0
	content := `{
		"documents": {
			"chunkSize": 0
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgFile)
	if err == nil {
		t.Fatal("expected validation error for chunkSize=0")
	}
}

// --- Accessor ---

func TestGetByPath_ValidPaths(t *testing.T) {
	cfg := Defaults()

	val, err := GetByPath(cfg, "general.defaultProvider")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "openai" {
		t.Fatalf("expected 'openai', got %v", val)
	}
}

func TestGetByPath_InvalidPath(t *testing.T) {
	cfg := Defaults()
	_, err := GetByPath(cfg, "nonexistent.path")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

func TestSetByPath_ValidPath(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "router.overflowFlow", "EMOTION"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.Router.OverflowFlow != "EMOTION" {
		t.Fatalf("expected 'EMOTION', got %q", cfg.Router.OverflowFlow)
	}
}

func TestSetByPath_BoolConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "channels.web.enabled", "false"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if cfg.Channels.Web.Enabled {
		t.Fatal("expected channels.web.enabled=false")
	}
}

func TestSetByPath_IntConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "documents.searchTopK", "7"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if cfg.Documents.SearchTopK != 7 {
		t.Fatalf("expected 7, got %d", cfg.Documents.SearchTopK)
	}
}

// --- Sanitize ---

func TestSanitize_MasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Telegram.Token = "123456789:ABCdefGHIjklMNOpqrSTUvwxyz"
	cfg.Channels.Discord.Token = "discord-token-1234567890"
	cfg.Providers["openai"] = ProviderConfig{
		Enabled: true,
		APIKey:  "sk-1234567890abcdefghijklmnop",
	}

	sanitized := Sanitize(cfg)

	if sanitized.Channels.Telegram.Token == cfg.Channels.Telegram.Token {
		t.Fatal("telegram token should be masked")
	}
	if sanitized.Channels.Discord.Token == cfg.Channels.Discord.Token {
		t.Fatal("discord token should be masked")
	}
	if sanitized.Providers["openai"].APIKey == cfg.Providers["openai"].APIKey {
		t.Fatal("API key should be masked")
	}
	// Verify original is untouched
	if cfg.Channels.Telegram.Token != "123456789:ABCdefGHIjklMNOpqrSTUvwxyz" {
		t.Fatal("original config should not be modified")
	}
}

func TestSanitize_ShortSecret(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Telegram.Token = "short"
	sanitized := Sanitize(cfg)
	if sanitized.Channels.Telegram.Token != "***" {
		t.Fatalf("short secret should be '***', got %q", sanitized.Channels.Telegram.Token)
	}
}

// --- ListPaths ---

func TestListPaths_ReturnsAllLeaves(t *testing.T) {
	cfg := Defaults()
	paths := ListPaths(cfg)
	if len(paths) == 0 {
		t.Fatal("expected non-empty paths")
	}

	for _, expected := range []string{"general.dataDir", "router.overflowFlow", "documents.chunkSize", "storage.counterFile"} {
		if _, ok := paths[expected]; !ok {
			t.Errorf("missing expected path: %s", expected)
		}
	}
}

// --- FlexStringList ---

func TestFlexStringList_MixedTypes(t *testing.T) {
	input := `["hello", 123, "world", 456.0]`
	var list FlexStringList
	if err := json.Unmarshal([]byte(input), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 items, got %d", len(list))
	}
	if list[0] != "hello" || list[2] != "world" {
		t.Fatal("string items mismatch")
	}
	if list[1] != "123" || list[3] != "456" {
		t.Fatalf("number conversion mismatch: %v", list)
	}
}

func TestFlexStringList_PureStrings(t *testing.T) {
	input := `["a", "b", "c"]`
	var list FlexStringList
	if err := json.Unmarshal([]byte(input), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 3 || list[0] != "a" {
		t.Fatalf("unexpected: %v", list)
	}
}

// --- ExpandEnvVars ---

func TestExpandEnvVars_SimpleSubstitution(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-abc123")
	result := ExpandEnvVars(`{"apiKey": "${TEST_API_KEY}"}`)
	expected := `{"apiKey": "sk-abc123"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_DefaultValue(t *testing.T) {
	os.Unsetenv("NONEXISTENT_VAR_12345")
	result := ExpandEnvVars(`{"port": "${NONEXISTENT_VAR_12345:-8000}"}`)
	expected := `{"port": "8000"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_SetVarOverridesDefault(t *testing.T) {
	t.Setenv("MY_PORT", "9090")
	result := ExpandEnvVars(`{"port": "${MY_PORT:-8000}"}`)
	expected := `{"port": "9090"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_UnsetVarNoDefault_KeepsOriginal(t *testing.T) {
	os.Unsetenv("TOTALLY_UNSET_VAR_XYZ")
	result := ExpandEnvVars(`"${TOTALLY_UNSET_VAR_XYZ}"`)
	expected := `"${TOTALLY_UNSET_VAR_XYZ}"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_EmptyVarUsesDefault(t *testing.T) {
	t.Setenv("EMPTY_VAR", "")
	result := ExpandEnvVars(`"${EMPTY_VAR:-fallback}"`)
	expected := `"fallback"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_DollarSignWithoutBraces(t *testing.T) {
	input := `"$HOME is not substituted"`
	result := ExpandEnvVars(input)
	if result != input {
		t.Fatalf("expected no change for bare $VAR, got %q", result)
	}
}

func TestLoad_WithEnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_CHATBOT_DATA", "/tmp/test-data")

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{
		"general": {
			"dataDir": "${TEST_CHATBOT_DATA}",
			"logLevel": "info",
			"defaultProvider": "openai"
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.General.DataDir != "/tmp/test-data" {
		t.Fatalf("expected dataDir '/tmp/test-data', got %q", cfg.General.DataDir)
	}
}

// --- Defaults ---

func TestDefaults_ReturnsValidConfig(t *testing.T) {
	cfg := Defaults()
	if cfg == nil {
		t.Fatal("defaults returned nil")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if cfg.General.DataDir == "" {
		t.Fatal("dataDir should not be empty")
	}
	if cfg.General.DefaultProvider != "openai" {
		t.Fatalf("default provider should be 'openai', got %q", cfg.General.DefaultProvider)
	}
	if cfg.Documents.Collection != "project_docs" {
		t.Fatalf("default collection should be 'project_docs', got %q", cfg.Documents.Collection)
	}
}
