package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Settings is the validated application configuration.
//
// Every recognized option is enumerated here with an explicit default;
// unknown keys in config.toml are reported back to the caller instead of
// being silently accepted.
type Settings struct {
	DataDirectory string `toml:"data_directory"`
	Debug         bool   `toml:"debug"`

	// Orchestrator
	MaxSteps int `toml:"max_steps"`

	// Memory retrieval
	MemoryTopK      int     `toml:"memory_top_k"`
	MemoryThreshold float64 `toml:"memory_threshold"`

	// Embedding backend: "ollama" or "openai"
	EmbedProvider    string `toml:"embed_provider"`
	EmbedModel       string `toml:"embed_model"`
	EmbedTimeoutSecs int    `toml:"embed_timeout_seconds"`
	EmbedChunkRunes  int    `toml:"embed_chunk_runes"`

	// Tool execution
	ToolTimeoutSecs int `toml:"tool_timeout_seconds"`

	// Local Ollama server (chat and embeddings)
	OllamaHost string `toml:"ollama_host"`

	// Template library remotes
	LibraryRemote string `toml:"library_remote"`
	LibraryMirror string `toml:"library_mirror"`
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() *Settings {
	return &Settings{
		DataDirectory:    "~/.local/share/dockhand",
		MaxSteps:         10,
		MemoryTopK:       5,
		MemoryThreshold:  0.35,
		EmbedProvider:    "ollama",
		EmbedModel:       "",
		EmbedTimeoutSecs: 10,
		EmbedChunkRunes:  2000,
		ToolTimeoutSecs:  30,
		OllamaHost:       "http://localhost:11434",
		LibraryRemote:    "https://github.com/dockhand-library/templates.git",
		LibraryMirror:    "https://gitee.com/dockhand-library/templates.git",
	}
}

// DataDir returns the expanded data directory path.
func (s *Settings) DataDir() string {
	return ExpandPath(s.DataDirectory)
}

// ToolTimeout returns the tool execution timeout as a duration.
func (s *Settings) ToolTimeout() time.Duration {
	return time.Duration(s.ToolTimeoutSecs) * time.Second
}

// EmbedTimeout returns the embedding request timeout as a duration.
func (s *Settings) EmbedTimeout() time.Duration {
	return time.Duration(s.EmbedTimeoutSecs) * time.Second
}

func (s *Settings) applyEnvOverrides() {
	if dataDir := os.Getenv("DOCKHAND_DATA_DIR"); dataDir != "" {
		s.DataDirectory = dataDir
	}
	if host := os.Getenv("DOCKHAND_OLLAMA_HOST"); host != "" {
		s.OllamaHost = host
	}
	if os.Getenv("DOCKHAND_DEBUG") == "true" || os.Getenv("DOCKHAND_DEBUG") == "1" {
		s.Debug = true
	}
}

// Load reads config.toml, creating it with defaults on first run.
//
// The second return value lists unrecognized keys found in the file; callers
// surface them as warnings rather than failing.
func Load() (*Settings, []string, error) {
	cfg := DefaultSettings()
	settingsPath := GetSettingsFilePath()

	var unknown []string
	if FileExists(settingsPath) {
		md, err := toml.DecodeFile(settingsPath, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse %s: %w", settingsPath, err)
		}
		for _, key := range md.Undecoded() {
			unknown = append(unknown, key.String())
		}
	} else {
		if err := Save(cfg); err != nil {
			return nil, nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := EnsureDir(cfg.DataDir()); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, unknown, nil
}

// Save writes the settings to config.toml.
func Save(cfg *Settings) error {
	if err := EnsureDir(GetConfigDir()); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// 0600: config may sit next to provider credentials
	f, err := os.OpenFile(GetSettingsFilePath(), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
