package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

type ToolsConfig struct {
	FFmpeg string `yaml:"ffmpeg"`
	YtDlp  string `yaml:"yt_dlp"`
}

type RecognizerConfig struct {
	Backend  string `yaml:"backend"` // whispercpp, openai
	Command  string `yaml:"command"`
	ModelDir string `yaml:"model_dir"`
	Threads  int    `yaml:"threads"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type DiarizationConfig struct {
	Strategy         string  `yaml:"strategy"` // random, cluster
	ClusterThreshold float64 `yaml:"cluster_threshold"`
}

// Config is the application configuration document loaded once at startup.
type Config struct {
	Device              string            `yaml:"device"`
	SupportedExtensions []string          `yaml:"supported_extensions"`
	AudioExtensions     []string          `yaml:"audio_extensions"`
	DefaultModel        string            `yaml:"default_model"`
	ValidModels         []string          `yaml:"valid_models"`
	BatchProcessing     bool              `yaml:"batch_processing"`
	ScratchDir          string            `yaml:"scratch_dir"`
	DataDir             string            `yaml:"data_dir"`
	LogPath             string            `yaml:"log_path"`
	LogLevel            string            `yaml:"log_level"`
	HistoryPath         string            `yaml:"history_path"`
	MetricsBind         string            `yaml:"metrics_bind"`
	Tools               ToolsConfig       `yaml:"tools"`
	Recognizer          RecognizerConfig  `yaml:"recognizer"`
	OpenAI              OpenAIConfig      `yaml:"openai"`
	Diarization         DiarizationConfig `yaml:"diarization"`
}

// Default returns the built-in configuration document.
func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Device: "cpu",
		SupportedExtensions: []string{
			".mp3", ".wav", ".flac", ".ogg", ".m4a", ".aac",
			".mp4", ".mov", ".avi", ".mkv",
		},
		// whisper-cli decodes these natively; everything else goes through ffmpeg.
		AudioExtensions: []string{".wav", ".mp3", ".flac", ".ogg"},
		DefaultModel:    "base",
		ValidModels:     []string{"tiny", "base", "small", "medium", "large", "large-v2"},
		BatchProcessing: false,
		DataDir:         dataDir,
		LogPath:         filepath.Join(dataDir, "transcriber.log"),
		LogLevel:        "info",
		HistoryPath:     filepath.Join(dataDir, "history.db"),
		Tools: ToolsConfig{
			FFmpeg: "ffmpeg",
			YtDlp:  "yt-dlp",
		},
		Recognizer: RecognizerConfig{
			Backend:  "whispercpp",
			Command:  "whisper-cli",
			ModelDir: filepath.Join(dataDir, "models"),
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
		},
		Diarization: DiarizationConfig{
			Strategy:         "random",
			ClusterThreshold: 0.15,
		},
	}
}

// Load reads the YAML document at path over the defaults. An empty path
// yields the defaults with environment overrides applied.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.SupportedExtensions = NormalizeExtensions(cfg.SupportedExtensions)
	cfg.AudioExtensions = NormalizeExtensions(cfg.AudioExtensions)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// IsValidModel reports whether id is in the configured allow-list.
func (c Config) IsValidModel(id string) bool {
	return lo.Contains(c.ValidModels, id)
}

// NormalizeExtensions lowercases, dots, and de-duplicates extension lists.
func NormalizeExtensions(exts []string) []string {
	normalized := lo.FilterMap(exts, func(ext string, _ int) (string, bool) {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			return "", false
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		return ext, true
	})
	return lo.Uniq(normalized)
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".multi-transcriber")
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Device, "TRANSCRIBER_DEVICE")
	overrideStringSlice(&cfg.SupportedExtensions, "TRANSCRIBER_SUPPORTED_EXTENSIONS")
	overrideStringSlice(&cfg.AudioExtensions, "TRANSCRIBER_AUDIO_EXTENSIONS")
	overrideString(&cfg.DefaultModel, "TRANSCRIBER_DEFAULT_MODEL")
	overrideStringSlice(&cfg.ValidModels, "TRANSCRIBER_VALID_MODELS")
	overrideBool(&cfg.BatchProcessing, "TRANSCRIBER_BATCH_PROCESSING")
	overrideString(&cfg.ScratchDir, "TRANSCRIBER_SCRATCH_DIR")
	overrideString(&cfg.DataDir, "TRANSCRIBER_DATA_DIR")
	overrideString(&cfg.LogPath, "TRANSCRIBER_LOG_PATH")
	overrideString(&cfg.LogLevel, "TRANSCRIBER_LOG_LEVEL")
	overrideString(&cfg.HistoryPath, "TRANSCRIBER_HISTORY_PATH")
	overrideString(&cfg.MetricsBind, "TRANSCRIBER_METRICS_BIND")
	overrideString(&cfg.Tools.FFmpeg, "TRANSCRIBER_TOOLS_FFMPEG")
	overrideString(&cfg.Tools.YtDlp, "TRANSCRIBER_TOOLS_YT_DLP")
	overrideString(&cfg.Recognizer.Backend, "TRANSCRIBER_RECOGNIZER_BACKEND")
	overrideString(&cfg.Recognizer.Command, "TRANSCRIBER_RECOGNIZER_COMMAND")
	overrideString(&cfg.Recognizer.ModelDir, "TRANSCRIBER_RECOGNIZER_MODEL_DIR")
	overrideInt(&cfg.Recognizer.Threads, "TRANSCRIBER_RECOGNIZER_THREADS")
	overrideString(&cfg.OpenAI.APIKey, "TRANSCRIBER_OPENAI_API_KEY")
	overrideString(&cfg.OpenAI.BaseURL, "TRANSCRIBER_OPENAI_BASE_URL")
	overrideString(&cfg.Diarization.Strategy, "TRANSCRIBER_DIARIZATION_STRATEGY")
	overrideFloat(&cfg.Diarization.ClusterThreshold, "TRANSCRIBER_DIARIZATION_CLUSTER_THRESHOLD")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if len(cfg.SupportedExtensions) == 0 {
		return errors.New("supported_extensions must not be empty")
	}
	if len(cfg.ValidModels) == 0 {
		return errors.New("valid_models must not be empty")
	}
	if !cfg.IsValidModel(cfg.DefaultModel) {
		return fmt.Errorf("default_model %q must be one of valid_models", cfg.DefaultModel)
	}
	switch cfg.Recognizer.Backend {
	case "whispercpp":
		if strings.TrimSpace(cfg.Recognizer.Command) == "" {
			return errors.New("recognizer.command must be set when backend=whispercpp")
		}
	case "openai":
		if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
			return errors.New("openai.api_key must be set when backend=openai")
		}
	default:
		return errors.New("recognizer.backend must be one of whispercpp|openai")
	}
	if cfg.Recognizer.Threads < 0 {
		return errors.New("recognizer.threads must be >= 0")
	}
	switch cfg.Diarization.Strategy {
	case "random", "cluster":
	default:
		return errors.New("diarization.strategy must be one of random|cluster")
	}
	if cfg.Diarization.ClusterThreshold <= 0 || cfg.Diarization.ClusterThreshold >= 1 {
		return errors.New("diarization.cluster_threshold must be between 0 and 1")
	}
	if strings.TrimSpace(cfg.Tools.FFmpeg) == "" {
		return errors.New("tools.ffmpeg must not be empty")
	}
	return nil
}
