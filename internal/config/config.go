package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all word-recorder environment variables.
const EnvPrefix = "WORD_RECORDER_"

const (
	DefaultBlockSize = 8000
	DefaultThreshold = 14000

	// MaxThreshold is the peak amplitude of a normalized recording.
	MaxThreshold = 16384
)

// Config holds all application configuration. Google credentials are read
// from a file whose path is configured; nothing secret lives in the YAML.
type Config struct {
	DBPath                string `yaml:"db_path"`
	AudioDir              string `yaml:"audio_dir"`
	ManifestPath          string `yaml:"manifest_path"`
	BlockSize             int    `yaml:"block_size"`
	Threshold             int    `yaml:"threshold"`
	SampleRate            int    `yaml:"sample_rate"`
	ListenAddr            string `yaml:"listen_addr"`
	GDriveFolderID        string `yaml:"gdrive_folder_id"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`
}

func defaults() Config {
	return Config{
		DBPath:                "data/word-recorder.db",
		AudioDir:              "data/audio",
		ManifestPath:          "data/manifest.tsv",
		BlockSize:             DefaultBlockSize,
		Threshold:             DefaultThreshold,
		ListenAddr:            "127.0.0.1:8080",
		GoogleCredentialsFile: "./service-account.json",
	}
}

// Load reads configuration from a YAML file (if it exists), loads a .env
// file from the working directory (if present), applies environment
// variable overrides and validates the result. Out-of-range block size or
// threshold is an error; softer problems are returned as warnings.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, nil, fmt.Errorf("load .env: %w", err)
	}

	var warnings []string
	warnings = append(warnings, applyEnvOverrides(&cfg)...)

	if err := validate(&cfg); err != nil {
		return cfg, warnings, err
	}

	warnings = append(warnings, softWarnings(&cfg)...)
	return cfg, warnings, nil
}

// UploadEnabled reports whether persisted recordings should go to Drive.
func (c *Config) UploadEnabled() bool {
	return strings.TrimSpace(c.GDriveFolderID) != ""
}

func applyEnvOverrides(cfg *Config) []string {
	var warnings []string

	if v := os.Getenv(EnvPrefix + "DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvPrefix + "AUDIO_DIR"); v != "" {
		cfg.AudioDir = v
	}
	if v := os.Getenv(EnvPrefix + "MANIFEST_PATH"); v != "" {
		cfg.ManifestPath = v
	}
	if v := os.Getenv(EnvPrefix + "LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvPrefix + "GDRIVE_FOLDER_ID"); v != "" {
		cfg.GDriveFolderID = v
	}
	if v := os.Getenv(EnvPrefix + "GOOGLE_CREDENTIALS_FILE"); v != "" {
		cfg.GoogleCredentialsFile = v
	}

	for key, dst := range map[string]*int{
		"BLOCK_SIZE":  &cfg.BlockSize,
		"THRESHOLD":   &cfg.Threshold,
		"SAMPLE_RATE": &cfg.SampleRate,
	} {
		v := strings.TrimSpace(os.Getenv(EnvPrefix + key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Ignoring %s%s=%q: not an integer.", EnvPrefix, key, v))
			continue
		}
		*dst = n
	}

	return warnings
}

func validate(cfg *Config) error {
	if cfg.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive, got %d", cfg.BlockSize)
	}
	if cfg.Threshold < 0 || cfg.Threshold > MaxThreshold {
		return fmt.Errorf("threshold must be in [0, %d], got %d", MaxThreshold, cfg.Threshold)
	}
	if cfg.SampleRate < 0 {
		return fmt.Errorf("sample_rate must not be negative, got %d", cfg.SampleRate)
	}
	return nil
}

func softWarnings(cfg *Config) []string {
	var warnings []string

	if cfg.UploadEnabled() {
		if _, err := os.Stat(cfg.GoogleCredentialsFile); err != nil {
			warnings = append(warnings, fmt.Sprintf("Google credentials file %q not readable; Drive upload will fail.", cfg.GoogleCredentialsFile))
		}
	}
	if cfg.Threshold == 0 {
		warnings = append(warnings, "Threshold is 0; only exact digital silence is trimmed and any nonzero sample counts as speech.")
	}

	return warnings
}
