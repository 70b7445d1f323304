package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/gdl-bridge/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.config/gdl-bridge")
		v.AddConfigPath("/etc/gdl-bridge")
	}

	// GDLBRIDGE_SERVER_PORT overrides server.port
	v.SetEnvPrefix("GDLBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys makes environment overrides visible to Unmarshal for keys
// that appear in no config file.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.host",
		"server.port",
		"download.base_dir",
		"download.output_dir",
		"download.logs_dir",
		"download.database_path",
		"download.index_results",
		"gallery_dl.binary",
		"gallery_dl.config_file",
		"status.push_interval",
		"cache.size",
		"cache.ttl",
		"tags.extractors_dir",
		"dataset.name",
		"dataset.endpoint",
		"dataset.output_dir",
		"dataset.image_column",
		"dataset.label_column",
		"dataset.page_size",
		"dataset.timeout",
		"dataset.quality",
		"notification.enabled",
		"notification.method",
		"logging.level",
		"logging.format",
		"logging.output_path",
	} {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.BaseDir = expandPath(config.Download.BaseDir)
	config.Download.OutputDir = expandPath(config.Download.OutputDir)
	config.Download.LogsDir = expandPath(config.Download.LogsDir)
	config.Download.DatabasePath = expandPath(config.Download.DatabasePath)
	config.GalleryDL.ConfigFile = expandPath(config.GalleryDL.ConfigFile)
	config.Tags.ExtractorsDir = expandPath(config.Tags.ExtractorsDir)
	config.Dataset.OutputDir = expandPath(config.Dataset.OutputDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.OutputDir == "" {
		return fmt.Errorf("download output directory not configured")
	}

	if !filepath.IsAbs(config.Download.OutputDir) {
		return fmt.Errorf("download output directory must be absolute: %s", config.Download.OutputDir)
	}

	if config.Download.LogsDir == "" {
		return fmt.Errorf("logs directory not configured")
	}

	if config.Download.DatabasePath == "" {
		return fmt.Errorf("database path not configured")
	}

	if config.GalleryDL.Binary == "" {
		return fmt.Errorf("gallery-dl binary not configured")
	}

	if config.Status.PushInterval <= 0 {
		return fmt.Errorf("status push interval must be positive")
	}

	if config.Dataset.Quality < 1 || config.Dataset.Quality > 100 {
		return fmt.Errorf("dataset jpeg quality must be between 1 and 100: %d", config.Dataset.Quality)
	}

	if config.Dataset.PageSize < 1 || config.Dataset.PageSize > 100 {
		return fmt.Errorf("dataset page size must be between 1 and 100: %d", config.Dataset.PageSize)
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("server", map[string]interface{}{
		"host": config.Server.Host,
		"port": config.Server.Port,
	})
	v.Set("download", map[string]interface{}{
		"base_dir":      config.Download.BaseDir,
		"output_dir":    config.Download.OutputDir,
		"logs_dir":      config.Download.LogsDir,
		"database_path": config.Download.DatabasePath,
		"index_results": config.Download.IndexResults,
	})
	v.Set("gallery_dl", map[string]interface{}{
		"binary":      config.GalleryDL.Binary,
		"config_file": config.GalleryDL.ConfigFile,
		"extra_args":  config.GalleryDL.ExtraArgs,
	})
	v.Set("status", map[string]interface{}{
		"push_interval": config.Status.PushInterval.String(),
	})
	v.Set("cache", map[string]interface{}{
		"size": config.Cache.Size,
		"ttl":  config.Cache.TTL.String(),
	})
	v.Set("tags", map[string]interface{}{
		"extractors_dir": config.Tags.ExtractorsDir,
	})
	v.Set("dataset", map[string]interface{}{
		"name":         config.Dataset.Name,
		"endpoint":     config.Dataset.Endpoint,
		"output_dir":   config.Dataset.OutputDir,
		"label_names":  config.Dataset.LabelNames,
		"image_column": config.Dataset.ImageColumn,
		"label_column": config.Dataset.LabelColumn,
		"page_size":    config.Dataset.PageSize,
		"quality":      config.Dataset.Quality,
		"timeout":      config.Dataset.Timeout.String(),
	})
	v.Set("notification", map[string]interface{}{
		"enabled": config.Notification.Enabled,
		"sound":   config.Notification.Sound,
		"method":  config.Notification.Method,
	})
	v.Set("logging", map[string]interface{}{
		"level":       config.Logging.Level,
		"format":      config.Logging.Format,
		"output_path": config.Logging.OutputPath,
	})

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
