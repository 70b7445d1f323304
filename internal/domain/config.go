package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	GalleryDL    GalleryDLConfig    `mapstructure:"gallery_dl"`
	Status       StatusConfig       `mapstructure:"status"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Tags         TagsConfig         `mapstructure:"tags"`
	Dataset      DatasetConfig      `mapstructure:"dataset"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	BaseDir      string `mapstructure:"base_dir"`
	OutputDir    string `mapstructure:"output_dir"`
	LogsDir      string `mapstructure:"logs_dir"`
	DatabasePath string `mapstructure:"database_path"`
	IndexResults bool   `mapstructure:"index_results"`
}

// GalleryDLConfig contains settings for the wrapped gallery-dl binary
type GalleryDLConfig struct {
	Binary     string   `mapstructure:"binary"`
	ConfigFile string   `mapstructure:"config_file"`
	ExtraArgs  []string `mapstructure:"extra_args"`
}

// StatusConfig controls status polling over websocket
type StatusConfig struct {
	PushInterval time.Duration `mapstructure:"push_interval"`
}

// CacheConfig sizes the recent summaries cache
type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// TagsConfig points at the directory holding per-extractor TOML tag rules
type TagsConfig struct {
	ExtractorsDir string `mapstructure:"extractors_dir"`
}

// DatasetConfig contains settings for the dataset exporter
type DatasetConfig struct {
	Name        string        `mapstructure:"name"`
	Endpoint    string        `mapstructure:"endpoint"`
	OutputDir   string        `mapstructure:"output_dir"`
	LabelNames  []string      `mapstructure:"label_names"`
	ImageColumn string        `mapstructure:"image_column"`
	LabelColumn string        `mapstructure:"label_column"`
	PageSize    int           `mapstructure:"page_size"`
	Quality     int           `mapstructure:"quality"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8686,
		},
		Download: DownloadConfig{
			BaseDir:      "$HOME/Downloads/gdl-bridge",
			OutputDir:    "$HOME/Downloads/gdl-bridge/media",
			LogsDir:      "$HOME/Downloads/gdl-bridge/logs",
			DatabasePath: "$HOME/Downloads/gdl-bridge/gdl-bridge.db",
			IndexResults: true,
		},
		GalleryDL: GalleryDLConfig{
			Binary:     "gallery-dl",
			ConfigFile: "$HOME/.config/gallery-dl/config.json",
		},
		Status: StatusConfig{
			PushInterval: 500 * time.Millisecond,
		},
		Cache: CacheConfig{
			Size: 128,
			TTL:  time.Hour,
		},
		Tags: TagsConfig{
			ExtractorsDir: "$HOME/Downloads/gdl-bridge/extractors",
		},
		Dataset: DatasetConfig{
			Name:        "microsoft/cats_vs_dogs",
			Endpoint:    "https://datasets-server.huggingface.co",
			OutputDir:   "cats_dogs_images",
			LabelNames:  []string{"cat", "dog"},
			ImageColumn: "image",
			LabelColumn: "labels",
			PageSize:    100,
			Quality:     90,
			Timeout:     30 * time.Second,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
