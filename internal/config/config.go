package config

import (
	"path/filepath"
	"runtime"

	log "github.com/sirupsen/logrus"

	"github.com/vrcproxy/ytdlp-proxy/internal/status"
	"github.com/vrcproxy/ytdlp-proxy/util"
)

// ConfigFileName is the settings file kept beside the proxy binary.
const ConfigFileName = "config.json"

// Config is the application configuration loaded from config.json.
// It is treated as immutable for the duration of one invocation.
type Config struct {
	// ToolDir is the directory holding the managed executable,
	// relative to the application directory unless absolute.
	ToolDir string `json:"ytdlp_location"`

	// ExecutableName is the file name of the managed tool. It doubles
	// as the release asset name looked up during updates.
	ExecutableName string `json:"executable_name"`

	// ReleaseURL is the endpoint returning the latest release metadata.
	ReleaseURL string `json:"release_url"`

	AllowedArgs    []string `json:"allowed_args"`
	CustomArgs     []string `json:"custom_args"`
	Cookies        bool     `json:"cookies"`
	CookiesBrowser string   `json:"cookies_browser"`

	Logging LoggingConfig `json:"logging"`
}

// LoggingConfig controls the rotating file logger.
type LoggingConfig struct {
	MaxFileSizeMB   int  `json:"max_file_size_mb"`
	MaxArchivedLogs int  `json:"max_archived_logs"`
	DebugEnabled    bool `json:"debug_enabled"`
}

// Policy is the argument policy view handed to the filter: the
// allowlist, the always-appended custom args and the cookie settings.
type Policy struct {
	AllowedArgs    []string
	CustomArgs     []string
	Cookies        bool
	CookiesBrowser string
}

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		ToolDir:        "tools",
		ExecutableName: defaultExecutableName(),
		ReleaseURL:     "https://api.github.com/repos/yt-dlp/yt-dlp/releases/latest",
		AllowedArgs: []string{
			"--get-url",
		},
		CustomArgs: []string{
			"--no-check-certificate",
			"--no-warnings",
			"--no-cache-dir",
			"-f",
			"best[height<=1080][protocol^=m3u8]",
		},
		Cookies:        false,
		CookiesBrowser: "firefox",
		Logging: LoggingConfig{
			MaxFileSizeMB:   10,
			MaxArchivedLogs: 5,
			DebugEnabled:    false,
		},
	}
}

func defaultExecutableName() string {
	switch runtime.GOOS {
	case "windows":
		return "yt-dlp.exe"
	case "darwin":
		return "yt-dlp_macos"
	default:
		return "yt-dlp"
	}
}

// Load reads the configuration from appDir, creating the default file
// when none exists yet.
func Load(appDir string) (*Config, error) {
	configPath := filepath.Join(appDir, ConfigFileName)

	if !util.FileExists(configPath) {
		cfg := Default()
		if err := Save(appDir, cfg); err != nil {
			return nil, err
		}
		log.Infof("created default configuration at %s", configPath)
		return cfg, nil
	}

	cfg := &Config{}
	if err := util.ReadJson(configPath, cfg); err != nil {
		return nil, status.Errorf(status.Configuration, "failed to parse %s: %v", configPath, err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// Save persists the configuration to appDir as pretty JSON.
func Save(appDir string, cfg *Config) error {
	configPath := filepath.Join(appDir, ConfigFileName)
	if err := util.WriteJson(configPath, cfg); err != nil {
		return status.Errorf(status.Configuration, "failed to write config file %s: %v", configPath, err)
	}
	return nil
}

// Policy returns the argument policy for one invocation.
func (c *Config) Policy() Policy {
	return Policy{
		AllowedArgs:    c.AllowedArgs,
		CustomArgs:     c.CustomArgs,
		Cookies:        c.Cookies,
		CookiesBrowser: c.CookiesBrowser,
	}
}

// ToolPath resolves the managed executable's full path.
func (c *Config) ToolPath(appDir string) string {
	dir := c.ToolDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(appDir, filepath.FromSlash(dir))
	}
	return filepath.Join(dir, c.ExecutableName)
}

// applyDefaults fills fields a hand-edited config file may have left
// empty, so an older file keeps working after new settings are added.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.ToolDir == "" {
		cfg.ToolDir = def.ToolDir
	}
	if cfg.ExecutableName == "" {
		cfg.ExecutableName = def.ExecutableName
	}
	if cfg.ReleaseURL == "" {
		cfg.ReleaseURL = def.ReleaseURL
	}
	if cfg.CookiesBrowser == "" {
		cfg.CookiesBrowser = def.CookiesBrowser
	}
	if cfg.Logging.MaxFileSizeMB == 0 {
		cfg.Logging.MaxFileSizeMB = def.Logging.MaxFileSizeMB
	}
	if cfg.Logging.MaxArchivedLogs == 0 {
		cfg.Logging.MaxArchivedLogs = def.Logging.MaxArchivedLogs
	}
}
