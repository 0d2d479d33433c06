// Package config loads runtime settings from an optional .env file and
// the environment.
package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"bestgrab/internal/adapters/ytdlp"
)

// Environment keys.
const (
	EnvProxy       = "BESTGRAB_PROXY"
	EnvCookiesFile = "BESTGRAB_COOKIES_FILE"
	EnvOutputDir   = "BESTGRAB_OUTPUT_DIR"
	EnvYtDlpPath   = "BESTGRAB_YTDLP_PATH"
	EnvJqPath      = "BESTGRAB_JQ_PATH"
	EnvSubLangs    = "BESTGRAB_SUB_LANGS"
	EnvLogLevel    = "BESTGRAB_LOG_LEVEL"
)

// Defaults.
const (
	DefaultProxy       = "http://127.0.0.1:54890"
	DefaultCookiesFile = "cookies.txt"
	DefaultOutputDir   = "."
	DefaultJqPath      = "jq"
	DefaultLogLevel    = "info"
)

// Config holds everything main needs to wire the application.
type Config struct {
	Proxy       string
	CookiesFile string
	OutputDir   string
	YtDlpPath   string
	JqPath      string
	SubLangs    string
	LogLevel    string
}

// Load reads .env files (missing files are fine) and then the environment.
// Values already present in the environment win over .env entries.
func Load(envFiles ...string) (*Config, bool) {
	loaded := godotenv.Load(envFiles...) == nil

	return &Config{
		Proxy:       getenv(EnvProxy, DefaultProxy),
		CookiesFile: getenv(EnvCookiesFile, DefaultCookiesFile),
		OutputDir:   getenv(EnvOutputDir, DefaultOutputDir),
		YtDlpPath:   getenv(EnvYtDlpPath, ytdlp.DefaultBinaryPath()),
		JqPath:      getenv(EnvJqPath, DefaultJqPath),
		SubLangs:    getenv(EnvSubLangs, ytdlp.DefaultSubLangs),
		LogLevel:    getenv(EnvLogLevel, DefaultLogLevel),
	}, loaded
}

// Level parses LogLevel.
func (c *Config) Level() (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel, errors.Wrapf(err, "invalid %s", EnvLogLevel)
	}
	return lvl, nil
}

// DownloadOptions returns the yt-dlp post-processing options.
func (c *Config) DownloadOptions() ytdlp.Options {
	opts := ytdlp.DefaultOptions()
	if c.SubLangs != "" {
		opts.SubLangs = c.SubLangs
	}
	return opts
}

// CookiesAvailable reports whether the cookies file exists.
func (c *Config) CookiesAvailable() bool {
	if c.CookiesFile == "" {
		return false
	}
	info, err := os.Stat(c.CookiesFile)
	return err == nil && !info.IsDir()
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
