package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/herbadis/recordsync/pkg/config"
	"github.com/herbadis/recordsync/pkg/logging"
)

// commonFlags are shared by commands that talk to the API.
type commonFlags struct {
	configPath string
	username   string
	token      string
	userAgent  string
	baseURL    string
	logLevel   string
	logPretty  bool
}

func (f *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "TOML configuration file")
	fs.StringVarP(&f.username, "username", "u", "", "Discogs username")
	fs.StringVar(&f.token, "token", "", "Discogs personal access token (or DISCOGS_TOKEN)")
	fs.StringVar(&f.userAgent, "user-agent", "", "User-Agent sent to Discogs")
	fs.StringVar(&f.baseURL, "base-url", "", "Discogs API base URL")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.BoolVar(&f.logPretty, "log-pretty", false, "Human readable console logs")
}

// load reads the file and environment, then applies flags the user set.
func (f *commonFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	setString(flags, "username", f.username, &cfg.Discogs.Username)
	setString(flags, "token", f.token, &cfg.Discogs.Token)
	setString(flags, "user-agent", f.userAgent, &cfg.Discogs.UserAgent)
	setString(flags, "base-url", f.baseURL, &cfg.Discogs.BaseURL)
	setString(flags, "log-level", f.logLevel, &cfg.Logging.Level)
	if flags.Changed("log-pretty") {
		cfg.Logging.Pretty = f.logPretty
	}
	return cfg, nil
}

func setString(flags *pflag.FlagSet, name, value string, dst *string) {
	if flags.Changed(name) {
		*dst = value
	}
}

func setupLogging(cmd *cobra.Command, cfg *config.Config) error {
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return &config.Error{Code: config.CodeInvalidValue, Field: "logging.level", Message: err.Error()}
	}
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	return nil
}
