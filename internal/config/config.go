// Package config resolves resizewatch settings from defaults, a TOML file,
// the environment and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"resizewatch/internal/logging"
)

const (
	TargetFile     = "file"
	TargetTerminal = "terminal"

	envPrefix = "RESIZEWATCH_"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the resolved runtime configuration.
type Config struct {
	ConfigFile     string
	PollInterval   time.Duration
	LogLevel       logging.Level
	Target         string
	GeometryFile   string
	ListenAddr     string
	HistorySize    int
	AllowedOrigins []string
	ShowVersion    bool
}

// fileConfig mirrors the TOML document. Durations are strings such as
// "250ms" so the file stays readable.
type fileConfig struct {
	PollInterval   string   `toml:"poll_interval"`
	LogLevel       string   `toml:"log_level"`
	Target         string   `toml:"target"`
	GeometryFile   string   `toml:"geometry_file"`
	Listen         string   `toml:"listen"`
	HistorySize    int      `toml:"history_size"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

func Defaults() Config {
	return Config{
		PollInterval: 100 * time.Millisecond,
		LogLevel:     logging.LevelInfo,
		Target:       TargetTerminal,
		HistorySize:  32,
	}
}

// Load resolves the configuration for args. lookupEnv is usually os.LookupEnv.
// flag.ErrHelp is returned when -help was requested.
func Load(args []string, lookupEnv func(string) (string, bool), usage io.Writer) (Config, error) {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	flags, err := parseFlags(args, usage)
	if err != nil {
		return Config{}, err
	}

	cfg := Defaults()
	configFile := flags.configFile
	if configFile == "" {
		if value, ok := lookupEnv(envPrefix + "CONFIG"); ok {
			configFile = strings.TrimSpace(value)
		}
	}
	if configFile != "" {
		if err := LoadFile(configFile, &cfg); err != nil {
			return Config{}, err
		}
		cfg.ConfigFile = configFile
	}
	if err := ApplyEnv(&cfg, lookupEnv); err != nil {
		return Config{}, err
	}
	if err := flags.apply(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.ShowVersion {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the TOML document at path onto cfg. Keys that are not
// recognized are reported as errors.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return decodeTOML(data, cfg)
}

func decodeTOML(data []byte, cfg *Config) error {
	var raw fileConfig
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return fmt.Errorf("%w: unknown keys %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}

	if meta.IsDefined("poll_interval") {
		interval, err := time.ParseDuration(raw.PollInterval)
		if err != nil {
			return fmt.Errorf("%w: poll_interval: %v", ErrInvalidConfig, err)
		}
		cfg.PollInterval = interval
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = parseLevel(raw.LogLevel)
	}
	if meta.IsDefined("target") {
		cfg.Target = strings.TrimSpace(raw.Target)
	}
	if meta.IsDefined("geometry_file") {
		cfg.GeometryFile = raw.GeometryFile
	}
	if meta.IsDefined("listen") {
		cfg.ListenAddr = raw.Listen
	}
	if meta.IsDefined("history_size") {
		cfg.HistorySize = raw.HistorySize
	}
	if meta.IsDefined("allowed_origins") {
		cfg.AllowedOrigins = raw.AllowedOrigins
	}
	return nil
}

// ApplyEnv overlays RESIZEWATCH_* variables onto cfg.
func ApplyEnv(cfg *Config, lookupEnv func(string) (string, bool)) error {
	if value, ok := lookupEnv(envPrefix + "POLL_INTERVAL"); ok && strings.TrimSpace(value) != "" {
		interval, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %sPOLL_INTERVAL: %v", ErrInvalidConfig, envPrefix, err)
		}
		cfg.PollInterval = interval
	}
	if value, ok := lookupEnv(envPrefix + "LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		cfg.LogLevel = parseLevel(value)
	}
	if value, ok := lookupEnv(envPrefix + "TARGET"); ok && strings.TrimSpace(value) != "" {
		cfg.Target = strings.TrimSpace(value)
	}
	if value, ok := lookupEnv(envPrefix + "GEOMETRY_FILE"); ok && strings.TrimSpace(value) != "" {
		cfg.GeometryFile = strings.TrimSpace(value)
	}
	if value, ok := lookupEnv(envPrefix + "LISTEN"); ok {
		cfg.ListenAddr = strings.TrimSpace(value)
	}
	if value, ok := lookupEnv(envPrefix + "HISTORY_SIZE"); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %sHISTORY_SIZE: %v", ErrInvalidConfig, envPrefix, err)
		}
		cfg.HistorySize = parsed
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive, got %s", ErrInvalidConfig, c.PollInterval)
	}
	if _, ok := logging.ParseLevel(string(c.LogLevel)); !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}
	switch c.Target {
	case TargetTerminal:
	case TargetFile:
		if strings.TrimSpace(c.GeometryFile) == "" {
			return fmt.Errorf("%w: target %q requires a geometry file", ErrInvalidConfig, TargetFile)
		}
	default:
		return fmt.Errorf("%w: unknown target %q", ErrInvalidConfig, c.Target)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("%w: history size must be positive, got %d", ErrInvalidConfig, c.HistorySize)
	}
	return nil
}

type flagValues struct {
	configFile     string
	pollInterval   time.Duration
	logLevel       string
	target         string
	geometryFile   string
	listen         string
	historySize    int
	allowedOrigins string
	version        bool
	set            map[string]bool
}

func parseFlags(args []string, usage io.Writer) (flagValues, error) {
	if usage == nil {
		usage = io.Discard
	}
	defaults := Defaults()
	fs := flag.NewFlagSet("resizewatch", flag.ContinueOnError)
	fs.SetOutput(usage)

	var values flagValues
	fs.StringVar(&values.configFile, "config", "", "TOML config file (env: RESIZEWATCH_CONFIG)")
	fs.DurationVar(&values.pollInterval, "poll-interval", defaults.PollInterval, "Geometry poll interval")
	fs.StringVar(&values.logLevel, "log-level", string(defaults.LogLevel), "Log level: debug, info, warning, error")
	fs.StringVar(&values.target, "target", defaults.Target, "Watched target: terminal or file")
	fs.StringVar(&values.geometryFile, "file", "", "Geometry YAML file for -target=file")
	fs.StringVar(&values.listen, "listen", "", "HTTP listen address; empty disables the server")
	fs.IntVar(&values.historySize, "history", defaults.HistorySize, "Number of samples kept in history")
	fs.StringVar(&values.allowedOrigins, "allowed-origins", "", "Comma separated websocket origins")
	fs.BoolVar(&values.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return flagValues{}, err
	}
	if fs.NArg() > 0 {
		return flagValues{}, fmt.Errorf("%w: unexpected arguments %v", ErrInvalidConfig, fs.Args())
	}

	values.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		values.set[f.Name] = true
	})
	return values, nil
}

func (values flagValues) apply(cfg *Config) error {
	if values.set["poll-interval"] {
		cfg.PollInterval = values.pollInterval
	}
	if values.set["log-level"] {
		cfg.LogLevel = parseLevel(values.logLevel)
	}
	if values.set["target"] {
		cfg.Target = strings.TrimSpace(values.target)
	}
	if values.set["file"] {
		cfg.GeometryFile = values.geometryFile
		if !values.set["target"] {
			cfg.Target = TargetFile
		}
	}
	if values.set["listen"] {
		cfg.ListenAddr = values.listen
	}
	if values.set["history"] {
		cfg.HistorySize = values.historySize
	}
	if values.set["allowed-origins"] {
		cfg.AllowedOrigins = splitList(values.allowedOrigins)
	}
	cfg.ShowVersion = values.version
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseLevel canonicalizes known level spellings and passes anything else
// through for Validate to reject.
func parseLevel(value string) logging.Level {
	if level, ok := logging.ParseLevel(value); ok {
		return level
	}
	return logging.Level(strings.TrimSpace(value))
}
