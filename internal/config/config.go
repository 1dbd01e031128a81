package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults for every setting. Get* accessors fall back to these when a field
// is unset.
const (
	DefaultPort            = "/dev/ttyACM0"
	DefaultBaudRate        = 115200
	DefaultDataBits        = 8
	DefaultStopBits        = 1
	DefaultParity          = "N"
	DefaultEmitInterval    = 30 * time.Millisecond
	DefaultWindowSize      = 800
	DefaultReadTimeout     = 50 * time.Millisecond
	DefaultReadSize        = 512
	DefaultQueueSize       = 256
	DefaultIndexPolicy     = "clamp"
	DefaultListen          = "127.0.0.1:8090"
	DefaultFixtureInterval = 10 * time.Millisecond
)

// EnvPrefix is prepended to upper-cased keys when reading the environment,
// e.g. HANDSENSE_BAUD_RATE.
const EnvPrefix = "HANDSENSE"

// Keys lists every configuration key in the order they are documented.
var Keys = []string{
	"port", "baud_rate", "data_bits", "stop_bits", "parity",
	"emit_interval", "window_size", "read_timeout", "read_size", "queue_size",
	"index_policy", "listen", "fixture", "fixture_interval",
}

// Config holds the session settings. Fields are pointers so that a partial
// file only overrides what it names.
type Config struct {
	Port     *string `json:"port,omitempty" mapstructure:"port"`
	BaudRate *int    `json:"baud_rate,omitempty" mapstructure:"baud_rate"`
	DataBits *int    `json:"data_bits,omitempty" mapstructure:"data_bits"`
	StopBits *int    `json:"stop_bits,omitempty" mapstructure:"stop_bits"`
	Parity   *string `json:"parity,omitempty" mapstructure:"parity"`

	EmitInterval *string `json:"emit_interval,omitempty" mapstructure:"emit_interval"` // duration string like "30ms"
	WindowSize   *int    `json:"window_size,omitempty" mapstructure:"window_size"`
	ReadTimeout  *string `json:"read_timeout,omitempty" mapstructure:"read_timeout"`
	ReadSize     *int    `json:"read_size,omitempty" mapstructure:"read_size"`
	QueueSize    *int    `json:"queue_size,omitempty" mapstructure:"queue_size"`
	IndexPolicy  *string `json:"index_policy,omitempty" mapstructure:"index_policy"`

	Listen          *string `json:"listen,omitempty" mapstructure:"listen"`
	Fixture         *string `json:"fixture,omitempty" mapstructure:"fixture"`
	FixtureInterval *string `json:"fixture_interval,omitempty" mapstructure:"fixture_interval"`
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyConfig returns a Config with all fields unset.
func EmptyConfig() *Config {
	return &Config{}
}

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() *Config {
	return &Config{
		Port:            ptrString(DefaultPort),
		BaudRate:        ptrInt(DefaultBaudRate),
		DataBits:        ptrInt(DefaultDataBits),
		StopBits:        ptrInt(DefaultStopBits),
		Parity:          ptrString(DefaultParity),
		EmitInterval:    ptrString(DefaultEmitInterval.String()),
		WindowSize:      ptrInt(DefaultWindowSize),
		ReadTimeout:     ptrString(DefaultReadTimeout.String()),
		ReadSize:        ptrInt(DefaultReadSize),
		QueueSize:       ptrInt(DefaultQueueSize),
		IndexPolicy:     ptrString(DefaultIndexPolicy),
		Listen:          ptrString(DefaultListen),
		Fixture:         ptrString(""),
		FixtureInterval: ptrString(DefaultFixtureInterval.String()),
	}
}

// SetDefaults registers every default on v so that flags, environment and
// files layer on top of them.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("port", *d.Port)
	v.SetDefault("baud_rate", *d.BaudRate)
	v.SetDefault("data_bits", *d.DataBits)
	v.SetDefault("stop_bits", *d.StopBits)
	v.SetDefault("parity", *d.Parity)
	v.SetDefault("emit_interval", *d.EmitInterval)
	v.SetDefault("window_size", *d.WindowSize)
	v.SetDefault("read_timeout", *d.ReadTimeout)
	v.SetDefault("read_size", *d.ReadSize)
	v.SetDefault("queue_size", *d.QueueSize)
	v.SetDefault("index_policy", *d.IndexPolicy)
	v.SetDefault("listen", *d.Listen)
	v.SetDefault("fixture", *d.Fixture)
	v.SetDefault("fixture_interval", *d.FixtureInterval)
}

// BindEnv makes v read HANDSENSE_* environment variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// FromViper builds a Config from every key v knows about, whether it came
// from a default, a file, the environment or a bound flag.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := EmptyConfig()
	if v.IsSet("port") {
		cfg.Port = ptrString(v.GetString("port"))
	}
	if v.IsSet("baud_rate") {
		cfg.BaudRate = ptrInt(v.GetInt("baud_rate"))
	}
	if v.IsSet("data_bits") {
		cfg.DataBits = ptrInt(v.GetInt("data_bits"))
	}
	if v.IsSet("stop_bits") {
		cfg.StopBits = ptrInt(v.GetInt("stop_bits"))
	}
	if v.IsSet("parity") {
		cfg.Parity = ptrString(v.GetString("parity"))
	}
	if v.IsSet("emit_interval") {
		cfg.EmitInterval = ptrString(v.GetString("emit_interval"))
	}
	if v.IsSet("window_size") {
		cfg.WindowSize = ptrInt(v.GetInt("window_size"))
	}
	if v.IsSet("read_timeout") {
		cfg.ReadTimeout = ptrString(v.GetString("read_timeout"))
	}
	if v.IsSet("read_size") {
		cfg.ReadSize = ptrInt(v.GetInt("read_size"))
	}
	if v.IsSet("queue_size") {
		cfg.QueueSize = ptrInt(v.GetInt("queue_size"))
	}
	if v.IsSet("index_policy") {
		cfg.IndexPolicy = ptrString(v.GetString("index_policy"))
	}
	if v.IsSet("listen") {
		cfg.Listen = ptrString(v.GetString("listen"))
	}
	if v.IsSet("fixture") {
		cfg.Fixture = ptrString(v.GetString("fixture"))
	}
	if v.IsSet("fixture_interval") {
		cfg.FixtureInterval = ptrString(v.GetString("fixture_interval"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfig loads a Config from a JSON, YAML or TOML file. Fields omitted
// from the file keep their defaults through the Get* accessors.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	switch ext := strings.ToLower(filepath.Ext(cleanPath)); ext {
	case ".json", ".yaml", ".yml", ".toml":
	default:
		return nil, fmt.Errorf("config file must be .json, .yaml or .toml, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	v := viper.New()
	v.SetConfigFile(cleanPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return FromViper(v)
}

// Validate checks that every set field is usable.
func (c *Config) Validate() error {
	if c.Port != nil && strings.TrimSpace(*c.Port) == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}
	if c.DataBits != nil && (*c.DataBits < 5 || *c.DataBits > 8) {
		return fmt.Errorf("data_bits must be between 5 and 8, got %d", *c.DataBits)
	}
	if c.StopBits != nil && *c.StopBits != 1 && *c.StopBits != 2 {
		return fmt.Errorf("stop_bits must be 1 or 2, got %d", *c.StopBits)
	}
	if c.Parity != nil {
		switch strings.ToUpper(*c.Parity) {
		case "N", "E", "O", "NONE", "EVEN", "ODD":
		default:
			return fmt.Errorf("parity must be N, E or O, got %q", *c.Parity)
		}
	}
	if err := validateDuration("emit_interval", c.EmitInterval, true); err != nil {
		return err
	}
	if err := validateDuration("read_timeout", c.ReadTimeout, false); err != nil {
		return err
	}
	if err := validateDuration("fixture_interval", c.FixtureInterval, false); err != nil {
		return err
	}
	if c.WindowSize != nil && *c.WindowSize < 1 {
		return fmt.Errorf("window_size must be at least 1, got %d", *c.WindowSize)
	}
	if c.ReadSize != nil && *c.ReadSize < 1 {
		return fmt.Errorf("read_size must be at least 1, got %d", *c.ReadSize)
	}
	if c.QueueSize != nil && *c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", *c.QueueSize)
	}
	if c.IndexPolicy != nil {
		switch strings.ToLower(strings.TrimSpace(*c.IndexPolicy)) {
		case "", "clamp", "reject":
		default:
			return fmt.Errorf("index_policy must be clamp or reject, got %q", *c.IndexPolicy)
		}
	}
	return nil
}

func validateDuration(key string, s *string, allowZero bool) error {
	if s == nil || *s == "" {
		return nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return fmt.Errorf("invalid %s '%s': %w", key, *s, err)
	}
	if d < 0 || (d == 0 && !allowZero) {
		return fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return nil
}

func getDuration(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// GetPort returns the serial device path or the default.
func (c *Config) GetPort() string {
	if c.Port == nil || *c.Port == "" {
		return DefaultPort
	}
	return *c.Port
}

// GetBaudRate returns the baud_rate value or the default.
func (c *Config) GetBaudRate() int {
	if c.BaudRate == nil {
		return DefaultBaudRate
	}
	return *c.BaudRate
}

// GetDataBits returns the data_bits value or the default.
func (c *Config) GetDataBits() int {
	if c.DataBits == nil {
		return DefaultDataBits
	}
	return *c.DataBits
}

// GetStopBits returns the stop_bits value or the default.
func (c *Config) GetStopBits() int {
	if c.StopBits == nil {
		return DefaultStopBits
	}
	return *c.StopBits
}

// GetParity returns the parity value or the default.
func (c *Config) GetParity() string {
	if c.Parity == nil || *c.Parity == "" {
		return DefaultParity
	}
	return *c.Parity
}

// GetEmitInterval parses and returns the EmitInterval as a time.Duration.
// Zero disables rate limiting.
func (c *Config) GetEmitInterval() time.Duration {
	return getDuration(c.EmitInterval, DefaultEmitInterval)
}

// GetWindowSize returns the window_size value or the default.
func (c *Config) GetWindowSize() int {
	if c.WindowSize == nil {
		return DefaultWindowSize
	}
	return *c.WindowSize
}

// GetReadTimeout parses and returns the ReadTimeout as a time.Duration.
func (c *Config) GetReadTimeout() time.Duration {
	d := getDuration(c.ReadTimeout, DefaultReadTimeout)
	if d == 0 {
		return DefaultReadTimeout
	}
	return d
}

// GetReadSize returns the read_size value or the default.
func (c *Config) GetReadSize() int {
	if c.ReadSize == nil {
		return DefaultReadSize
	}
	return *c.ReadSize
}

// GetQueueSize returns the queue_size value or the default.
func (c *Config) GetQueueSize() int {
	if c.QueueSize == nil {
		return DefaultQueueSize
	}
	return *c.QueueSize
}

// GetIndexPolicy returns the index_policy value or the default.
func (c *Config) GetIndexPolicy() string {
	if c.IndexPolicy == nil || strings.TrimSpace(*c.IndexPolicy) == "" {
		return DefaultIndexPolicy
	}
	return strings.ToLower(strings.TrimSpace(*c.IndexPolicy))
}

// GetListen returns the debug listen address. An explicit empty string
// disables the debug server.
func (c *Config) GetListen() string {
	if c.Listen == nil {
		return DefaultListen
	}
	return *c.Listen
}

// GetFixture returns the fixture file path, empty when reading a device.
func (c *Config) GetFixture() string {
	if c.Fixture == nil {
		return ""
	}
	return *c.Fixture
}

// GetFixtureInterval parses and returns the FixtureInterval as a time.Duration.
func (c *Config) GetFixtureInterval() time.Duration {
	d := getDuration(c.FixtureInterval, DefaultFixtureInterval)
	if d == 0 {
		return DefaultFixtureInterval
	}
	return d
}
