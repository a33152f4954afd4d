package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

const (
	appName   = "nativeaudio"
	envPrefix = "NATIVEAUDIO"
)

type GlobalsConfig struct {
	Output GlobalOutputConfig `mapstructure:"output" yaml:"output"`
}

type GlobalOutputConfig struct {
	RecordingsDirectory string `mapstructure:"recordings_directory" yaml:"recordings_directory"`
}

type RootConfig struct {
	ActiveConfig string             `mapstructure:"active_config" yaml:"active_config"`
	Globals      *GlobalsConfig     `mapstructure:"globals,omitempty" yaml:"globals,omitempty"`
	Configs      map[string]*Config `mapstructure:"configs" yaml:"configs"`
}

type Config struct {
	Capture  CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Playback PlaybackConfig `mapstructure:"playback" yaml:"playback"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`

	// Internal field to track inheritance information for info command
	Inheritance *InheritanceInfo `mapstructure:"-" yaml:"-"`
}

// InheritanceInfo records, per setting, whether the value came from the
// selected profile or was inherited from the default profile.
type InheritanceInfo struct {
	Capture struct {
		Backend       string // "inherited" or "profile-specific"
		Device        string
		BlockFrames   string
		Permission    string
		IncludeBase64 string
	}
	Output struct {
		Directory string
	}
	Server struct {
		Port string
	}
}

type CaptureConfig struct {
	Backend       string        `mapstructure:"backend" yaml:"backend"`         // "portaudio", "file", "auto"
	Device        string        `mapstructure:"device" yaml:"device"`           // portaudio device name, empty for default input
	SourceFile    string        `mapstructure:"source_file" yaml:"source_file"` // wav replayed by the file backend
	BlockFrames   int           `mapstructure:"block_frames" yaml:"block_frames"`
	JoinTimeout   time.Duration `mapstructure:"join_timeout" yaml:"join_timeout"`
	Permission    string        `mapstructure:"permission" yaml:"permission"`                   // "granted", "denied"
	IncludeBase64 *bool         `mapstructure:"include_base64" yaml:"include_base64,omitempty"` // unset inherits
}

// Base64Enabled reports whether stop results carry the PCM as base64.
func (c CaptureConfig) Base64Enabled() bool {
	return c.IncludeBase64 != nil && *c.IncludeBase64
}

type PlaybackConfig struct {
	BufferSize time.Duration `mapstructure:"buffer_size" yaml:"buffer_size"`
}

type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "text", "json"
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			Backend:     "auto",
			BlockFrames: 1024,
			JoinTimeout: time.Second,
			Permission:  "granted",
		},
		Playback: PlaybackConfig{
			BufferSize: 100 * time.Millisecond,
		},
		Output: OutputConfig{
			Directory: DefaultOutputDirectory(),
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultOutputDirectory is the per-user cache directory recordings go to.
func DefaultOutputDirectory() string {
	dir, err := gap.NewScope(gap.User, appName).CacheDir()
	if err != nil || dir == "" {
		return filepath.Join(os.TempDir(), appName)
	}
	return dir
}

// DefaultConfigFile is where the CLI looks for a config file when --config
// is not given.
func DefaultConfigFile() string {
	path, err := gap.NewScope(gap.User, appName).ConfigPath(appName + ".yaml")
	if err != nil {
		return ""
	}
	return path
}

// Load returns the built-in defaults when configFile is empty or does not
// exist, and the selected profile otherwise. Environment overrides apply
// in both cases.
func Load(configFile, profile string) (*Config, error) {
	if configFile == "" {
		return applyEnv(Default()), nil
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return applyEnv(Default()), nil
	}
	return LoadWithProfile(configFile, profile)
}

func LoadWithProfile(configFile, profile string) (*Config, error) {
	if configFile == "" {
		return nil, fmt.Errorf("no config file specified, use --config flag")
	}

	rootConfig, err := ValidateConfigurationFormat(configFile)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	configName := profile
	if configName == "" {
		configName = rootConfig.ActiveConfig
	}
	if configName == "" {
		configName = "default"
	}

	selected, exists := rootConfig.Configs[configName]
	if !exists {
		return nil, fmt.Errorf("configuration profile '%s' not found", configName)
	}

	// Built-in defaults sit below the file's default profile, which sits
	// below the selected profile.
	base := Default()
	if configName != "default" {
		if defaultProfile, exists := rootConfig.Configs["default"]; exists {
			base = mergeConfigs(base, defaultProfile)
		}
	}
	result := mergeConfigs(base, selected)

	// Global recordings directory takes priority over profile-specific directory
	if rootConfig.Globals != nil && rootConfig.Globals.Output.RecordingsDirectory != "" {
		result.Output.Directory = rootConfig.Globals.Output.RecordingsDirectory
	}

	result = applyEnv(result)
	result.Output.Directory = expandPath(result.Output.Directory)
	result.Capture.SourceFile = expandPath(result.Capture.SourceFile)

	if err := validateConfig(result); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return result, nil
}

// UpdateActiveConfig updates the active_config field in the config file
func UpdateActiveConfig(configFile, newActiveConfig string) error {
	if configFile == "" {
		return fmt.Errorf("no config file specified")
	}

	// Create a new viper instance to avoid interfering with the global one
	v := viper.New()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	v.Set("active_config", newActiveConfig)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configFile, err)
	}

	return nil
}

// mergeConfigs overlays the non-zero settings of profile on base.
func mergeConfigs(base, profile *Config) *Config {
	result := &Config{}

	result.Inheritance = &InheritanceInfo{}

	if base != nil {
		result.Capture = base.Capture
		result.Playback = base.Playback
		result.Output = base.Output
		result.Server = base.Server
		result.Log = base.Log

		// Mark as inherited by default
		result.Inheritance.Capture.Backend = "inherited"
		result.Inheritance.Capture.Device = "inherited"
		result.Inheritance.Capture.BlockFrames = "inherited"
		result.Inheritance.Capture.Permission = "inherited"
		result.Inheritance.Capture.IncludeBase64 = "inherited"
		result.Inheritance.Output.Directory = "inherited"
		result.Inheritance.Server.Port = "inherited"
	}

	if profile == nil {
		return result
	}

	if profile.Capture.Backend != "" {
		result.Capture.Backend = profile.Capture.Backend
		result.Inheritance.Capture.Backend = "profile-specific"
	}
	if profile.Capture.Device != "" {
		result.Capture.Device = profile.Capture.Device
		result.Inheritance.Capture.Device = "profile-specific"
	}
	if profile.Capture.SourceFile != "" {
		result.Capture.SourceFile = profile.Capture.SourceFile
	}
	if profile.Capture.BlockFrames != 0 {
		result.Capture.BlockFrames = profile.Capture.BlockFrames
		result.Inheritance.Capture.BlockFrames = "profile-specific"
	}
	if profile.Capture.JoinTimeout != 0 {
		result.Capture.JoinTimeout = profile.Capture.JoinTimeout
	}
	if profile.Capture.Permission != "" {
		result.Capture.Permission = profile.Capture.Permission
		result.Inheritance.Capture.Permission = "profile-specific"
	}
	if profile.Capture.IncludeBase64 != nil {
		result.Capture.IncludeBase64 = profile.Capture.IncludeBase64
		result.Inheritance.Capture.IncludeBase64 = "profile-specific"
	}

	if profile.Playback.BufferSize != 0 {
		result.Playback.BufferSize = profile.Playback.BufferSize
	}

	if profile.Output.Directory != "" {
		result.Output.Directory = profile.Output.Directory
		result.Inheritance.Output.Directory = "profile-specific"
	}

	if profile.Server.Host != "" {
		result.Server.Host = profile.Server.Host
	}
	if profile.Server.Port != 0 {
		result.Server.Port = profile.Server.Port
		result.Inheritance.Server.Port = "profile-specific"
	}

	if profile.Log.Level != "" {
		result.Log.Level = profile.Log.Level
	}
	if profile.Log.Format != "" {
		result.Log.Format = profile.Log.Format
	}

	return result
}

// applyEnv overrides settings from NATIVEAUDIO_* variables, e.g.
// NATIVEAUDIO_CAPTURE_BACKEND or NATIVEAUDIO_SERVER_PORT.
func applyEnv(cfg *Config) *Config {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	keys := []string{
		"capture.backend", "capture.device", "capture.source_file", "capture.block_frames",
		"capture.join_timeout", "capture.permission", "capture.include_base64",
		"playback.buffer_size", "output.directory", "server.host", "server.port",
		"log.level", "log.format",
	}
	for _, key := range keys {
		v.BindEnv(key)
	}

	if v.IsSet("capture.backend") {
		cfg.Capture.Backend = v.GetString("capture.backend")
	}
	if v.IsSet("capture.device") {
		cfg.Capture.Device = v.GetString("capture.device")
	}
	if v.IsSet("capture.source_file") {
		cfg.Capture.SourceFile = v.GetString("capture.source_file")
	}
	if v.IsSet("capture.block_frames") {
		cfg.Capture.BlockFrames = v.GetInt("capture.block_frames")
	}
	if v.IsSet("capture.join_timeout") {
		cfg.Capture.JoinTimeout = v.GetDuration("capture.join_timeout")
	}
	if v.IsSet("capture.permission") {
		cfg.Capture.Permission = v.GetString("capture.permission")
	}
	if v.IsSet("capture.include_base64") {
		enabled := v.GetBool("capture.include_base64")
		cfg.Capture.IncludeBase64 = &enabled
	}
	if v.IsSet("playback.buffer_size") {
		cfg.Playback.BufferSize = v.GetDuration("playback.buffer_size")
	}
	if v.IsSet("output.directory") {
		cfg.Output.Directory = v.GetString("output.directory")
	}
	if v.IsSet("server.host") {
		cfg.Server.Host = v.GetString("server.host")
	}
	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.format") {
		cfg.Log.Format = v.GetString("log.format")
	}

	return cfg
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// ValidateConfigurationFormat validates the configuration file format and returns parsed config
func ValidateConfigurationFormat(configFile string) (*RootConfig, error) {
	v := viper.New()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	var rootConfig RootConfig
	if err := v.Unmarshal(&rootConfig); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if len(rootConfig.Configs) == 0 {
		return nil, fmt.Errorf("configs section is required")
	}

	if rootConfig.ActiveConfig != "" {
		if _, ok := rootConfig.Configs[rootConfig.ActiveConfig]; !ok {
			return nil, fmt.Errorf("active_config '%s' does not name a profile", rootConfig.ActiveConfig)
		}
	}

	for configName, profile := range rootConfig.Configs {
		if profile == nil {
			continue
		}
		if err := validateProfile(profile); err != nil {
			return nil, fmt.Errorf("invalid config '%s': %w", configName, err)
		}
	}

	return &rootConfig, nil
}

// validateProfile checks the settings a profile sets. Unset fields are
// left for inheritance and not checked here.
func validateProfile(p *Config) error {
	switch strings.ToLower(p.Capture.Backend) {
	case "", "auto", "portaudio", "file":
	default:
		return fmt.Errorf("capture.backend must be 'auto', 'portaudio' or 'file', got: %s", p.Capture.Backend)
	}

	if p.Capture.BlockFrames < 0 {
		return fmt.Errorf("capture.block_frames must be >= 0, got: %d", p.Capture.BlockFrames)
	}
	if p.Capture.JoinTimeout < 0 {
		return fmt.Errorf("capture.join_timeout must be >= 0, got: %s", p.Capture.JoinTimeout)
	}

	switch strings.ToLower(p.Capture.Permission) {
	case "", "granted", "denied":
	default:
		return fmt.Errorf("capture.permission must be 'granted' or 'denied', got: %s", p.Capture.Permission)
	}

	if p.Playback.BufferSize < 0 {
		return fmt.Errorf("playback.buffer_size must be >= 0, got: %s", p.Playback.BufferSize)
	}

	if p.Server.Port < 0 || p.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got: %d", p.Server.Port)
	}

	switch strings.ToLower(p.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got: %s", p.Log.Level)
	}

	switch strings.ToLower(p.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json', got: %s", p.Log.Format)
	}

	return nil
}

// validateConfig checks a fully resolved configuration.
func validateConfig(cfg *Config) error {
	if err := validateProfile(cfg); err != nil {
		return err
	}
	if strings.EqualFold(cfg.Capture.Backend, "file") && cfg.Capture.SourceFile == "" {
		return fmt.Errorf("capture.backend 'file' requires capture.source_file")
	}
	if cfg.Output.Directory == "" {
		return fmt.Errorf("output.directory cannot be empty")
	}
	return nil
}
