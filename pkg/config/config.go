// Package config layers itb-chat settings: built-in defaults, a YAML config
// file, ITBCHAT_* environment variables and command line flags, in order of
// increasing precedence.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-go-golems/itb-chat/pkg/events"
	"github.com/go-go-golems/itb-chat/pkg/logging"
	"github.com/go-go-golems/itb-chat/pkg/qa"
)

const (
	EnvPrefix  = "ITBCHAT"
	ConfigDir  = "$HOME/.itb-chat"
	ConfigName = "config"
)

type UISettings struct {
	Markdown bool   `mapstructure:"markdown" yaml:"markdown"`
	Style    string `mapstructure:"style" yaml:"style"`
	ShowHelp bool   `mapstructure:"show-help" yaml:"show-help"`
}

type Settings struct {
	Endpoint string           `mapstructure:"endpoint"`
	Timeout  time.Duration    `mapstructure:"timeout"`
	Log      logging.Settings `mapstructure:"log"`
	UI       UISettings       `mapstructure:"ui"`
	Events   events.Settings  `mapstructure:"events"`
}

// MarshalYAML prints the timeout as a duration string.
func (s Settings) MarshalYAML() (interface{}, error) {
	return struct {
		Endpoint string           `yaml:"endpoint"`
		Timeout  string           `yaml:"timeout"`
		Log      logging.Settings `yaml:"log"`
		UI       UISettings       `yaml:"ui"`
		Events   events.Settings  `yaml:"events"`
	}{s.Endpoint, s.Timeout.String(), s.Log, s.UI, s.Events}, nil
}

func Defaults() Settings {
	return Settings{
		Endpoint: qa.DefaultEndpoint,
		Timeout:  qa.DefaultTimeout,
		Log:      logging.DefaultSettings(),
		UI:       UISettings{Markdown: true, Style: "dark", ShowHelp: true},
		Events:   events.DefaultSettings(),
	}
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.Endpoint) == "" {
		return errors.New("endpoint must not be empty")
	}
	if s.Timeout < 0 {
		return errors.Errorf("timeout must not be negative, got %s", s.Timeout)
	}
	switch s.UI.Style {
	case "dark", "light", "notty", "auto":
	default:
		return errors.Errorf("unknown ui style %q", s.UI.Style)
	}
	return nil
}

// flag name -> settings key
var flagKeys = map[string]string{
	"endpoint":      "endpoint",
	"timeout":       "timeout",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"log-file":      "log.file",
	"markdown":      "ui.markdown",
	"style":         "ui.style",
	"redis-enabled": "events.redis-enabled",
	"redis-addr":    "events.redis-addr",
}

type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	d := Defaults()
	v.SetDefault("endpoint", d.Endpoint)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("ui.markdown", d.UI.Markdown)
	v.SetDefault("ui.style", d.UI.Style)
	v.SetDefault("ui.show-help", d.UI.ShowHelp)
	v.SetDefault("events.redis-enabled", d.Events.RedisEnabled)
	v.SetDefault("events.redis-addr", d.Events.RedisAddr)
	v.SetDefault("events.redis-group", d.Events.RedisGroup)
	v.SetDefault("events.redis-consumer", d.Events.RedisConsumer)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// AddFlags registers the persistent flags and binds them to their keys.
func (l *Loader) AddFlags(fs *pflag.FlagSet) error {
	d := Defaults()
	fs.String("config", "", "config file (default "+ConfigDir+"/"+ConfigName+".yaml)")
	fs.String("endpoint", d.Endpoint, "question-answering endpoint URL")
	fs.Duration("timeout", d.Timeout, "timeout for one question")
	fs.String("log-level", d.Log.Level, "log level (trace, debug, info, warn, error)")
	fs.String("log-format", d.Log.Format, "log format (console, json)")
	fs.String("log-file", d.Log.File, "write logs to this file")
	fs.Bool("markdown", d.UI.Markdown, "render bot answers as markdown")
	fs.String("style", d.UI.Style, "markdown style (dark, light, notty, auto)")
	fs.Bool("redis-enabled", d.Events.RedisEnabled, "mirror session events to Redis Streams")
	fs.String("redis-addr", d.Events.RedisAddr, "Redis address host:port")

	for flag, key := range flagKeys {
		if err := l.v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return errors.Wrapf(err, "could not bind flag %s", flag)
		}
	}
	return nil
}

// Load reads configFile (or the default config location when empty) and
// returns the validated settings.
func (l *Loader) Load(configFile string) (Settings, error) {
	if configFile != "" {
		l.v.SetConfigFile(configFile)
		if err := l.v.ReadInConfig(); err != nil {
			return Settings{}, errors.Wrapf(err, "could not read config file %s", configFile)
		}
	} else {
		l.v.SetConfigName(ConfigName)
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(ConfigDir)
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Settings{}, errors.Wrap(err, "could not read config file")
			}
		}
	}
	if used := l.v.ConfigFileUsed(); used != "" {
		log.Debug().Str("config_path", used).Msg("using config file")
	}

	var s Settings
	if err := l.v.Unmarshal(&s); err != nil {
		return Settings{}, errors.Wrap(err, "could not decode settings")
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ConfigFileUsed returns the path of the file Load read, if any.
func (l *Loader) ConfigFileUsed() string { return l.v.ConfigFileUsed() }
