package config

import (
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	SelectorRoundRobin = "round-robin"
	SelectorRandom     = "random"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type ServiceConfig struct {
	Name      string `mapstructure:"name"`
	Advertise string `mapstructure:"advertise"`
}

type RegistryConfig struct {
	Address           string `mapstructure:"address"`
	HeartbeatInterval string `mapstructure:"heartbeat_interval"`
	HeartbeatMaxAge   string `mapstructure:"heartbeat_max_age"`
	RefreshInterval   string `mapstructure:"refresh_interval"`
}

type BreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	OpenCooldown     string `mapstructure:"open_cooldown"`
}

type InvokerConfig struct {
	CallTimeout string `mapstructure:"call_timeout"`
}

type SelectorConfig struct {
	Type string `mapstructure:"type"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Service  ServiceConfig  `mapstructure:"service"`
	Registry RegistryConfig `mapstructure:"registry"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Invoker  InvokerConfig  `mapstructure:"invoker"`
	Selector SelectorConfig `mapstructure:"selector"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("service.name", "fabric-service")
	viper.SetDefault("service.advertise", "localhost:8080")
	viper.SetDefault("registry.address", "http://localhost:8500")
	viper.SetDefault("registry.heartbeat_interval", "5s")
	viper.SetDefault("registry.heartbeat_max_age", "15s")
	viper.SetDefault("registry.refresh_interval", "5s")
	viper.SetDefault("breaker.failure_threshold", 5)
	viper.SetDefault("breaker.open_cooldown", "10s")
	viper.SetDefault("invoker.call_timeout", "2s")
	viper.SetDefault("selector.type", SelectorRoundRobin)
	viper.SetDefault("logging.level", LogLevelInfo)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Error("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(ValidateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Service,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServiceConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServiceConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Name,
						validation.Required,
						validation.Length(1, 64),
					),
					validation.Field(&sc.Advertise,
						validation.Required,
						validation.By(ValidateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Registry,
			validation.Required,
			validation.By(func(value interface{}) error {
				rc, ok := value.(RegistryConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RegistryConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.Address,
						validation.Required,
						validation.By(validateRegistryURL),
					),
					validation.Field(&rc.HeartbeatInterval,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&rc.HeartbeatMaxAge,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&rc.RefreshInterval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Breaker,
			validation.Required,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.FailureThreshold,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&bc.OpenCooldown,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Invoker,
			validation.Required,
			validation.By(func(value interface{}) error {
				ic, ok := value.(InvokerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an InvokerConfig")
				}
				return validation.ValidateStruct(&ic,
					validation.Field(&ic.CallTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Selector,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(SelectorConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a SelectorConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Type,
						validation.Required,
						validation.In(SelectorRoundRobin, SelectorRandom),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
	)
}

// ValidateHostPort is the host:port rule applied to every listen and
// advertise address in the fabric. Exported so the HTTP server wrapper can
// apply the same rule to addresses assembled outside the config layer.
func ValidateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateRegistryURL(value interface{}) error {
	registryURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if registryURL == "" {
		return validation.NewError("validation_empty_url", "registry URL cannot be empty")
	}

	if !strings.HasPrefix(registryURL, "http://") && !strings.HasPrefix(registryURL, "https://") {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if err := is.URL.Validate(registryURL); err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	return nil
}
