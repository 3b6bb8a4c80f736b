package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// ErrMissing reports that no config file could be found. Surfaced
// separately so operators can tell a misdeployed config from a down
// database.
var ErrMissing = errors.New("config file not found")

type DB struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"password"`
	Name string `mapstructure:"database"`
}

func (d DB) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", d.User, d.Pass, d.Host, d.Port, d.Name)
}

type MQ struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"password"`
}

func (m MQ) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", m.User, m.Pass, m.Host, m.Port)
}

type App struct {
	HTTPPort   int    `mapstructure:"http_port"`
	Migrations string `mapstructure:"migrations"`
	Database   DB     `mapstructure:"database"`
	Rabbit     MQ     `mapstructure:"rabbitmq"`
}

// Load reads config.yaml (from path if given, else ./ or ./deploy) with
// CAFE_-prefixed environment overrides.
func Load(path string) (App, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("deploy")
	}
	v.SetEnvPrefix("CAFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_port", 3000)
	v.SetDefault("migrations", "migrations")
	v.SetDefault("database.port", 5432)
	v.SetDefault("rabbitmq.port", 5672)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return App{}, fmt.Errorf("%w: %v", ErrMissing, err)
		}
		return App{}, fmt.Errorf("read config: %w", err)
	}

	var a App
	if err := v.Unmarshal(&a); err != nil {
		return App{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if a.Database.Host == "" {
		return App{}, errors.New("invalid config: missing database host")
	}
	if a.Rabbit.Host == "" {
		return App{}, errors.New("invalid config: missing rabbitmq host")
	}
	return a, nil
}
