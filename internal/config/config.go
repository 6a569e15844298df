package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env-default:"info"`
	Host       string `yaml:"host" env-default:"0.0.0.0"`
	TCPPort    string `yaml:"tcp-port" env-default:"5555"`
	HTTPPort   string `yaml:"http-port" env-default:"9090"`
	WSPort     string `yaml:"ws-port" env-default:""`
	MaxClients int    `yaml:"max-clients" env-default:"100"`
	Redis      Redis  `yaml:"redis"`
}

// Redis points at the stats store. An empty host keeps the stats in
// process memory instead.
type Redis struct {
	Host string `yaml:"host" env-default:""`
	Port string `yaml:"port" env-default:"6379"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
