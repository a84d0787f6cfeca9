package config

import "github.com/joho/godotenv"

type Config interface {
	EnvConfig
	OAuthConfig
	StoreConfig
	HTTPConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	OAuth
	Store
	HTTP
}

// New loads an optional .env file and returns the environment backed config.
// Values already present in the environment win over the file.
func New() Config {
	_ = godotenv.Load()
	return mainConfig{}
}
