package config

import (
	"os"
	"path/filepath"
)

type StoreKind string

const (
	StoreKindMemory StoreKind = "memory"
	StoreKindFile   StoreKind = "file"
	StoreKindRedis  StoreKind = "redis"
)

type StoreConfig interface {
	GetStoreKind() StoreKind
	GetStoreDir() string
	GetStorePassphrase() string
	GetRedisURL() string
	GetRedisNamespace() string
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreKind() StoreKind {
	return StoreKind(GetEnv("TOKEN_STORE", string(StoreKindFile)))
}

// GetStoreDir defaults to ~/.config/oauthctl/tokens.
func (Store) GetStoreDir() string {
	if dir := GetEnv("TOKEN_STORE_DIR", ""); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "tokens")
	}
	return filepath.Join(home, ".config", "oauthctl", "tokens")
}

func (Store) GetStorePassphrase() string {
	return GetEnv("TOKEN_STORE_PASSPHRASE", "")
}

func (Store) GetRedisURL() string {
	return GetEnv("REDIS_URL", "redis://localhost:6379/0")
}

func (Store) GetRedisNamespace() string {
	return GetEnv("REDIS_NAMESPACE", "oauthctl")
}
