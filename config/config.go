// Package config loads the authorization store settings.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Backend names accepted by StoreConfig.Backend.
const (
	BackendMongoDB = "mongodb"
	BackendRedis   = "redis"
	BackendMemory  = "memory"
)

// StoreConfig holds everything the provider needs to assemble an
// authorization store. Tags use mapstructure for Viper unmarshalling; every
// key is also bindable from the environment.
type StoreConfig struct {
	// Backend selects the record repository: mongodb, redis or memory. The
	// redis backend still needs MongoDB for the registered client catalog.
	Backend string `mapstructure:"STORE_BACKEND"`

	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`

	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int    `mapstructure:"REDIS_DB"`
	RedisKeyPrefix string `mapstructure:"REDIS_KEY_PREFIX"`

	// ClientCacheTTLSec bounds how long a resolved registered client is
	// served from memory. Zero disables the cache.
	ClientCacheTTLSec int `mapstructure:"CLIENT_CACHE_TTL_SEC"`
}

// LoadConfig reads configuration from an optional authstore.yaml, the
// environment and defaults, in that order of precedence.
func LoadConfig() (*StoreConfig, error) {
	v := viper.New()

	v.SetConfigName("authstore")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/authstore/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("STORE_BACKEND", BackendMongoDB)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB_NAME", "authstore")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "authstore")
	v.SetDefault("CLIENT_CACHE_TTL_SEC", 60)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env and defaults cover everything.
	}

	var cfg StoreConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
