package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	keyAppEnv    = "app_env"
	keyDBDriver  = "db_driver"
	keyDBDSN     = "db_dsn"
	keyRedisAddr = "redis_addr"
	keyRedisPass = "redis_password"
	keyRedisDB   = "redis_db"
	keyCacheTTL  = "cache_ttl_seconds"

	defaultConfigName = "estatectl"
)

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"db-driver":  keyDBDriver,
	"db-dsn":     keyDBDSN,
	"redis-addr": keyRedisAddr,
}

// loadConfig resolves settings with precedence flag > env > config file > default.
// A missing default config file is not an error; a missing explicit one is.
func loadConfig(file string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(keyAppEnv, "prod")
	v.SetDefault(keyDBDriver, "sqlite")
	v.SetDefault(keyRedisDB, 0)
	v.SetDefault(keyCacheTTL, 300)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range []string{keyAppEnv, keyDBDriver, keyDBDSN, keyRedisAddr, keyRedisPass, keyRedisDB, keyCacheTTL} {
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return nil, err
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		switch {
		case file == "" && errors.As(err, &nf):
		case file == "" && errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
	}
	return v, nil
}

func cacheTTL(v *viper.Viper) time.Duration {
	return time.Duration(v.GetInt(keyCacheTTL)) * time.Second
}
