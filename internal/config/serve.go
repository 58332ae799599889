package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ServeConfig holds configuration for the serve command.
type ServeConfig struct {
	Listen    string
	Manifest  string
	Subgraphs []string
	LogLevel  string
	Store     StoreConfig
}

// LoadServe merges config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("listen", ":8080")
	})
	if err != nil {
		return ServeConfig{}, err
	}

	cfg := ServeConfig{
		Listen:    v.GetString("listen"),
		Manifest:  v.GetString("manifest"),
		Subgraphs: getStringSlice(v, "subgraphs"),
		LogLevel:  v.GetString("log-level"),
		Store:     loadStore(v),
	}

	return cfg, nil
}
