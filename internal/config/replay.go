package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	// RPCURL is optional. Without it contract reads during replay fail soft.
	RPCURL    string
	In        string
	Errors    string
	Manifest  string
	Subgraphs []string
	LogLevel  string
	Store     StoreConfig
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("errors", "./data/replay_errors.jsonl")
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	cfg := ReplayConfig{
		RPCURL:    v.GetString("rpc"),
		In:        v.GetString("in"),
		Errors:    v.GetString("errors"),
		Manifest:  v.GetString("manifest"),
		Subgraphs: getStringSlice(v, "subgraphs"),
		LogLevel:  v.GetString("log-level"),
		Store:     loadStore(v),
	}

	return cfg, nil
}
