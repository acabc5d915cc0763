// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package utils

import (
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
	"github.com/spf13/viper"
	"github.com/wrgl/gridsync/pkg/conf"
	conffs "github.com/wrgl/gridsync/pkg/conf/fs"
)

// Viper keys. Each can be set through a flag or a GRIDSYNC_ prefixed
// environment variable, and wins over the config file.
const (
	KeyConfig        = "config"
	KeySQLite        = "sqlite"
	KeyRows          = "rows"
	KeySeed          = "seed"
	KeyDebounceWait  = "debounce_wait"
	KeyViewportFetch = "viewport_fetch"
)

// ConfigStore returns the file store selected by --config / GRIDSYNC_CONFIG
func ConfigStore() (*conffs.Store, error) {
	return conffs.NewStore(viper.GetString(KeyConfig))
}

// flagOverrides collects the viper keys that were explicitly set
func flagOverrides() *conf.Config {
	c := &conf.Config{Source: &conf.Source{}, Sync: &conf.Sync{}}
	if viper.IsSet(KeySQLite) && viper.GetString(KeySQLite) != "" {
		c.Source.Kind = conf.SourceSQLite
		c.Source.SQLitePath = viper.GetString(KeySQLite)
	}
	if viper.IsSet(KeyRows) {
		n := viper.GetInt(KeyRows)
		c.Source.Rows = &n
	}
	if viper.IsSet(KeySeed) {
		n := viper.GetInt64(KeySeed)
		c.Source.Seed = &n
	}
	if viper.IsSet(KeyDebounceWait) {
		d := conf.Duration(viper.GetDuration(KeyDebounceWait))
		c.Sync.DebounceWait = &d
	}
	if viper.IsSet(KeyViewportFetch) {
		b := viper.GetBool(KeyViewportFetch)
		c.Sync.ViewportFetch = &b
	}
	return c
}

// LoadConfig reads the config file, applies flag and environment overrides
// then fills in defaults
func LoadConfig() (*conf.Config, error) {
	s, err := ConfigStore()
	if err != nil {
		return nil, err
	}
	return LoadConfigFrom(s)
}

func LoadConfigFrom(s conf.Store) (*conf.Config, error) {
	c, err := s.Open()
	if err != nil {
		return nil, err
	}
	if err = conf.Merge(c, flagOverrides()); err != nil {
		return nil, err
	}
	return conf.WithDefaults(c)
}

// WatchConfig calls onChange with the reloaded config whenever the config
// file is written. It does nothing if the file does not exist yet.
func WatchConfig(logger logr.Logger, onChange func(c *conf.Config)) error {
	s, err := ConfigStore()
	if err != nil {
		return err
	}
	if _, err := os.Stat(s.Path()); err != nil {
		if os.IsNotExist(err) {
			logger.V(1).Info("config file does not exist, not watching", "path", s.Path())
			return nil
		}
		return err
	}
	v := viper.New()
	v.SetConfigFile(s.Path())
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		c, err := LoadConfig()
		if err != nil {
			logger.Error(err, "error reloading config", "path", e.Name)
			return
		}
		logger.Info("config reloaded", "path", e.Name)
		onChange(c)
	})
	v.WatchConfig()
	return nil
}
