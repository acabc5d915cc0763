// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package conffs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wrgl/gridsync/pkg/conf"
	"gopkg.in/yaml.v3"
)

// Store reads and writes a single YAML config file
type Store struct {
	fp string
}

// NewStore returns a store over fp, or over GlobalConfigPath when fp is
// empty
func NewStore(fp string) (*Store, error) {
	if fp == "" {
		var err error
		fp, err = GlobalConfigPath()
		if err != nil {
			return nil, err
		}
	}
	return &Store{fp: fp}, nil
}

func (s *Store) Path() string {
	return s.fp
}

// Open returns an empty config if the file does not exist
func (s *Store) Open() (*conf.Config, error) {
	c := &conf.Config{}
	b, err := os.ReadFile(s.fp)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", s.fp, err)
	}
	return c, nil
}

func (s *Store) Save(c *conf.Config) error {
	if s.fp == "" {
		return fmt.Errorf("empty config path")
	}
	if err := os.MkdirAll(filepath.Dir(s.fp), 0755); err != nil {
		return err
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(s.fp, b, 0644)
}
