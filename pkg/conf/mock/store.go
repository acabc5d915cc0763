// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package confmock

import (
	"github.com/wrgl/gridsync/pkg/conf"
	"gopkg.in/yaml.v3"
)

// Store keeps the config in memory in its serialized form so that callers
// never share pointers with it
type Store struct {
	b []byte
}

func (s *Store) Path() string {
	return "memory"
}

func (s *Store) Open() (*conf.Config, error) {
	c := &conf.Config{}
	if err := yaml.Unmarshal(s.b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) Save(c *conf.Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	s.b = b
	return nil
}
