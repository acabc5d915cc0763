// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package conf

// Store loads and persists a Config
type Store interface {
	Open() (*Config, error)
	Save(*Config) error

	// Path tells the user where the config is kept
	Path() string
}
