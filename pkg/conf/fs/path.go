// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package conffs

import (
	"os"
	"path/filepath"
)

// GlobalConfigPath returns $GRIDSYNC_CONFIG_DIR/config.yaml if the variable
// is set, otherwise config.yaml under the user's config directory
func GlobalConfigPath() (string, error) {
	if s := os.Getenv("GRIDSYNC_CONFIG_DIR"); s != "" {
		return filepath.Join(s, "config.yaml"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "gridsync", "config.yaml"), nil
}
