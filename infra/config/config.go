package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Dir is the directory of the default config files.
var Dir = "infra/config"

// Load loads the config file into v, decoding by the file extension.
func Load(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config '%s': %w", path, err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(b, v)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, v)
	default:
		return fmt.Errorf("unknown config format '%s' for '%s'", ext, path)
	}
	if err != nil {
		return fmt.Errorf("could not unmarshal config '%s': %w", path, err)
	}
	log.Info().Str("path", path).Msg("loaded config")
	return nil
}

// MustLoad loads the default config for the given key, preferring yaml over json.
func MustLoad(key string, v interface{}) {
	for _, ext := range []string{"yaml", "json"} {
		p := filepath.Join(Dir, fmt.Sprintf("%s.%s", key, ext))
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := Load(p, v); err != nil {
			panic(fmt.Sprintf("could not load config for %s: %s", key, err.Error()))
		}
		return
	}
	panic(fmt.Sprintf("could not find config for %s in %s", key, Dir))
}
