package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LocalName returns the path of the local override of a config file,
// ex. config.json5 -> config.local.json5.
func LocalName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// readLayer reports false without an error when the file does not exist
// or is empty.
func readLayer[T any](path string) (T, bool, error) {
	var out T
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	if len(contents) == 0 {
		return out, false, nil
	}
	err = json5.Unmarshal(contents, &out)
	if err != nil {
		return out, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, true, nil
}

// ReadLayers merges the given json5 files in order, later files override
// the non-zero fields of earlier ones. It returns os.ErrNotExist when none
// of the files exist.
func ReadLayers[T any](paths ...string) (T, error) {
	var out T
	found := false
	for _, path := range paths {
		layer, ok, err := readLayer[T](path)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		if !found {
			out = layer
			found = true
			continue
		}
		err = mergo.Merge(&out, layer, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", path, err)
		}
		slog.Info("merging config with overrides", "file", path)
	}
	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadConfig reads name and merges name's local override over it,
// ex. config.json5 then config.local.json5.
func ReadConfig[T any](name string) (T, error) {
	return ReadLayers[T](name, LocalName(name))
}

// ReadRecursively calls ReadConfig in the working directory and then each
// parent until a configuration file is found.
func ReadRecursively[T any](name string) (T, error) {
	var defaultOut T

	current, err := os.Getwd()
	if err != nil {
		return defaultOut, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if err == nil {
			return config, nil
		}
		if !os.IsNotExist(err) {
			return defaultOut, err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return defaultOut, os.ErrNotExist
		}
		current = parent
	}
}
