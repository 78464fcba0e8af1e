package configutil

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from the given dotenv files into the process environment,
// without overriding variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	for _, f := range files {
		_, err := os.Stat(f)
		if os.IsNotExist(err) {
			continue
		}
		err = godotenv.Load(f)
		if err != nil {
			return err
		}
		slog.Debug("loaded environment file", "file", f)
	}
	return nil
}

// OverrideString sets *target to the value of the environment variable when it is set.
func OverrideString(target *string, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		*target = value
	}
}

// OverrideInt sets *target to the value of the environment variable when it is a valid integer.
func OverrideInt(target *int, key string) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("ignoring non-integer environment variable", "key", key, "value", value)
		return
	}
	*target = n
}
