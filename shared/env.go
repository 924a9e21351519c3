package shared

import (
	"fmt"
	"os"
	"strconv"
)

type GetenvParser[T any] func(raw string) (T, error)

func GetenvString(raw string) (string, error) { return raw, nil }

func GetenvInt(raw string) (int, error) { return strconv.Atoi(raw) }

func GetenvBool(raw string) (bool, error) { return strconv.ParseBool(raw) }

// Getenv looks up key and parses it with parse. An unset variable yields def,
// unless required is set, in which case it is an error.
func Getenv[T any](parse GetenvParser[T], key string, required bool, def T) (T, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		if required {
			return def, fmt.Errorf("environment variable %s is required", key)
		}
		return def, nil
	}
	val, err := parse(raw)
	if err != nil {
		return def, fmt.Errorf("parsing environment variable %s: %w", key, err)
	}
	return val, nil
}
