package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// LoadDotEnv reads the given .env files into the process environment without
// overriding variables that are already set. Missing files are only noted.
func LoadDotEnv(log *slog.Logger, files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Info("dotenv_not_found", "file", f)
				continue
			}
			log.Warn("dotenv_load_failed", "file", f, "err", err)
		}
	}
}

// Parse fills T from env tags. A nil environment means the process environment.
func Parse[T any](environment map[string]string) (T, error) {
	cfg, err := env.ParseAsWithOptions[T](env.Options{Environment: environment})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("config: %w", withEnvKeys[T](err))
	}
	return cfg, nil
}

// withEnvKeys rewrites field parse errors to name the variable an operator
// sets instead of the Go field.
func withEnvKeys[T any](err error) error {
	var agg env.AggregateError
	if !errors.As(err, &agg) {
		return err
	}
	keys := envKeys(reflect.TypeFor[T]())
	out := make([]error, 0, len(agg.Errors))
	for _, e := range agg.Errors {
		var pe env.ParseError
		if errors.As(e, &pe) {
			if key, ok := keys[pe.Name]; ok {
				e = fmt.Errorf("%s: invalid %s value: %w", key, pe.Type, pe.Err)
			}
		}
		out = append(out, e)
	}
	return errors.Join(out...)
}

func envKeys(t reflect.Type) map[string]string {
	keys := map[string]string{}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return keys
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if key, _, _ := strings.Cut(f.Tag.Get("env"), ","); key != "" {
			keys[f.Name] = key
		}
	}
	return keys
}

// CSV splits a comma separated list, dropping blanks.
func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
