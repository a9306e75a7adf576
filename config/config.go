// Package config merges the optional config file, ICONCH_* environment
// variables and command-line flags into one validated Config.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

type Config struct {
	// Device is the capture device name; empty means the system default.
	Device string `toml:"device" env:"ICONCH_DEVICE, overwrite"`

	// UI is tui, gui or none.
	UI string `toml:"ui" env:"ICONCH_UI, overwrite" validate:"oneof=tui gui none"`

	// Volume scales clip playback.
	Volume float64 `toml:"volume" env:"ICONCH_VOLUME, overwrite" validate:"gt=0,lte=1"`

	LogPath string `toml:"log_path" env:"ICONCH_LOG_PATH, overwrite"`

	// HoldThreshold separates a hotkey tap (toggle) from a hold (conch
	// while held).
	HoldThreshold time.Duration `toml:"hold_threshold" env:"ICONCH_HOLD_THRESHOLD, overwrite" validate:"gte=50ms,lte=5s"`
}

func Default() Config {
	return Config{
		UI:            "tui",
		Volume:        1,
		HoldThreshold: 350 * time.Millisecond,
	}
}

// DefaultPath is <user config dir>/iconch/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "iconch", "config.toml"), nil
}

type Loader struct {
	// Path of the TOML file; empty skips the file.
	Path string
	// Optional tolerates a missing file.
	Optional bool
	// Lookuper resolves environment variables; nil reads the process
	// environment.
	Lookuper envconfig.Lookuper
}

// Load layers defaults, the file and the environment, in that order, and
// validates the result.
func (l Loader) Load(ctx context.Context) (Config, error) {
	cfg := Default()

	if l.Path != "" {
		if _, err := toml.DecodeFile(l.Path, &cfg); err != nil {
			if !(l.Optional && errors.Is(err, os.ErrNotExist)) {
				return Config{}, fmt.Errorf("config: reading %s: %w", l.Path, err)
			}
		}
	}

	lookuper := l.Lookuper
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, fmt.Errorf("config: environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field in one error wrapping ErrInvalid.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s %s (got %v)", fieldName(fe), formatValidationMessage(fe), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func fieldName(fe validator.FieldError) string {
	switch fe.StructField() {
	case "UI":
		return "ui"
	case "LogPath":
		return "log_path"
	case "HoldThreshold":
		return "hold_threshold"
	}
	return strings.ToLower(fe.StructField())
}

func formatValidationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", fe.Tag())
	}
}
