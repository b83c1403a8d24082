package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	// DefaultPort is used when PORT is unset or not a usable TCP port.
	DefaultPort = 3000

	EnvPort = "PORT"
	EnvMode = "APP_ENV"

	DefaultPublicDir       = "public"
	DefaultViewsDir        = "views"
	DefaultLandingTemplate = "index.html"
	DefaultEnvFile         = ".env"
)

// Variant selects how the landing page at "/" is produced.
type Variant string

const (
	// VariantTemplate renders a template from the views directory.
	VariantTemplate Variant = "template"
	// VariantFile returns a fixed HTML file from disk.
	VariantFile Variant = "file"
)

// Config holds everything the server needs at startup. It is not modified
// once the server is running.
type Config struct {
	Port            int
	PublicDir       string
	ViewsDir        string
	Landing         Variant
	LandingTemplate string
	LandingFile     string
	CacheViews      bool
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Port:            DefaultPort,
		PublicDir:       DefaultPublicDir,
		ViewsDir:        DefaultViewsDir,
		Landing:         VariantTemplate,
		LandingTemplate: DefaultLandingTemplate,
		LandingFile:     DefaultPublicDir + "/index.html",
	}
}

// FromEnv returns Default with the environment applied.
func FromEnv() Config {
	cfg := Default()
	cfg.Port = ParsePort(os.Getenv(EnvPort))
	cfg.CacheViews = IsProduction(os.Getenv(EnvMode))
	return cfg
}

// ParsePort converts a port value to an int. Absent, non-numeric or out of
// range values yield DefaultPort.
func ParsePort(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultPort
	}
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return DefaultPort
	}
	return port
}

// ParseVariant accepts "template" or "file", case-insensitively.
func ParseVariant(value string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(value))); v {
	case VariantTemplate, VariantFile:
		return v, nil
	default:
		return "", errors.Errorf("unknown landing variant %q (want %q or %q)", value, VariantTemplate, VariantFile)
	}
}

// IsProduction reports whether the APP_ENV value enables production behaviour.
func IsProduction(mode string) bool {
	return strings.EqualFold(strings.TrimSpace(mode), "production")
}

// LoadEnvFile loads variables from path into the process environment.
// Variables that are already set are left alone. A missing file is not an
// error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "loading env file %s", path)
	}
	return nil
}

// Validate checks the configuration for values the server cannot start with.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	if c.PublicDir == "" {
		return errors.New("public directory must be set")
	}
	switch c.Landing {
	case VariantTemplate:
		if c.ViewsDir == "" {
			return errors.New("views directory must be set for the template landing page")
		}
		if c.LandingTemplate == "" {
			return errors.New("landing template name must be set")
		}
	case VariantFile:
		if c.LandingFile == "" {
			return errors.New("landing file must be set for the file landing page")
		}
	default:
		return errors.Errorf("unknown landing variant %q", c.Landing)
	}
	return nil
}
