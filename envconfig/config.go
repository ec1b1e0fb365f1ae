// Package envconfig holds fatlib's environment-derived settings, loaded
// once at startup and readable as plain globals.
package envconfig

import (
	"os"
	"strconv"
	"strings"
)

var (
	// Set via FATLIB_DEBUG in the environment
	Debug bool
	// Set via FATLIB_CACHE in the environment; overrides where
	// specialized artifacts are written and discovered
	CacheDir string
	// Set via FATLIB_NOSPECIALIZE in the environment; when set, loads
	// ignore specialized artifacts entirely
	NoSpecialize bool
	// Set via FATLIB_TMPDIR in the environment; where compiled images
	// are extracted before loading
	TmpDir string
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"FATLIB_DEBUG":        {"FATLIB_DEBUG", Debug, "Show additional debug information (e.g. FATLIB_DEBUG=1)"},
		"FATLIB_CACHE":        {"FATLIB_CACHE", CacheDir, "Directory for specialized artifacts (default: next to the generic artifact)"},
		"FATLIB_NOSPECIALIZE": {"FATLIB_NOSPECIALIZE", NoSpecialize, "Ignore specialized artifacts when loading"},
		"FATLIB_TMPDIR":       {"FATLIB_TMPDIR", TmpDir, "Location for extracted compiled images"},
	}
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	LoadConfig()
}

func LoadConfig() {
	if debug := clean("FATLIB_DEBUG"); debug != "" {
		d, err := strconv.ParseBool(debug)
		if err == nil {
			Debug = d
		} else {
			Debug = true
		}
	}

	if nospec := clean("FATLIB_NOSPECIALIZE"); nospec != "" {
		d, err := strconv.ParseBool(nospec)
		if err == nil {
			NoSpecialize = d
		} else {
			NoSpecialize = true
		}
	}

	CacheDir = clean("FATLIB_CACHE")
	TmpDir = clean("FATLIB_TMPDIR")
}
