// Package settings loads the background collector's tunables from the
// environment (and an optional .env file), applying the same defaults
// the core uses when a variable is unset or malformed.
package settings

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/segflash/fsgc/gc"
)

// Codec names accepted by GC_BLOCK_CODEC.
const (
	CodecSnappy = "snappy"
	CodecLZ4    = "lz4"
	CodecZstd   = "zstd"
)

// Settings is the full set of environment-tunable knobs. Default gives
// every field a value and Load starts from Default, so a Settings built
// from an empty environment is still usable; a zero-value Settings is
// not filled in.
type Settings struct {
	MinSleepMs      int64
	MaxSleepMs      int64
	NoGCSleepMs     int64
	MaxVictimSearch int
	DefaultNGC      int
	AllocMode       gc.AllocMode
	BlockCodec      string
	DataRoot        string
	LogLevel        string
}

// Default mirrors the core package's own compiled-in constants so a
// caller that never touches the environment still gets the values
// gc.Driver.RunOnce was designed around.
func Default() Settings {
	return Settings{
		MinSleepMs:      gc.MinSleepMs,
		MaxSleepMs:      gc.MaxSleepMs,
		NoGCSleepMs:     gc.NoGCSleepMs,
		MaxVictimSearch: gc.MaxVictimSearch,
		DefaultNGC:      1,
		AllocMode:       gc.AllocLFS,
		BlockCodec:      CodecSnappy,
		DataRoot:        "./data",
		LogLevel:        "info",
	}
}

// Load reads envFile (if non-empty and present, via godotenv) into the
// process environment and then overlays Default() with whatever GC_*
// variables are set. A malformed numeric value logs a warning and keeps
// the default rather than aborting startup.
func Load(envFile string) Settings {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			slog.Warn("settings: could not load env file", slog.String("path", envFile), slog.Any("error", err))
		}
	}

	s := Default()
	s.MinSleepMs = envInt64("GC_MIN_SLEEP_MS", s.MinSleepMs)
	s.MaxSleepMs = envInt64("GC_MAX_SLEEP_MS", s.MaxSleepMs)
	s.NoGCSleepMs = envInt64("GC_NOGC_SLEEP_MS", s.NoGCSleepMs)
	s.MaxVictimSearch = int(envInt64("GC_MAX_VICTIM_SEARCH", int64(s.MaxVictimSearch)))
	s.DefaultNGC = int(envInt64("GC_DEFAULT_NGC", int64(s.DefaultNGC)))
	s.BlockCodec = envString("GC_BLOCK_CODEC", s.BlockCodec)
	s.DataRoot = envString("GC_DATA_ROOT", s.DataRoot)
	s.LogLevel = envString("GC_LOG_LEVEL", s.LogLevel)

	if v := os.Getenv("GC_ALLOC_MODE"); v == "ssr" {
		s.AllocMode = gc.AllocSSR
	}

	return s
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("settings: invalid integer, using default", slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return n
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
