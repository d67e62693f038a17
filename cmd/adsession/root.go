package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/innoad/adsession"
)

// errDenied makes `can` exit with status 1 without printing a failure.
var errDenied = errors.New("permission denied")

func exitCode(err error) int {
	switch {
	case errors.Is(err, errDenied):
		return 1
	case errors.Is(err, adsession.ErrInvalidConfig):
		return 2
	default:
		return 1
	}
}

// app carries what every subcommand shares. Fields are filled in the root
// command's PersistentPreRunE.
type app struct {
	v      *viper.Viper
	cfg    adsession.Config
	logger *slog.Logger

	redisEmbedded bool
	closeRedis    func()
}

func newRootCmd() *cobra.Command {
	a := &app{v: adsession.NewViper()}
	a.v.SetDefault("storage.backend", adsession.StorageFile)
	a.v.SetDefault("storage.file_path", defaultSessionFile())

	var configPath string
	root := &cobra.Command{
		Use:           "adsession",
		Short:         "Manage an InnoAd platform session from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, configPath)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.closeRedis != nil {
				a.closeRedis()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML config file")
	flags.String("base-url", "", "platform API base URL")
	flags.String("storage", "", "persistent storage backend: memory, file or redis")
	flags.String("session-file", "", "session file for the file backend")
	flags.String("redis-addr", "", "redis address for the redis backend")
	flags.BoolVar(&a.redisEmbedded, "redis-embedded", false, "use an in-process redis (demo only; state is lost on exit)")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-format", "", "text or json")
	bindFlags(a.v, flags, map[string]string{
		"base-url":     "api.base_url",
		"storage":      "storage.backend",
		"session-file": "storage.file_path",
		"redis-addr":   "storage.redis_addr",
		"log-level":    "log.level",
		"log-format":   "log.format",
	})

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newRefreshCmd(a),
		newStatusCmd(a),
		newWatchCmd(a),
		newCanCmd(a),
		newHashPasswordCmd(),
	)
	return root
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}

func (a *app) init(cmd *cobra.Command, configPath string) error {
	if configPath != "" {
		a.v.SetConfigFile(configPath)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	if a.redisEmbedded {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start embedded redis: %w", err)
		}
		a.closeRedis = mr.Close
		a.v.Set("storage.backend", adsession.StorageRedis)
		a.v.Set("storage.redis_addr", mr.Addr())
	}

	cfg, err := adsession.DecodeConfig(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.Log)
	return nil
}

func newLogger(w io.Writer, cfg adsession.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("component", "adsession")
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "adsession", "session.yaml")
}
