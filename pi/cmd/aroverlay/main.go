/*
DESCRIPTION
  aroverlay composites images over ArUco markers found in camera or video
  frames, either warped onto the region spanned by four anchor markers or
  drawn as a billboard over each marker.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean)

  It is free software: you can redistribute it and/or modify them
  under the terms of the GNU General Public License as published by the
  Free Software Foundation, either version 3 of the License, or (at your
  option) any later version.

  It is distributed in the hope that it will be useful, but WITHOUT
  ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
  FITNESS FOR A PARTICULAR PURPOSE. See the GNU General Public License
  for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt.  If not, see http://www.gnu.org/licenses.
*/

// aroverlay is the command line interface to the marker compositor.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ausocean/utils/logging"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/aroverlay/pi/config"
)

// Logging configuration.
const (
	logMaxSize   = 500 // MB.
	logMaxBackup = 10
	logMaxAge    = 28 // Days.
	logSuppress  = false
)

// Version is the application version.
const Version = "0.1.0"

// Set by the root command before any subcommand runs.
var (
	cfg *config.Config
	log logging.Logger
)

// Persistent flags.
var (
	cfgPath string
	logPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:           "aroverlay",
	Short:         "Composite images over ArUco markers in video",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cfgPath)
		if err != nil {
			return err
		}
		if logPath != "" {
			cfg.LogPath = logPath
		}
		if debug {
			cfg.LogLevel = "debug"
		}
		log = newLogger(cfg, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&logPath, "log-path", "", "log file, overriding LogPath")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")
}

// loadConfig returns the configuration at path, or the defaults when path
// is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("could not load configuration: %w", err)
	}
	return c, nil
}

// newLogger returns a logger writing to the rolling log file at
// c.LogPath and to w.
func newLogger(c *config.Config, w io.Writer) logging.Logger {
	fileLog := &lumberjack.Logger{
		Filename:   c.LogPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	return logging.New(c.Level(), io.MultiWriter(fileLog, w), logSuppress)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errNoCV) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
