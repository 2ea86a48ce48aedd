package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/0xRadioAc7iv/go-kvs/core"
	"github.com/0xRadioAc7iv/go-kvs/internal"
	"github.com/0xRadioAc7iv/go-kvs/internal/log"
	"github.com/0xRadioAc7iv/go-kvs/internal/utils"
)

// cliLogLevel keeps one-shot commands quiet unless asked otherwise.
const cliLogLevel = "warn"

type rootFlags struct {
	dir        string
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	c := &cobra.Command{
		Use:           "kvs",
		Short:         "An append-only log key-value store",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	c.PersistentFlags().StringVarP(&flags.dir, "dir", "d", ".", "store directory")
	c.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"settings file (default <dir>/"+internal.SettingsFileName+" if present)")
	c.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	c.AddCommand(
		newGetCmd(flags),
		newSetCmd(flags),
		newRemoveCmd(flags),
		newCompactCmd(flags),
		newStatsCmd(flags),
		newKeysCmd(flags),
		newServeCmd(flags),
	)

	return c
}

// settings loads the settings file and applies the log level. An explicit
// --log-level wins over everything; otherwise fallback is used unless the
// caller prefers the file's level.
func (f *rootFlags) settings(cmd *cobra.Command, fallback string, preferFile bool) (*internal.Settings, error) {
	path := f.configPath
	optional := false
	if path == "" {
		path = filepath.Join(f.dir, internal.SettingsFileName)
		optional = true
	}

	settings, err := internal.LoadSettings(path, optional)
	if err != nil {
		return nil, err
	}

	level := fallback
	switch {
	case cmd.Flags().Changed("log-level"):
		level = f.logLevel
	case preferFile && utils.PathExists(path):
		level = settings.LogLevel
	}

	if err := log.SetLevel(level); err != nil {
		return nil, err
	}

	return settings, nil
}

func (f *rootFlags) openStore(cmd *cobra.Command) (*core.Store, error) {
	settings, err := f.settings(cmd, cliLogLevel, false)
	if err != nil {
		return nil, err
	}

	return core.Open(f.dir, settings.StoreOptions()...)
}

// withStore opens the store, runs fn and closes the store again.
func (f *rootFlags) withStore(cmd *cobra.Command, fn func(s *core.Store) error) error {
	s, err := f.openStore(cmd)
	if err != nil {
		return err
	}

	err = fn(s)
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}
