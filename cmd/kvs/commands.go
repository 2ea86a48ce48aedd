package main

import (
	"fmt"

	"code.cloudfoundry.org/bytefmt"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/0xRadioAc7iv/go-kvs/core"
)

func newGetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withStore(cmd, func(s *core.Store) error {
				value, ok, err := s.Get(args[0])
				if err != nil {
					return err
				}

				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Key not found")
					return nil
				}

				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	}
}

func newSetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store VALUE under KEY",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withStore(cmd, func(s *core.Store) error {
				return s.Set(args[0], args[1])
			})
		},
	}
}

func newRemoveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm KEY",
		Short:   "Remove KEY",
		Aliases: []string{"remove"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withStore(cmd, func(s *core.Store) error {
				err := s.Remove(args[0])
				if errors.Is(err, core.ErrKeyNotFound) {
					return core.ErrKeyNotFound
				}
				return err
			})
		},
	}
}

func newCompactCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Rewrite the log keeping only live records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withStore(cmd, func(s *core.Store) error {
				before := s.Stats()
				if err := s.Compact(); err != nil {
					return err
				}
				after := s.Stats()

				fmt.Fprintf(cmd.OutOrStdout(), "compacted %s -> %s\n",
					bytefmt.ByteSize(uint64(before.TotalBytes)), bytefmt.ByteSize(uint64(after.TotalBytes)))
				return nil
			})
		},
	}
}

func newStatsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show key count and log sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withStore(cmd, func(s *core.Store) error {
				st := s.Stats()
				out := cmd.OutOrStdout()

				fmt.Fprintf(out, "keys:       %d\n", st.Keys)
				fmt.Fprintf(out, "segments:   %d\n", st.Segments)
				fmt.Fprintf(out, "log size:   %s\n", bytefmt.ByteSize(uint64(st.TotalBytes)))
				fmt.Fprintf(out, "live bytes: %s\n", bytefmt.ByteSize(uint64(st.LiveBytes)))
				fmt.Fprintf(out, "stale:      %.1f%%\n", st.StaleRatio()*100)
				return nil
			})
		},
	}
}

func newKeysCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List every key in ascending order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withStore(cmd, func(s *core.Store) error {
				for _, k := range s.Keys() {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			})
		},
	}
}
