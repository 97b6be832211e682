/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Write every entry to a dump file",
		Long: `Write every entry of the store to a dump file in one read-only
transaction. Each entry is stored as a CRC-checked frame, so a dump can be
restored into either engine.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := mustEnv(cmd)
			if err != nil {
				return err
			}
			n, err := e.db.Main.Dump(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("dump failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dumped %d entries to %s\n", n, args[0])
			return nil
		},
	}
	return cmd
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Load a dump file into the store",
		Long: `Load a dump file written by "strata dump". The restore runs in a single
transaction: a corrupt or truncated dump leaves the store unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := mustEnv(cmd)
			if err != nil {
				return err
			}
			n, err := e.db.Main.Restore(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d entries from %s\n", n, args[0])
			return nil
		},
	}
	return cmd
}
