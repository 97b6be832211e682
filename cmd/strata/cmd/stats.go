package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show entry counts per record type",
		Long: `Show the number of entries and bytes stored under each key prefix, with
a breakdown by fields version. Several versions under one prefix mean some
records have not been migrated yet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := mustEnv(cmd)
			if err != nil {
				return err
			}
			stats, err := e.db.Main.Stats(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintf(w, "Path:\t%s\n", stats.Path)
			fmt.Fprintf(w, "Table:\t%s\n", stats.Table)
			fmt.Fprintf(w, "Entries:\t%d\n", stats.Entries)
			fmt.Fprintf(w, "Bytes:\t%d keys, %d values\n", stats.KeyBytes, stats.ValueBytes)
			fmt.Fprintln(w)
			fmt.Fprintln(w, "PREFIX\tENTRIES\tBYTES\tVERSIONS")
			for _, p := range stats.Prefixes {
				fmt.Fprintf(w, "%d\t%d\t%d\t%d\n", p.KeyPrefix, p.Entries, p.Bytes, len(p.ByVersion))
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [hex-prefix]",
		Short: "Print raw entries in key order",
		Example: `  strata scan --limit 10
  strata scan 0000a1b2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := mustEnv(cmd)
			if err != nil {
				return err
			}
			var prefix []byte
			if len(args) == 1 {
				if prefix, err = hex.DecodeString(args[0]); err != nil {
					return fmt.Errorf("prefix must be hex encoded: %w", err)
				}
			}
			limit, _ := cmd.Flags().GetInt("limit")

			entries, err := e.db.Main.Scan(cmd.Context(), prefix, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "PREFIX\tVERSION\tKEY\tVALUE")
			for _, en := range entries {
				fmt.Fprintf(w, "%d\t%d\t%x\t%x\n", en.KeyPrefix, en.FieldsVersion, en.Key, en.Value)
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 100, "maximum entries to print, 0 for all")
	return cmd
}
