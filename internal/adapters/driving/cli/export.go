package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/workspace-spider/internal/adapters/driven/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Export a stored session",
	Long: `Writes a stored session's artifact graph to JSON or CSV.

JSON goes to --out, or stdout when --out is unset. CSV writes
artifacts.csv, edges.csv and failures.csv into the --out directory.
With no session ID the most recent session is exported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "export format: json or csv")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (json) or directory (csv)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	svc, err := ensureSessions()
	if err != nil {
		return err
	}

	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	id, err := resolveSessionID(ctx, svc, args)
	if err != nil {
		return err
	}

	session, err := svc.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	if format == export.FormatCSV {
		dir := exportOut
		if dir == "" {
			dir = "."
		}
		files, err := export.CSV(dir, session)
		if err != nil {
			return err
		}
		cmd.Printf("Exported session %s:\n", session.ID)
		for _, f := range files {
			cmd.Printf("  %s\n", f)
		}
		return nil
	}

	if exportOut == "" {
		return export.JSON(cmd.OutOrStdout(), session)
	}

	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := export.JSON(f, session); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}

	cmd.Printf("Exported session %s to %s\n", session.ID, exportOut)
	return nil
}
