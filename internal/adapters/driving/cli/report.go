package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

var reportCmd = &cobra.Command{
	Use:   "report [session-id]",
	Short: "Show a stored session's capture report",
	Long: `Prints the summary, artifact breakdown and failure list of a stored
scan session. With no session ID the most recent session is reported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	svc, err := ensureSessions()
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

	printScanReport(cmd, session)
	printArtifactBreakdown(cmd, session.Artifacts)
	return nil
}

func printArtifactBreakdown(cmd *cobra.Command, artifacts []domain.Artifact) {
	if len(artifacts) == 0 {
		return
	}

	counts := make(map[string]int)
	for i := range artifacts {
		key := artifacts[i].Key
		counts[fmt.Sprintf("%s/%s", key.System, key.Type)]++
	}

	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	cmd.Println("By type:")
	for _, kind := range kinds {
		cmd.Printf("  %-24s %d\n", kind, counts[kind])
	}
}
