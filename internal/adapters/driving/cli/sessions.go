package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/workspace-spider/internal/core/ports/driving"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored scan sessions",
	Long:  `Lists and deletes the scan sessions stored by previous runs.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE:  runSessionsList,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	svc, err := ensureSessions()
	if err != nil {
		return err
	}

	summaries, err := svc.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(summaries) == 0 {
		cmd.Println("No stored sessions.")
		return nil
	}

	cmd.Println("Stored sessions:")
	cmd.Println()
	for _, s := range summaries {
		cmd.Printf("  %s  %-9s  %s  %8s  %d artifacts, %d edges, %d failures\n",
			s.ID, s.Status, s.StartedAt, s.Duration, s.Artifacts, s.Edges, s.Failures)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	svc, err := ensureSessions()
	if err != nil {
		return err
	}

	id := args[0]
	if err := svc.Delete(cmd.Context(), id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	cmd.Printf("Deleted session: %s\n", id)
	return nil
}

// resolveSessionID picks the session named by args, falling back to
// the most recent stored session.
func resolveSessionID(ctx context.Context, svc driving.Sessions, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	summaries, err := svc.List(ctx)
	if err != nil {
		return "", fmt.Errorf("listing sessions: %w", err)
	}
	if len(summaries) == 0 {
		return "", errors.New("no stored sessions")
	}
	return summaries[0].ID, nil
}
