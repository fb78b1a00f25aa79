package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/workspace-spider/internal/adapters/driving/tui"
	"github.com/custodia-labs/workspace-spider/internal/connectors/atlassian"
	"github.com/custodia-labs/workspace-spider/internal/connectors/confluence"
	"github.com/custodia-labs/workspace-spider/internal/connectors/jira"
	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driven"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driving"
	"github.com/custodia-labs/workspace-spider/internal/core/services"
	"github.com/custodia-labs/workspace-spider/internal/extract"
	"github.com/custodia-labs/workspace-spider/internal/logger"
)

var (
	scanConfluenceURL string
	scanJiraURL       string
	scanSpaces        []string
	scanJQL           string
	scanWorkers       int
	scanResumeID      string
	scanProgress      bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover workspace artifacts",
	Long: `Runs a discovery traversal across the configured products.

Confluence traversal starts from spaces, Jira traversal from a JQL
issue search. Every fetched artifact is scanned for links to further
artifacts until the frontier drains. The finished session is stored
for later reporting, export and resumption.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanConfluenceURL, "confluence-url", "",
		"Confluence base URL (overrides config)")
	scanCmd.Flags().StringVar(&scanJiraURL, "jira-url", "",
		"Jira base URL (overrides config)")
	scanCmd.Flags().StringSliceVar(&scanSpaces, "space", nil,
		"Confluence space key to seed (repeatable; default all visible)")
	scanCmd.Flags().StringVar(&scanJQL, "jql", "",
		"JQL query scoping the Jira seed")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0,
		"concurrent fetches per product (overrides config)")
	scanCmd.Flags().StringVar(&scanResumeID, "resume", "",
		"resume a stored session by ID")
	scanCmd.Flags().BoolVar(&scanProgress, "progress", false,
		"show the interactive progress display")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	scanner := scannerService
	if scanner == nil {
		built, err := buildScanner(cmd)
		if err != nil {
			return err
		}
		scanner = built
		scannerService = built
	}

	if scanResumeID != "" {
		cmd.Printf("Resuming session %s...\n", scanResumeID)
	} else {
		cmd.Println("Scanning workspace...")
	}

	run := func(ctx context.Context) (*domain.ScanSession, error) {
		if scanResumeID != "" {
			return scanner.Resume(ctx, scanResumeID)
		}
		return scanner.Scan(ctx)
	}

	ctx := cmd.Context()
	var (
		session *domain.ScanSession
		scanErr error
	)
	if scanProgress && term.IsTerminal(int(os.Stdout.Fd())) {
		session, scanErr = tui.RunScan(ctx, scanner, run)
	} else {
		session, scanErr = scanWithProgress(ctx, cmd, scanner, run)
	}

	if session != nil {
		printScanReport(cmd, session)
	}
	if scanErr != nil {
		return fmt.Errorf("scan failed: %w", scanErr)
	}
	return nil
}

// scanWithProgress runs the traversal while printing progress updates.
func scanWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	scanner driving.Scanner,
	run func(context.Context) (*domain.ScanSession, error),
) (*domain.ScanSession, error) {
	type result struct {
		session *domain.ScanSession
		err     error
	}

	// Run the traversal in a goroutine
	resCh := make(chan result, 1)
	go func() {
		session, err := run(ctx)
		resCh <- result{session: session, err: err}
	}()

	// Verbose logging already narrates the traversal; the carriage
	// return rewrites below would shred it.
	if logger.IsVerbose() {
		res := <-resCh
		return res.session, res.err
	}

	// Poll status every 500ms
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastFetched := 0
	for {
		select {
		case res := <-resCh:
			status := scanner.Status()
			if status.Expanded > 0 {
				cmd.Printf("\rFetched %d of %d artifacts (%d failed)\n",
					status.Expanded, status.Discovered, status.Failed)
			}
			return res.session, res.err
		case <-ticker.C:
			status := scanner.Status()
			if status.Expanded > lastFetched {
				cmd.Printf("\rFetching... %d of %d artifacts", status.Expanded, status.Discovered)
				lastFetched = status.Expanded
			}
		}
	}
}

// buildScanner assembles the traversal engine from config, flags and
// credentials.
func buildScanner(cmd *cobra.Command) (driving.Scanner, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	scanCfg, err := cfg.ScanConfig()
	if err != nil {
		return nil, err
	}
	applyScanFlags(&scanCfg)
	scanCfg.ApplyDefaults()
	if err := scanCfg.Validate(); err != nil {
		return nil, err
	}

	email, token := cfg.Credentials()
	if email == "" || token == "" {
		email, token, err = promptCredentials(cmd)
		if err != nil {
			return nil, err
		}
	}
	creds := atlassian.Credentials{Email: email, APIToken: token}

	store, err := ensureStore()
	if err != nil {
		return nil, err
	}

	extractor, err := extract.New(scanCfg)
	if err != nil {
		return nil, err
	}

	var connectors []driven.Connector
	if scanCfg.Confluence.Enabled() {
		conn, err := confluence.New(atlassian.Options{
			BaseURL:     scanCfg.Confluence.BaseURL,
			Credentials: creds,
			Limiter: atlassian.NewRateLimiter(domain.SystemConfluence,
				scanCfg.Confluence.RateCapacity, scanCfg.Confluence.RateRefill),
			RetryMax:    scanCfg.RetryMax,
			BackoffBase: scanCfg.BackoffBase,
			Timeout:     scanCfg.RequestTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("building confluence connector: %w", err)
		}
		connectors = append(connectors, conn)
	}
	if scanCfg.Jira.Enabled() {
		conn, err := jira.New(atlassian.Options{
			BaseURL:     scanCfg.Jira.BaseURL,
			Credentials: creds,
			Limiter: atlassian.NewRateLimiter(domain.SystemJira,
				scanCfg.Jira.RateCapacity, scanCfg.Jira.RateRefill),
			RetryMax:    scanCfg.RetryMax,
			BackoffBase: scanCfg.BackoffBase,
			Timeout:     scanCfg.RequestTimeout,
		}, scanCfg.Jira.JQL)
		if err != nil {
			return nil, fmt.Errorf("building jira connector: %w", err)
		}
		connectors = append(connectors, conn)
	}

	return services.NewScanner(scanCfg, connectors, extractor, store)
}

// applyScanFlags overlays command-line flags on the file configuration.
func applyScanFlags(cfg *domain.ScanConfig) {
	if scanConfluenceURL != "" {
		cfg.Confluence.BaseURL = scanConfluenceURL
	}
	if scanJiraURL != "" {
		cfg.Jira.BaseURL = scanJiraURL
	}
	if len(scanSpaces) > 0 {
		cfg.Confluence.Spaces = scanSpaces
	}
	if scanJQL != "" {
		cfg.Jira.JQL = scanJQL
	}
	if scanWorkers > 0 {
		cfg.Confluence.Workers = scanWorkers
		cfg.Jira.Workers = scanWorkers
	}
}

// promptCredentials asks for the Atlassian account email and API token
// when neither the config file nor the environment carries them.
func promptCredentials(cmd *cobra.Command) (email, token string, err error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", "", fmt.Errorf("%w: no Atlassian credentials configured", domain.ErrAuthFailed)
	}

	cmd.Print("Atlassian account email: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("reading email: %w", err)
	}
	email = strings.TrimSpace(line)

	cmd.Print("API token (input hidden): ")
	raw, err := term.ReadPassword(fd)
	cmd.Println()
	if err != nil {
		return "", "", fmt.Errorf("reading token: %w", err)
	}
	token = strings.TrimSpace(string(raw))

	if email == "" || token == "" {
		return "", "", fmt.Errorf("%w: email and API token are both required", domain.ErrAuthFailed)
	}
	return email, token, nil
}

// printScanReport prints the closing summary of a session.
func printScanReport(cmd *cobra.Command, session *domain.ScanSession) {
	cmd.Println()
	cmd.Printf("Session:   %s\n", session.ID)
	cmd.Printf("Status:    %s\n", session.Status)
	cmd.Printf("Duration:  %s\n", session.Duration().Round(time.Millisecond))
	cmd.Printf("Artifacts: %d (%d fetched, %d stubs)\n",
		session.Stats.Artifacts, session.Stats.Fetched, session.Stats.Stubs)
	cmd.Printf("Edges:     %d\n", session.Stats.Edges)
	cmd.Printf("Requests:  %d\n", session.Stats.Requests)
	if session.Error != "" {
		cmd.Printf("Error:     %s\n", session.Error)
	}
	printFailures(cmd, session.Failures)
}

// printFailures lists the artifacts a session could not fully capture.
func printFailures(cmd *cobra.Command, failures []domain.Failure) {
	if len(failures) == 0 {
		return
	}
	cmd.Printf("Failures:  %d\n", len(failures))
	for _, f := range failures {
		cmd.Printf("  [%s] %s: %s\n", f.Kind, f.Key, f.Reason)
	}
}
