package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driven"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driving"
	"github.com/custodia-labs/workspace-spider/internal/core/registry"
	"github.com/custodia-labs/workspace-spider/internal/logger"
)

// Ensure Scanner implements the interface.
var _ driving.Scanner = (*Scanner)(nil)

// Scanner drives discovery traversals: it seeds the frontier from the
// top-level listings, runs bounded worker pools per product, and folds
// every expansion back into the shared registry. One Scanner runs one
// traversal at a time.
type Scanner struct {
	config     domain.ScanConfig
	connectors map[domain.SourceSystem]driven.Connector
	extractor  driven.LinkExtractor
	store      driven.SessionStore

	mu        sync.RWMutex
	sessionID string
	running   bool
	failures  []domain.Failure
	registry  *registry.Registry
	frontier  *frontier
}

// NewScanner creates a scanner over the given connectors. Connectors
// for products the config disables are ignored; store may be nil to
// skip persistence.
func NewScanner(
	config domain.ScanConfig,
	connectors []driven.Connector,
	extractor driven.LinkExtractor,
	store driven.SessionStore,
) (*Scanner, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if extractor == nil {
		return nil, fmt.Errorf("%w: nil link extractor", domain.ErrInvalidInput)
	}

	byProduct := make(map[domain.SourceSystem]driven.Connector, len(connectors))
	for _, conn := range connectors {
		if conn == nil {
			continue
		}
		byProduct[conn.System()] = conn
	}
	for system, product := range map[domain.SourceSystem]*domain.ProductConfig{
		domain.SystemConfluence: &config.Confluence,
		domain.SystemJira:       &config.Jira,
	} {
		if product.Enabled() && byProduct[system] == nil {
			return nil, fmt.Errorf("%w: %s enabled without a connector", domain.ErrInvalidInput, system)
		}
		if !product.Enabled() {
			delete(byProduct, system)
		}
	}

	return &Scanner{
		config:     config,
		connectors: byProduct,
		extractor:  extractor,
		store:      store,
	}, nil
}

// Scan runs a full discovery traversal and returns the finished
// session. The partial session is returned alongside the error when the
// scan aborts.
func (s *Scanner) Scan(ctx context.Context) (*domain.ScanSession, error) {
	return s.run(ctx, registry.New(), uuid.New().String(), nil)
}

// Resume re-runs discovery from a stored session under the same ID:
// the stored graph is loaded back, unfetched stubs and retry-exhausted
// artifacts are re-queued, and seeding runs again so scans aborted
// mid-seed still complete. Fetched artifacts are never re-fetched, and
// stubs from products the current scan does not serve stay stubs; a
// queued entry no worker drains would stall the traversal.
func (s *Scanner) Resume(ctx context.Context, sessionID string) (*domain.ScanSession, error) {
	logger.Section("Session Resume")
	if s.store == nil {
		return nil, fmt.Errorf("%w: no session store configured", domain.ErrInvalidInput)
	}
	stored, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resuming session %s: %w", sessionID, err)
	}

	reg := registry.New()
	reg.Load(stored.Artifacts, stored.Edges)

	var requeue []domain.FrontierEntry
	skipped := make(map[domain.SourceSystem]int)
	for i := range stored.Artifacts {
		art := &stored.Artifacts[i]
		if art.Fetched {
			continue
		}
		if _, ok := s.connectors[art.Key.System]; !ok {
			skipped[art.Key.System]++
			continue
		}
		requeue = append(requeue, domain.FrontierEntry{Key: art.Key, Reason: domain.ReasonResume})
	}
	for system, count := range skipped {
		logger.Warn("scan %s: leaving %d %s stubs unfetched; product not part of this scan",
			sessionID, count, system)
	}
	logger.Info("scan %s: resuming with %d re-queued artifacts", sessionID, len(requeue))
	return s.run(ctx, reg, sessionID, requeue)
}

// Status returns a live snapshot of the current scan.
func (s *Scanner) Status() driving.ScanStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := driving.ScanStatus{
		SessionID: s.sessionID,
		Running:   s.running,
		Failed:    len(s.failures),
	}
	if s.registry != nil {
		status.Discovered, status.Expanded, _ = s.registry.Counts()
	}
	if s.frontier != nil {
		status.Queued = s.frontier.Queued()
	}
	for _, conn := range s.connectors {
		status.Requests += conn.Requests()
	}
	return status
}

func (s *Scanner) run(
	ctx context.Context,
	reg *registry.Registry,
	sessionID string,
	requeue []domain.FrontierEntry,
) (*domain.ScanSession, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, domain.ErrScanInProgress
	}
	fr := newFrontier()
	s.running = true
	s.sessionID = sessionID
	s.failures = nil
	s.registry = reg
	s.frontier = fr
	s.mu.Unlock()

	session := &domain.ScanSession{
		ID:        sessionID,
		Status:    domain.StatusRunning,
		StartedAt: time.Now().UTC(),
		Config:    s.config,
	}
	logger.Section("Scan Traversal")
	logger.Info("scan %s: starting", sessionID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		// External cancellation closes intake; workers drain and exit.
		<-ctx.Done()
		fr.Close()
	}()

	for _, entry := range requeue {
		fr.Push(entry)
	}

	g, gctx := errgroup.WithContext(ctx)
	for system, conn := range s.connectors {
		system, conn := system, conn

		fr.Begin()
		g.Go(func() error {
			defer fr.Done()
			return s.seed(gctx, system, conn)
		})

		for i := 0; i < s.productConfig(system).Workers; i++ {
			g.Go(func() error {
				return s.worker(gctx, conn)
			})
		}
	}

	err := g.Wait()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	cancel()

	s.finishSession(session, err)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if s.store != nil {
		// The session is saved even after an abort; resume depends on it.
		if saveErr := s.store.SaveSession(context.WithoutCancel(ctx), session); saveErr != nil {
			logger.Error("scan %s: persisting session: %v", sessionID, saveErr)
			if err == nil {
				err = saveErr
			}
		}
	}
	logger.Info("%s", session.Summary())
	return session, err
}

// finishSession snapshots the registry into the session and stamps the
// terminal status.
func (s *Scanner) finishSession(session *domain.ScanSession, err error) {
	session.Artifacts, session.Edges = s.registry.Snapshot()

	s.mu.RLock()
	session.Failures = append([]domain.Failure(nil), s.failures...)
	s.mu.RUnlock()

	session.EndedAt = time.Now().UTC()
	session.Status = domain.StatusCompleted
	if err != nil {
		session.Status = domain.StatusAborted
		session.Error = err.Error()
	}

	stats := domain.ScanStats{
		Artifacts: len(session.Artifacts),
		Edges:     len(session.Edges),
		Failures:  len(session.Failures),
	}
	for i := range session.Artifacts {
		if session.Artifacts[i].Fetched {
			stats.Fetched++
		} else {
			stats.Stubs++
		}
	}
	for _, conn := range s.connectors {
		stats.Requests += conn.Requests()
	}
	session.Stats = stats
}

// seed queues the top-level artifacts: configured space keys or the
// full space listing for Confluence, the scope query's issues for Jira.
// Seed listing failures abort the scan; a partial seed would be a
// silent gap in the one place nothing else re-discovers.
func (s *Scanner) seed(ctx context.Context, system domain.SourceSystem, conn driven.Connector) error {
	switch system {
	case domain.SystemConfluence:
		if keys := s.config.Confluence.Spaces; len(keys) > 0 {
			for _, spaceKey := range keys {
				key := domain.ArtifactKey{System: domain.SystemConfluence, Type: domain.TypeSpace, ID: spaceKey}
				s.registry.GetOrCreate(key)
				s.frontier.Push(domain.FrontierEntry{Key: key, Reason: domain.ReasonSeed})
			}
			return nil
		}
		return s.seedListing(ctx, conn, domain.ResourceSpaces)
	case domain.SystemJira:
		return s.seedListing(ctx, conn, domain.ResourceIssues)
	}
	return nil
}

func (s *Scanner) seedListing(ctx context.Context, conn driven.Connector, resource domain.ResourceType) error {
	cursor := ""
	for {
		page, err := conn.ListPage(ctx, resource, "", cursor)
		if err != nil {
			return fmt.Errorf("seeding %s: %w", resource, err)
		}
		for i := range page.Records {
			s.discover(&page.Records[i], domain.ReasonSeed)
		}
		if page.NextCursor == "" {
			return nil
		}
		cursor = page.NextCursor
	}
}

// discover registers a listed record as a stub and queues it for its
// own fetch. Listing payloads only carry display hints; the artifact is
// not fetched until a worker expands it.
func (s *Scanner) discover(rec *domain.Record, reason domain.ExpandReason) {
	s.registry.GetOrCreate(rec.Key)
	s.registry.Enrich(rec.Key, rec.URL, rec.Title)
	s.frontier.Push(domain.FrontierEntry{Key: rec.Key, Reason: reason})
}

// worker pops entries for one product until the frontier drains or
// closes. A fatal expansion closes the frontier for everyone.
func (s *Scanner) worker(ctx context.Context, conn driven.Connector) error {
	for {
		entry, ok := s.frontier.Pop(conn.System())
		if !ok {
			return nil
		}
		err := s.expand(ctx, conn, entry)
		s.frontier.Done()
		if err != nil {
			s.frontier.Close()
			return err
		}
	}
}

// expand is the per-entry state machine: claim, fetch, update,
// children. A false claim means another worker already owns the key or
// the artifact is already fetched; both end the entry without a call.
func (s *Scanner) expand(ctx context.Context, conn driven.Connector, entry domain.FrontierEntry) error {
	if !s.registry.BeginExpansion(entry.Key) {
		return nil
	}
	logger.Debug("scan: expanding %s (%s)", entry.Key, entry.Reason)

	rec, err := conn.FetchItem(ctx, entry.Key.Type, entry.Key.ID)
	if err != nil {
		return s.recordFetchFailure(entry.Key, err)
	}
	if rec.Key != entry.Key {
		// The fetch resolved a provisional identity, such as a
		// page-scoped filename, to the artifact's own id.
		s.registry.Rekey(entry.Key, rec)
	} else {
		s.registry.Update(entry.Key, rec)
	}
	return s.expandChildren(ctx, conn, rec)
}

func (s *Scanner) recordFetchFailure(key domain.ArtifactKey, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// The remote denied the artifact permanently. The tombstone
		// keeps the key and its edges; dangling links are findings.
		s.registry.Tombstone(key)
		s.addFailure(key, domain.FailureNotFound, err)
		return nil
	case errors.Is(err, domain.ErrRetryExhausted):
		// Not fetched, claim retained: no refetch this session, a
		// resumed session re-queues it.
		s.addFailure(key, domain.FailureRetryExhausted, err)
		return nil
	default:
		return fmt.Errorf("expanding %s: %w", key, err)
	}
}

// expandChildren folds a fetched record's outgoing references into the
// registry and walks the type-specific child listings.
func (s *Scanner) expandChildren(ctx context.Context, conn driven.Connector, rec *domain.Record) error {
	owner := rec.Key

	for i := range rec.Refs {
		s.resolve(owner, &rec.Refs[i])
	}
	for _, raw := range rec.Links {
		if ref, ok := s.extractor.Resolve(raw); ok {
			s.resolve(owner, &ref)
		}
	}
	if rec.Body != nil {
		for _, ref := range s.extractor.Extract(owner, rec.Body) {
			ref := ref
			s.resolve(owner, &ref)
		}
	}

	switch owner.Type {
	case domain.TypeSpace:
		return s.listChildren(ctx, conn, owner, domain.ResourcePages, domain.RelationContains)
	case domain.TypePage:
		return s.listChildren(ctx, conn, owner, domain.ResourceAttachments, domain.RelationAttachedTo)
	}
	return nil
}

// listChildren pages through one child collection. Pages become stubs
// queued for their own fetch; attachment listings are complete records
// registered as fetched and never queued.
func (s *Scanner) listChildren(
	ctx context.Context,
	conn driven.Connector,
	parent domain.ArtifactKey,
	resource domain.ResourceType,
	relation domain.Relation,
) error {
	cursor := ""
	for {
		page, err := conn.ListPage(ctx, resource, parent.ID, cursor)
		if err != nil {
			return s.recordListFailure(parent, resource, err)
		}
		for i := range page.Records {
			child := &page.Records[i]
			if relation == domain.RelationAttachedTo {
				s.registry.GetOrCreate(child.Key)
				s.registry.Update(child.Key, child)
				for ri := range child.Refs {
					s.resolve(child.Key, &child.Refs[ri])
				}
			} else {
				s.discover(child, domain.ReasonListed)
			}
			s.registry.AddEdge(parent, child.Key, relation)
		}
		if page.NextCursor == "" {
			return nil
		}
		cursor = page.NextCursor
	}
}

// recordListFailure keeps a fetched parent while recording that one of
// its child listings could not be captured.
func (s *Scanner) recordListFailure(parent domain.ArtifactKey, resource domain.ResourceType, err error) error {
	wrapped := fmt.Errorf("listing %s: %w", resource, err)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.addFailure(parent, domain.FailureNotFound, wrapped)
		return nil
	case errors.Is(err, domain.ErrRetryExhausted):
		s.addFailure(parent, domain.FailureRetryExhausted, wrapped)
		return nil
	default:
		return fmt.Errorf("listing %s of %s: %w", resource, parent, err)
	}
}

// resolve folds one candidate reference into the registry: edge plus
// stub, and a frontier entry when the target still needs its own fetch.
// Candidates for products outside the scan are dropped; nothing could
// ever fetch their stubs.
func (s *Scanner) resolve(owner domain.ArtifactKey, ref *domain.Reference) {
	if err := ref.Target.Validate(); err != nil {
		logger.Warn("scan: dropping reference from %s: %v", owner, err)
		return
	}

	if ref.Complete {
		// The payload already carried the full record; register it
		// fetched, no expansion.
		s.registry.GetOrCreate(ref.Target)
		s.registry.Update(ref.Target, &domain.Record{
			Key:      ref.Target,
			URL:      ref.URL,
			Title:    ref.Title,
			Metadata: ref.Metadata,
		})
		s.registry.AddEdge(owner, ref.Target, ref.Relation)
		return
	}

	if _, ok := s.connectors[ref.Target.System]; !ok {
		return
	}

	s.registry.GetOrCreate(ref.Target)
	s.registry.Enrich(ref.Target, ref.URL, ref.Title)
	s.registry.AddEdge(owner, ref.Target, ref.Relation)

	if art, ok := s.registry.Get(ref.Target); ok && art.Fetched {
		return
	}
	s.frontier.Push(domain.FrontierEntry{Key: ref.Target, Reason: expandReason(ref.Relation)})
}

func (s *Scanner) productConfig(system domain.SourceSystem) *domain.ProductConfig {
	if system == domain.SystemJira {
		return &s.config.Jira
	}
	return &s.config.Confluence
}

func (s *Scanner) addFailure(key domain.ArtifactKey, kind domain.FailureKind, err error) {
	s.mu.Lock()
	s.failures = append(s.failures, domain.Failure{
		Key:    key,
		Kind:   kind,
		Reason: err.Error(),
		At:     time.Now().UTC(),
	})
	s.mu.Unlock()
	logger.Warn("scan: %s failed (%s): %v", key, kind, err)
}

func expandReason(relation domain.Relation) domain.ExpandReason {
	switch relation {
	case domain.RelationLinkedIssue:
		return domain.ReasonIssueLink
	case domain.RelationAttachedTo:
		return domain.ReasonAttachmentRef
	case domain.RelationContains:
		return domain.ReasonListed
	default:
		return domain.ReasonReference
	}
}
