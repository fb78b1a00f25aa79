// Package registry implements the deduplicating artifact store for a
// scan session: an arena keyed by (system, type, id) with atomic
// get-or-create semantics, a duplicate-free edge set, and the race-free
// expansion claim that guarantees at-most-once fetches under concurrent
// workers.
package registry

import (
	"sync"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

// entry pairs an artifact with its in-session expansion claim. The
// claim outlives transient failures so a key is never re-fetched within
// one session even when its artifact stays unfetched.
type entry struct {
	artifact *domain.Artifact
	claimed  bool
}

// Registry is the single source of truth for "already known" versus
// "new" during a scan. State is monotonic: artifacts and edges are only
// ever added or enriched, except that Rekey folds a provisional
// identity into its canonical one. All methods are safe for concurrent
// use.
type Registry struct {
	mu        sync.RWMutex
	artifacts map[domain.ArtifactKey]*entry
	edges     map[domain.Edge]struct{}
	aliases   map[domain.ArtifactKey]domain.ArtifactKey
	fetched   int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		artifacts: make(map[domain.ArtifactKey]*entry),
		edges:     make(map[domain.Edge]struct{}),
		aliases:   make(map[domain.ArtifactKey]domain.ArtifactKey),
	}
}

// resolveAlias maps a rekeyed identity to its canonical key. Callers
// must hold mu.
func (r *Registry) resolveAlias(key domain.ArtifactKey) domain.ArtifactKey {
	if to, ok := r.aliases[key]; ok {
		return to
	}
	return key
}

// GetOrCreate atomically looks up or inserts the artifact for key.
// created is true when the call inserted a new stub (Fetched=false).
// The returned artifact is a copy; registry state is only mutated
// through registry methods.
func (r *Registry) GetOrCreate(key domain.ArtifactKey) (*domain.Artifact, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key = r.resolveAlias(key)
	if e, ok := r.artifacts[key]; ok {
		return e.artifact.Clone(), false
	}
	e := &entry{artifact: &domain.Artifact{Key: key}}
	r.artifacts[key] = e
	return e.artifact.Clone(), true
}

// Get returns a copy of the artifact for key, if present.
func (r *Registry) Get(key domain.ArtifactKey) (*domain.Artifact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.artifacts[r.resolveAlias(key)]
	if !ok {
		return nil, false
	}
	return e.artifact.Clone(), true
}

// Enrich fills empty display fields of an existing entry with hints
// carried by a reference. Non-empty fields are left untouched, keeping
// enrichment monotonic and order-independent.
func (r *Registry) Enrich(key domain.ArtifactKey, url, title string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.artifacts[r.resolveAlias(key)]
	if !ok {
		return
	}
	if e.artifact.URL == "" {
		e.artifact.URL = url
	}
	if e.artifact.Title == "" {
		e.artifact.Title = title
	}
}

// Update merges a fetched record into the entry for key and marks it
// fetched. Merge policy is union-of-fields: incoming values overwrite
// stale ones, absent fields are preserved. Creates the entry if the
// record arrives before any reference did.
func (r *Registry) Update(key domain.ArtifactKey, rec *domain.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key = r.resolveAlias(key)
	e, ok := r.artifacts[key]
	if !ok {
		e = &entry{artifact: &domain.Artifact{Key: key}}
		r.artifacts[key] = e
	}
	if !e.artifact.Fetched {
		r.fetched++
	}
	e.artifact.Merge(rec)
}

// Rekey folds the entry for from into the canonical identity carried by
// rec and applies rec as a fetched update. Edges touching from are
// rewritten to rec.Key, and from stays resolvable: later references to
// it land on the canonical entry. Connectors trigger this when a fetch
// resolves a provisional identity, such as a page-scoped filename, to
// the artifact's own id.
func (r *Registry) Rekey(from domain.ArtifactKey, rec *domain.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	to := rec.Key
	r.aliases[from] = to

	moved := r.artifacts[from]
	delete(r.artifacts, from)

	e, ok := r.artifacts[to]
	if !ok {
		if moved != nil {
			moved.artifact.Key = to
			e = moved
		} else {
			e = &entry{artifact: &domain.Artifact{Key: to}}
		}
		r.artifacts[to] = e
	}
	e.claimed = true
	if !e.artifact.Fetched {
		r.fetched++
	}
	e.artifact.Merge(rec)

	var touched []domain.Edge
	for edge := range r.edges {
		if edge.From == from || edge.To == from {
			touched = append(touched, edge)
		}
	}
	for _, edge := range touched {
		delete(r.edges, edge)
		if edge.From == from {
			edge.From = to
		}
		if edge.To == from {
			edge.To = to
		}
		r.edges[edge] = struct{}{}
	}
}

// Tombstone marks the entry for key as terminally fetched with no
// metadata: the remote permanently denied it, and the tombstone stops
// re-queueing without pretending success.
func (r *Registry) Tombstone(key domain.ArtifactKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key = r.resolveAlias(key)
	e, ok := r.artifacts[key]
	if !ok {
		e = &entry{artifact: &domain.Artifact{Key: key}}
		r.artifacts[key] = e
	}
	if !e.artifact.Fetched {
		r.fetched++
	}
	e.artifact.Fetched = true
	e.artifact.Tombstoned = true
}

// BeginExpansion claims key for fetching. It returns true exactly once
// per key per session; later calls, and calls for already-fetched
// artifacts, return false. This is the atomic check-and-mark that
// enforces the at-most-once fetch guarantee under concurrent workers.
func (r *Registry) BeginExpansion(key domain.ArtifactKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.artifacts[r.resolveAlias(key)]
	if !ok {
		return false
	}
	if e.claimed || e.artifact.Fetched {
		return false
	}
	e.claimed = true
	return true
}

// AddEdge inserts the (from, to, relation) triple into the edge set.
// Duplicate triples are no-ops; the return value reports whether the
// edge was newly inserted. Both endpoints must already exist.
func (r *Registry) AddEdge(from, to domain.ArtifactKey, relation domain.Relation) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	edge := domain.Edge{From: r.resolveAlias(from), To: r.resolveAlias(to), Relation: relation}
	if _, ok := r.edges[edge]; ok {
		return false
	}
	r.edges[edge] = struct{}{}
	return true
}

// Counts returns the registry's monotonic counters: total artifacts,
// fetched artifacts, and distinct edges.
func (r *Registry) Counts() (artifacts, fetched, edges int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.artifacts), r.fetched, len(r.edges)
}

// Snapshot exports a copy of all artifacts and edges. The copies are
// detached; mutating them does not affect registry state.
func (r *Registry) Snapshot() ([]domain.Artifact, []domain.Edge) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	artifacts := make([]domain.Artifact, 0, len(r.artifacts))
	for _, e := range r.artifacts {
		artifacts = append(artifacts, *e.artifact.Clone())
	}
	edges := make([]domain.Edge, 0, len(r.edges))
	for edge := range r.edges {
		edges = append(edges, edge)
	}
	return artifacts, edges
}

// Load seeds the registry from a stored session snapshot, re-creating
// artifacts with their fetched flags and the edge set. Used by resumed
// scans; claims are not restored, so unfetched artifacts are eligible
// for expansion again.
func (r *Registry) Load(artifacts []domain.Artifact, edges []domain.Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range artifacts {
		a := artifacts[i].Clone()
		if _, ok := r.artifacts[a.Key]; ok {
			continue
		}
		r.artifacts[a.Key] = &entry{artifact: a}
		if a.Fetched {
			r.fetched++
		}
	}
	for _, edge := range edges {
		r.edges[edge] = struct{}{}
	}
}
