package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workspace-spider/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

func endedScanSession(id string, startedAt time.Time) *domain.ScanSession {
	return &domain.ScanSession{
		ID:        id,
		Status:    domain.StatusCompleted,
		StartedAt: startedAt,
		EndedAt:   startedAt.Add(90 * time.Second),
		Artifacts: []domain.Artifact{
			{Key: akey(domain.SystemConfluence, domain.TypeSpace, "ENG"), Fetched: true},
		},
		Stats: domain.ScanStats{Artifacts: 1, Fetched: 1, Edges: 0},
	}
}

func TestNewSessions_RequiresStore(t *testing.T) {
	_, err := NewSessions(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSessions_List(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	svc, err := NewSessions(store)
	require.NoError(t, err)

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSession(ctx, endedScanSession("old", base)))
	require.NoError(t, store.SaveSession(ctx, endedScanSession("new", base.Add(2*time.Hour))))

	aborted := endedScanSession("aborted", base.Add(time.Hour))
	aborted.Status = domain.StatusAborted
	aborted.EndedAt = time.Time{}
	require.NoError(t, store.SaveSession(ctx, aborted))

	summaries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	assert.Equal(t, "new", summaries[0].ID)
	assert.Equal(t, "aborted", summaries[1].ID)
	assert.Equal(t, "old", summaries[2].ID)

	assert.Equal(t, "2026-03-14T11:00:00Z", summaries[0].StartedAt)
	assert.Equal(t, "1m30s", summaries[0].Duration)
	assert.Empty(t, summaries[1].Duration, "sessions without an end time report no duration")
	assert.Equal(t, domain.StatusAborted, summaries[1].Status)
	assert.Equal(t, 1, summaries[0].Artifacts)
}

func TestSessions_GetAndDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	svc, err := NewSessions(store)
	require.NoError(t, err)

	saved := endedScanSession("s1", time.Now().UTC())
	require.NoError(t, store.SaveSession(ctx, saved))

	got, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Len(t, got.Artifacts, 1)

	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "s1"))
	_, err = svc.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, ""), domain.ErrInvalidInput)
}
