package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposalSweeperRejectsOlderThanTTL(t *testing.T) {
	repo := newProposalRepoStub()
	repo.stale = 3
	sweeper := NewProposalSweeper(repo, 48*time.Hour, NewMetricsService(), nil)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }

	rejected, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, rejected)
	require.Len(t, repo.cutoffs, 1)
	assert.Equal(t, now.Add(-48*time.Hour), repo.cutoffs[0])
}

func TestProposalSweeperStartValidatesSpec(t *testing.T) {
	sweeper := NewProposalSweeper(newProposalRepoStub(), 0, nil, nil)
	assert.Equal(t, 72*time.Hour, sweeper.ttl)

	assert.Error(t, sweeper.Start("every tuesday"))

	require.NoError(t, sweeper.Start("*/15 * * * *"))
	sweeper.Stop()
}
