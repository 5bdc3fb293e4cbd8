package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexReserveRejectsOverlap(t *testing.T) {
	idx := NewIndex()
	require.NoError(t, idx.Reserve(ResourceTeacher, "t1", Monday, Block("09:00", "10:15")))

	assert.ErrorIs(t, idx.Reserve(ResourceTeacher, "t1", Monday, Block("10:00", "11:00")), ErrOverlap)
	assert.NoError(t, idx.Reserve(ResourceTeacher, "t1", Monday, Block("10:15", "11:30")))
	assert.NoError(t, idx.Reserve(ResourceTeacher, "t1", Tuesday, Block("09:00", "10:15")))
	assert.NoError(t, idx.Reserve(ResourceRoom, "t1", Monday, Block("09:00", "10:15")))
	assert.Equal(t, 2, idx.Count(ResourceTeacher, "t1", Monday))
}

func TestIndexReleaseRestoresFreedom(t *testing.T) {
	idx := NewIndex()
	iv := Block("09:00", "10:00")
	require.NoError(t, idx.Reserve(ResourceBatch, "b1", Sunday, iv))
	assert.False(t, idx.IsFree(ResourceBatch, "b1", Sunday, iv))

	assert.True(t, idx.Release(ResourceBatch, "b1", Sunday, iv))
	assert.False(t, idx.Release(ResourceBatch, "b1", Sunday, iv))
	assert.True(t, idx.IsFree(ResourceBatch, "b1", Sunday, iv))
}

func TestIndexBlockMergesOverlaps(t *testing.T) {
	idx := NewIndex()
	idx.Block(ResourceRoom, "r1", Monday, Block("09:00", "10:00"))
	idx.Block(ResourceRoom, "r1", Monday, Block("11:00", "12:00"))
	idx.Block(ResourceRoom, "r1", Monday, Block("09:30", "11:30"))

	assert.Equal(t, []TimeBlock{Block("09:00", "12:00")}, idx.Reservations(ResourceRoom, "r1", Monday))
}

func TestIndexNextStart(t *testing.T) {
	idx := NewIndex()
	idx.Block(ResourceTeacher, "t1", Monday, Block("09:00", "09:30"))
	idx.Block(ResourceTeacher, "t1", Monday, Block("10:00", "11:00"))

	at, ok := idx.NextStart(ResourceTeacher, "t1", Monday, Block("08:45", "10:00"))
	require.True(t, ok)
	assert.Equal(t, MustClock("09:30"), at)

	_, ok = idx.NextStart(ResourceTeacher, "t1", Monday, Block("11:00", "12:00"))
	assert.False(t, ok)
}

func TestIndexEmptyIDIsAlwaysFree(t *testing.T) {
	idx := NewIndex()
	require.NoError(t, idx.Reserve(ResourceTeacher, "", Monday, Block("09:00", "10:00")))
	assert.True(t, idx.IsFree(ResourceTeacher, "", Monday, Block("09:00", "10:00")))
}
