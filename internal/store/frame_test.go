package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRepository_AddAndList(t *testing.T) {
	s := newTestStore(t)

	run := sampleRun()
	require.NoError(t, s.Runs().Create(run))

	want := []FrameResult{
		{RunID: run.ID, FrameIndex: 0, Keypoints: 1370, FilteredKeypoints: 125, Descriptors: 125, MeanSize: 4, DetectMs: 12.5, DescribeMs: 3.1},
		{RunID: run.ID, FrameIndex: 1, Keypoints: 1301, FilteredKeypoints: 118, Descriptors: 118, Matches: 96, MeanDistance: 31.2, MeanSize: 4, DetectMs: 11.9, DescribeMs: 2.8, MatchMs: 0.7},
	}
	require.NoError(t, s.Frames().Add(&want[1]))
	require.NoError(t, s.Frames().Add(&want[0]))

	got, err := s.Frames().ListByRun(run.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListByRun mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameRepository_AddReplaces(t *testing.T) {
	s := newTestStore(t)

	run := sampleRun()
	require.NoError(t, s.Runs().Create(run))

	require.NoError(t, s.Frames().Add(&FrameResult{RunID: run.ID, FrameIndex: 3, Matches: 1}))
	require.NoError(t, s.Frames().Add(&FrameResult{RunID: run.ID, FrameIndex: 3, Matches: 9}))

	got, err := s.Frames().ListByRun(run.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 9, got[0].Matches)
}

func TestFrameRepository_AddBatch(t *testing.T) {
	s := newTestStore(t)

	run := sampleRun()
	require.NoError(t, s.Runs().Create(run))

	batch := make([]FrameResult, 10)
	for i := range batch {
		batch[i] = FrameResult{RunID: run.ID, FrameIndex: i, Keypoints: i * 10}
	}
	require.NoError(t, s.Frames().AddBatch(batch))

	got, err := s.Frames().ListByRun(run.ID)
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestFrameRepository_UnknownRunRejected(t *testing.T) {
	s := newTestStore(t)

	err := s.Frames().Add(&FrameResult{RunID: "no-such-run", FrameIndex: 0})
	assert.Error(t, err, "foreign key should reject frames of unknown runs")
}
