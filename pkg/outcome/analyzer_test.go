package outcome

import (
	"context"
	"errors"
	"testing"

	"github.com/relaybroker/broker/pkg/learning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFinder struct {
	lessons []learning.Lesson
	err     error
}

func (f *fakeFinder) FindLessonsForError(ctx context.Context, errorMessage string, limit int) ([]learning.Lesson, error) {
	return f.lessons, f.err
}

func TestAnalyzeSuccessNeverRetries(t *testing.T) {
	a := NewAnalyzer(&fakeFinder{})
	got := a.Analyze(context.Background(), Result{Success: true}, "payload")
	assert.False(t, got.RetryEligible)
}

func TestAnalyzeUnknownFailureClassNeverRetries(t *testing.T) {
	a := NewAnalyzer(&fakeFinder{lessons: []learning.Lesson{{ID: 1}}})
	got := a.Analyze(context.Background(), Result{Success: false, Error: "disk on fire"}, "payload")
	assert.False(t, got.RetryEligible)
}

func TestAnalyzeKnownFailureWithRememberedSolutionRecommendsRetry(t *testing.T) {
	a := NewAnalyzer(&fakeFinder{lessons: []learning.Lesson{{ID: 7, Solution: "retry with backoff"}}})

	got := a.Analyze(context.Background(), Result{Success: false, Error: "element not found: #submit"}, "click submit")
	require.True(t, got.RetryEligible)
	require.NotNil(t, got.RememberedSolution)
	assert.Equal(t, int64(7), got.RememberedSolution.ID)
	assert.Equal(t, "element-not-found", got.FailureClass)
}

func TestAnalyzeKnownFailureWithoutRememberedSolutionDoesNotRetry(t *testing.T) {
	a := NewAnalyzer(&fakeFinder{lessons: nil})

	got := a.Analyze(context.Background(), Result{Success: false, Error: "wait timed out after 30s"}, "wait for load")
	assert.False(t, got.RetryEligible)
	assert.Equal(t, "wait-timeout", got.FailureClass)
}

func TestAnalyzeStoreErrorDoesNotRetry(t *testing.T) {
	a := NewAnalyzer(&fakeFinder{err: errors.New("unavailable")})

	got := a.Analyze(context.Background(), Result{Success: false, Error: "type error: cannot read undefined"}, "run script")
	assert.False(t, got.RetryEligible)
}

func TestAnalyzeHasNoSideEffectsBeyondStoreQuery(t *testing.T) {
	finder := &fakeFinder{lessons: []learning.Lesson{{ID: 1}}}
	a := NewAnalyzer(finder)

	_ = a.Analyze(context.Background(), Result{Success: false, Error: "module not found: foo"}, "import foo")
	// finder is read-only from the analyzer's perspective; no mutation path exists to assert against.
	assert.Len(t, finder.lessons, 1)
}
