package reframe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/kbqa/ai"
	"github.com/poiesic/kbqa/ai/mock"
	"github.com/poiesic/kbqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchProcessor_Process(t *testing.T) {
	repos := setupTestRepositories(t)
	sentences := seedSentences(t, repos, 3)
	ctx := context.Background()

	classifier := mock.NewMockFrameClassifier().
		WithFrames("Step 0 restarts the service.", "Activity_start", "Service").
		WithFrames("Step 2 restarts the service.", "Activity_start", "Activity_start")

	processor := NewBatchProcessor(repos.Frames, classifier, 3, time.Millisecond)
	evoking, err := processor.Process(ctx, sentences)
	require.NoError(t, err)
	assert.Equal(t, 2, evoking)

	matching, err := repos.Frames.FramesMatching(ctx, "Activity_start", "Service")
	require.NoError(t, err)
	assert.Equal(t, map[string][]core.ID{
		"Activity_start": {sentences[0].Id, sentences[2].Id},
		"Service":        {sentences[0].Id},
	}, matching)
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	repos := setupTestRepositories(t)
	classifier := mock.NewMockFrameClassifier()

	evoking, err := NewBatchProcessor(repos.Frames, classifier, 3, time.Millisecond).Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, evoking)
	assert.Zero(t, classifier.CallCount())
}

func TestBatchProcessor_Retry(t *testing.T) {
	repos := setupTestRepositories(t)
	sentences := seedSentences(t, repos, 2)

	classifier := mock.NewMockFrameClassifier()
	attempts := 0
	classifier.ClassifyFramesFunc = func(_ context.Context, texts []string) ([][]string, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("temporary failure")
		}
		if attempts == 2 {
			return [][]string{{"Activity_start"}}, nil
		}
		return [][]string{{"Activity_start"}, nil}, nil
	}

	evoking, err := NewBatchProcessor(repos.Frames, classifier, 3, time.Millisecond).Process(context.Background(), sentences)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "failure and short answer are both retried")
	assert.Equal(t, 1, evoking)
}

func TestBatchProcessor_ClassificationError(t *testing.T) {
	repos := setupTestRepositories(t)
	sentences := seedSentences(t, repos, 2)

	classifier := mock.NewMockFrameClassifier()
	classifier.ClassifyFramesFunc = func(context.Context, []string) ([][]string, error) {
		return [][]string{{"Activity_start"}}, nil
	}

	_, err := NewBatchProcessor(repos.Frames, classifier, 2, time.Millisecond).Process(context.Background(), sentences)
	assert.ErrorIs(t, err, ai.ErrMalformedAnnotation)
	assert.Equal(t, 2, classifier.CallCount())

	names, err := repos.Frames.FrameNames(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestBatchProcessor_ContextCancellation(t *testing.T) {
	repos := setupTestRepositories(t)
	sentences := seedSentences(t, repos, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	classifier := mock.NewMockFrameClassifier()
	_, err := NewBatchProcessor(repos.Frames, classifier, 3, time.Millisecond).Process(ctx, sentences)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, classifier.CallCount())
}
