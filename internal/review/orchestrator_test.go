package review

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurslab/reviewd/internal/ai"
	"github.com/kurslab/reviewd/internal/storage"
	"github.com/kurslab/reviewd/internal/types"
)

// mockGenerator lets each test script the generation outcome
type mockGenerator struct {
	generate func(ctx context.Context, req *ai.Request) (*ai.Result, error)
	calls    atomic.Int32
}

func (m *mockGenerator) GenerateReview(ctx context.Context, req *ai.Request) (*ai.Result, error) {
	m.calls.Add(1)
	return m.generate(ctx, req)
}

func successResult() *ai.Result {
	confidence := 0.8
	return &ai.Result{
		Analysis: &types.Analysis{
			ShortVerdict: "Хорошая работа, но нет обработки ошибок",
			Strengths:    []string{"чистая структура кода"},
			Weaknesses:   []string{"нет обработки ошибок"},
			Confidence:   &confidence,
		},
		Candidates: []*types.CandidateQuestion{
			{
				Question:   "Как бы ты реализовал кеширование результатов для снижения нагрузки?",
				Type:       types.QuestionApplication,
				Difficulty: types.DifficultyMedium,
				Source:     types.SourceSubmission,
			},
		},
		Coverage: &types.Coverage{SubmissionTextUsed: true},
	}
}

func newTestOrchestrator(t *testing.T, gen ai.Generator) (*Orchestrator, storage.Storage) {
	t.Helper()

	ctx := context.Background()
	store, err := storage.NewStorage(ctx, &storage.Config{
		Path: filepath.Join(t.TempDir(), "reviewd.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	o, err := New(&Config{Store: store, Generator: gen})
	require.NoError(t, err)
	return o, store
}

func createSubmission(t *testing.T, store storage.Storage, id string) *types.Submission {
	t.Helper()

	sub := &types.Submission{
		ID:      id,
		TrailID: "trail-1",
		Text:    "Я решил задачу по алгоритмам сортировки и написал тесты для граничных случаев",
	}
	require.NoError(t, store.CreateSubmission(context.Background(), sub))
	return sub
}

// waitForRun blocks until the orchestrator's in-flight runs finish
func waitForRun(t *testing.T, o *Orchestrator) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, o.Shutdown(ctx))
}

func TestTriggerRunsToCompletion(t *testing.T) {
	gen := &mockGenerator{generate: func(ctx context.Context, req *ai.Request) (*ai.Result, error) {
		return successResult(), nil
	}}
	o, store := newTestOrchestrator(t, gen)
	createSubmission(t, store, "sub-1")

	ctx := context.Background()
	review, started, err := o.Trigger(ctx, "sub-1", false)
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, types.StatusProcessing, review.Status)

	waitForRun(t, o)

	final, err := o.Status(ctx, "sub-1")
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.Equal(t, types.StatusCompleted, final.Status)
	require.NotNil(t, final.Analysis)
	assert.Equal(t, "Хорошая работа, но нет обработки ошибок", final.Analysis.ShortVerdict)
	require.Len(t, final.Questions, 1)
	assert.Equal(t, int32(1), gen.calls.Load())

	// Accepted questions land on the trail history for future dedup
	trail, err := store.GetTrailQuestions(ctx, "trail-1")
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, final.Questions[0].Question, trail[0])
}

func TestTriggerUnknownSubmission(t *testing.T) {
	gen := &mockGenerator{generate: func(ctx context.Context, req *ai.Request) (*ai.Result, error) {
		return successResult(), nil
	}}
	o, _ := newTestOrchestrator(t, gen)

	_, _, err := o.Trigger(context.Background(), "nope", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGeneratorFailureMarksFailed(t *testing.T) {
	gen := &mockGenerator{generate: func(ctx context.Context, req *ai.Request) (*ai.Result, error) {
		return nil, fmt.Errorf("api error 500 with key sk-ant-abc123def456ghi789\nretry later")
	}}
	o, store := newTestOrchestrator(t, gen)
	createSubmission(t, store, "sub-1")

	ctx := context.Background()
	_, started, err := o.Trigger(ctx, "sub-1", false)
	require.NoError(t, err)
	require.True(t, started)

	waitForRun(t, o)

	final, err := o.Status(ctx, "sub-1")
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.Equal(t, types.StatusFailed, final.Status)
	assert.NotContains(t, final.ErrorMessage, "sk-ant-")
	assert.NotContains(t, final.ErrorMessage, "\n")
	assert.Contains(t, final.ErrorMessage, "api error 500")
}

func TestRunTimeoutMarksFailed(t *testing.T) {
	// The generator hangs until the run deadline expires, the shape of a
	// stuck API call. The terminal write must still land even though the
	// run context is already dead.
	gen := &mockGenerator{generate: func(ctx context.Context, req *ai.Request) (*ai.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	ctx := context.Background()
	dbStore, err := storage.NewStorage(ctx, &storage.Config{
		Path: filepath.Join(t.TempDir(), "reviewd.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { dbStore.Close() })

	o, err := New(&Config{
		Store:      dbStore,
		Generator:  gen,
		RunTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	createSubmission(t, dbStore, "sub-1")

	_, started, err := o.Trigger(ctx, "sub-1", false)
	require.NoError(t, err)
	require.True(t, started)

	waitForRun(t, o)

	final, err := o.Status(ctx, "sub-1")
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.Equal(t, types.StatusFailed, final.Status, "an expired run must not stay processing")
	assert.NotEmpty(t, final.ErrorMessage)
	require.NotNil(t, final.FinishedAt)
}

func TestConcurrentTriggerStartsOneRun(t *testing.T) {
	release := make(chan struct{})
	gen := &mockGenerator{generate: func(ctx context.Context, req *ai.Request) (*ai.Result, error) {
		<-release
		return successResult(), nil
	}}
	o, store := newTestOrchestrator(t, gen)
	createSubmission(t, store, "sub-1")

	ctx := context.Background()
	first, started, err := o.Trigger(ctx, "sub-1", false)
	require.NoError(t, err)
	require.True(t, started)

	second, started, err := o.Trigger(ctx, "sub-1", false)
	require.NoError(t, err)
	assert.False(t, started, "trigger while processing must be a no-op")
	assert.Equal(t, first.ID, second.ID)

	close(release)
	waitForRun(t, o)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestFailedReviewRestartsWithoutForce(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	gen := &mockGenerator{generate: func(ctx context.Context, req *ai.Request) (*ai.Result, error) {
		if fail.Load() {
			return nil, fmt.Errorf("temporary outage")
		}
		return successResult(), nil
	}}
	o, store := newTestOrchestrator(t, gen)
	createSubmission(t, store, "sub-1")

	ctx := context.Background()
	_, started, err := o.Trigger(ctx, "sub-1", false)
	require.NoError(t, err)
	require.True(t, started)
	waitForRun(t, o)

	fail.Store(false)
	_, started, err = o.Trigger(ctx, "sub-1", false)
	require.NoError(t, err)
	assert.True(t, started, "failed review should restart without force")
	waitForRun(t, o)

	final, err := o.Status(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, final.Status)
	assert.Empty(t, final.ErrorMessage)
}

func TestCompletedReviewRequiresForce(t *testing.T) {
	gen := &mockGenerator{generate: func(ctx context.Context, req *ai.Request) (*ai.Result, error) {
		return successResult(), nil
	}}
	o, store := newTestOrchestrator(t, gen)
	createSubmission(t, store, "sub-1")

	ctx := context.Background()
	_, started, err := o.Trigger(ctx, "sub-1", false)
	require.NoError(t, err)
	require.True(t, started)
	waitForRun(t, o)

	completed, started, err := o.Trigger(ctx, "sub-1", false)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, types.StatusCompleted, completed.Status)

	forced, started, err := o.Trigger(ctx, "sub-1", true)
	require.NoError(t, err)
	assert.True(t, started)
	assert.NotEqual(t, completed.ID, forced.ID, "forced restart assigns a new run id")
	waitForRun(t, o)
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestTrailQuestionsFeedDuplicateDetection(t *testing.T) {
	gen := &mockGenerator{generate: func(ctx context.Context, req *ai.Request) (*ai.Result, error) {
		return successResult(), nil
	}}
	o, store := newTestOrchestrator(t, gen)
	sub := createSubmission(t, store, "sub-1")

	ctx := context.Background()
	// The exact question the generator will propose was already asked on
	// this trail by an earlier review
	asked := successResult().Candidates[0].Question
	require.NoError(t, store.AddTrailQuestions(ctx, sub.TrailID, []string{asked}))

	_, started, err := o.Trigger(ctx, "sub-1", false)
	require.NoError(t, err)
	require.True(t, started)
	waitForRun(t, o)

	final, err := o.Status(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, final.Status)
	assert.Empty(t, final.Questions, "previously asked question must be filtered out")
}

func TestGeneratorPanicMarksFailed(t *testing.T) {
	gen := &mockGenerator{generate: func(ctx context.Context, req *ai.Request) (*ai.Result, error) {
		panic("boom")
	}}
	o, store := newTestOrchestrator(t, gen)
	createSubmission(t, store, "sub-1")

	ctx := context.Background()
	_, started, err := o.Trigger(ctx, "sub-1", false)
	require.NoError(t, err)
	require.True(t, started)
	waitForRun(t, o)

	final, err := o.Status(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, final.Status)
	assert.Contains(t, final.ErrorMessage, "internal error")
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "plain message passes through",
			err:  fmt.Errorf("connection refused"),
			want: "connection refused",
		},
		{
			name: "api key redacted",
			err:  fmt.Errorf("auth failed for sk-ant-REDACTED"),
			want: "auth failed for [redacted]",
		},
		{
			name: "newlines collapse to one line",
			err:  fmt.Errorf("line one\nline two\n\tline three"),
			want: "line one line two line three",
		},
		{
			name: "nil error",
			err:  nil,
			want: "unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeError(tt.err))
		})
	}
}

func TestSanitizeErrorTruncates(t *testing.T) {
	long := strings.Repeat("x", 2000)
	got := sanitizeError(fmt.Errorf("%s", long))
	assert.Len(t, got, maxErrorMessageLen+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSanitizeErrorTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ы", 2000)
	got := sanitizeError(fmt.Errorf("%s", long))
	assert.True(t, utf8.ValidString(got), "truncation must not split a multi-byte rune")
	assert.Equal(t, maxErrorMessageLen+3, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}
