package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAllPending_MixedOutcomes(t *testing.T) {
	f := newFixture(t)
	first := f.store.AddScene("first", nil)
	second := f.store.AddScene("second", nil)

	var mu sync.Mutex
	renders := 0
	f.remote.renderFunc = func(context.Context, string, domain.AspectRatio) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		renders++
		if renders == 1 {
			return "", domain.NewRenderError(errors.New("first fails"))
		}
		return domain.EncodeDataURL("image/jpeg", []byte("Y")), nil
	}

	report, err := f.orch.GenerateAllPending(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	gotFirst, _ := f.store.Scene(first.ID)
	gotSecond, _ := f.store.Scene(second.ID)
	assert.NotEmpty(t, gotFirst.Error)
	assert.Empty(t, gotFirst.ImageURL)
	assert.NotEmpty(t, gotSecond.ImageURL)
	assert.Empty(t, gotSecond.Error)

	t.Run("失敗したシーンは次回の一括生成の対象外になること", func(t *testing.T) {
		_, err := f.orch.GenerateAllPending(context.Background())
		assert.ErrorIs(t, err, ErrNothingPending)
	})
}

func TestGenerateAllPending_NothingToDo(t *testing.T) {
	f := newFixture(t)
	done := f.store.AddScene("done", nil)
	f.store.UpdateScene(done.ID, store.ScenePatch{ImageURL: ptr("img")})

	report, err := f.orch.GenerateAllPending(context.Background())
	assert.ErrorIs(t, err, ErrNothingPending)
	assert.Zero(t, report.Attempted)
	assert.Empty(t, f.remote.allCalls())
}

func TestGenerateAllPending_StrictlySequential(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		f.store.AddScene("scene", nil)
	}
	f.remote.enhanceFunc = func(context.Context, prompts.EnhanceRequest, string) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "X", nil
	}
	f.remote.renderFunc = func(context.Context, string, domain.AspectRatio) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "data:image/jpeg;base64,WQ==", nil
	}

	report, err := f.orch.GenerateAllPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Succeeded)

	calls := f.remote.allCalls()
	require.Len(t, calls, 8)
	for i := 1; i < len(calls); i++ {
		assert.False(t, calls[i].start.Before(calls[i-1].end),
			"呼び出し %d が直前の呼び出しと重なっています", i)
	}

	order := make([]int, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		order = append(order, o.PanelNumber)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, order)
}

func TestGenerateAllPending_SkipsScenesChangedDuringBatch(t *testing.T) {
	f := newFixture(t)
	first := f.store.AddScene("first", nil)
	second := f.store.AddScene("second", nil)

	f.remote.renderFunc = func(_ context.Context, prompt string, _ domain.AspectRatio) (string, error) {
		f.store.DeleteScene(second.ID)
		return "data:image/jpeg;base64,WQ==", nil
	}

	report, err := f.orch.GenerateAllPending(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Attempted)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, first.ID, report.Outcomes[0].SceneID)
	assert.True(t, report.Outcomes[1].Skipped)
}

func TestGenerateAllPending_RejectsConcurrentBatch(t *testing.T) {
	f := newFixture(t)
	f.store.AddScene("scene", nil)

	release := make(chan struct{})
	entered := make(chan struct{})
	f.remote.renderFunc = func(context.Context, string, domain.AspectRatio) (string, error) {
		close(entered)
		<-release
		return "data:image/jpeg;base64,WQ==", nil
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := f.orch.GenerateAllPending(context.Background())
		errCh <- err
	}()

	<-entered
	_, err := f.orch.GenerateAllPending(context.Background())
	assert.ErrorIs(t, err, ErrBatchInProgress)

	close(release)
	assert.NoError(t, <-errCh)
}

func TestGenerateAllPending_CanceledWhileWaiting(t *testing.T) {
	st := store.New(domain.DefaultSettings())
	remote := newStubRemote()
	cfg := DefaultConfig()
	cfg.RateInterval = time.Hour
	orch, err := New(Args{Config: cfg, Store: st, Client: remote})
	require.NoError(t, err)

	st.AddScene("first", nil)
	st.AddScene("second", nil)

	ctx, cancel := context.WithCancel(context.Background())
	remote.renderFunc = func(context.Context, string, domain.AspectRatio) (string, error) {
		cancel()
		return "data:image/jpeg;base64,WQ==", nil
	}

	report, err := orch.GenerateAllPending(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Succeeded)
	assert.Len(t, remote.callsOf("render"), 1)
}
