package workflow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  *store.Store
	remote *stubRemote
	orch   *Orchestrator
	ada    domain.Character
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.New(domain.DefaultSettings())
	remote := newStubRemote()
	cfg := DefaultConfig()
	cfg.RateInterval = 0
	orch, err := New(Args{Config: cfg, Store: st, Client: remote})
	require.NoError(t, err)

	ada := st.AddCharacter(domain.Character{Name: "Ada", Description: "engineer in a red coat"})
	return &fixture{store: st, remote: remote, orch: orch, ada: ada}
}

func (f *fixture) addAdaScene(t *testing.T) domain.Scene {
	t.Helper()
	return f.store.AddScene("Ada enters a room", []string{f.ada.ID})
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Args{Client: newStubRemote()})
	assert.Error(t, err)
	_, err = New(Args{Store: store.New(domain.DefaultSettings())})
	assert.Error(t, err)
}

func TestAddScene_StartsIdle(t *testing.T) {
	f := newFixture(t)
	scene := f.addAdaScene(t)

	assert.Equal(t, 1, scene.PanelNumber)
	assert.False(t, scene.Generating)
	assert.Empty(t, scene.ImageURL)
}

func TestGenerateScene_EnhancementFailure(t *testing.T) {
	cases := map[string]func(context.Context, prompts.EnhanceRequest, string) (string, error){
		"空の応答": func(context.Context, prompts.EnhanceRequest, string) (string, error) {
			return "", nil
		},
		"空白のみの応答": func(context.Context, prompts.EnhanceRequest, string) (string, error) {
			return " \n ", nil
		},
		"通信エラー": func(context.Context, prompts.EnhanceRequest, string) (string, error) {
			return "", domain.NewEnhancementError(errors.New("timeout"))
		},
	}

	for name, enhance := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.remote.enhanceFunc = enhance
			scene := f.addAdaScene(t)

			got, err := f.orch.GenerateScene(context.Background(), scene.ID, "")
			require.NoError(t, err)

			want := prompts.BuildBasic(scene, []domain.Character{f.ada}, f.store.Settings())
			assert.Equal(t, want, got.FinalPrompt)
			assert.Contains(t, got.FinalPrompt, "Ada enters a room")
			assert.NotEmpty(t, got.Error)
			assert.False(t, got.Generating)
			assert.Empty(t, got.ImageURL)
			assert.Empty(t, f.remote.callsOf("render"), "画像生成は呼ばれない")

			stored, _ := f.store.Scene(scene.ID)
			assert.Equal(t, got, stored)
		})
	}
}

func TestGenerateScene_EnhancesThenRenders(t *testing.T) {
	f := newFixture(t)
	scene := f.addAdaScene(t)

	got, err := f.orch.GenerateScene(context.Background(), scene.ID, "")
	require.NoError(t, err)

	assert.Equal(t, "X", got.FinalPrompt)
	assert.Contains(t, got.ImageURL, domain.EncodeDataURL("image/jpeg", []byte("Y")))
	assert.Empty(t, got.Error)
	assert.False(t, got.Generating)

	renders := f.remote.callsOf("render")
	require.Len(t, renders, 1)
	assert.Equal(t, "X", renders[0].input)

	enhances := f.remote.callsOf("enhance")
	require.Len(t, enhances, 1)
	assert.Contains(t, enhances[0].input, "- Ada: engineer in a red coat")
}

func TestGenerateScene_RenderFailureKeepsPrompt(t *testing.T) {
	f := newFixture(t)
	f.remote.renderFunc = func(context.Context, string, domain.AspectRatio) (string, error) {
		return "", domain.NewRenderError(errors.New("quota exceeded"))
	}
	scene := f.addAdaScene(t)

	got, err := f.orch.GenerateScene(context.Background(), scene.ID, "")
	require.NoError(t, err)

	assert.Equal(t, "X", got.FinalPrompt)
	assert.Contains(t, got.Error, "quota exceeded")
	assert.Empty(t, got.ImageURL)
	assert.False(t, got.Generating)

	t.Run("再試行ではキャッシュ済みプロンプトを使い拡張しないこと", func(t *testing.T) {
		f.remote.renderFunc = newStubRemote().renderFunc
		retried, err := f.orch.GenerateScene(context.Background(), scene.ID, "")
		require.NoError(t, err)
		assert.NotEmpty(t, retried.ImageURL)
		assert.Empty(t, retried.Error)
		assert.Len(t, f.remote.callsOf("enhance"), 1)
	})
}

func TestGenerateScene_CapabilityUnavailable(t *testing.T) {
	f := newFixture(t)
	f.remote.available = false
	scene := f.addAdaScene(t)

	got, err := f.orch.GenerateScene(context.Background(), scene.ID, "")
	require.NoError(t, err)

	assert.Equal(t, "capability unavailable", got.Error)
	assert.False(t, got.Generating)
	assert.Empty(t, f.remote.allCalls(), "外部呼び出しは行わない")
}

func TestGenerateScene_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.GenerateScene(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrSceneNotFound)
	assert.Empty(t, f.remote.allCalls())
}

func TestGenerateScene_OverrideSkipsEnhancement(t *testing.T) {
	f := newFixture(t)
	scene := f.addAdaScene(t)

	got, err := f.orch.GenerateScene(context.Background(), scene.ID, "override")
	require.NoError(t, err)

	assert.Empty(t, f.remote.callsOf("enhance"))
	renders := f.remote.callsOf("render")
	require.Len(t, renders, 1)
	assert.Equal(t, "override", renders[0].input)
	assert.Empty(t, got.FinalPrompt, "上書き指定だけでは FinalPrompt を保存しない")
}

func TestGenerateScene_Idempotent(t *testing.T) {
	f := newFixture(t)
	scene := f.addAdaScene(t)

	first, err := f.orch.GenerateScene(context.Background(), scene.ID, "same prompt")
	require.NoError(t, err)
	second, err := f.orch.GenerateScene(context.Background(), scene.ID, "same prompt")
	require.NoError(t, err)

	assert.NotEmpty(t, first.ImageURL)
	assert.Equal(t, first.ImageURL, second.ImageURL)
}

func TestGenerateScene_NeverLeavesGenerating(t *testing.T) {
	paths := map[string]func(r *stubRemote){
		"成功":    func(*stubRemote) {},
		"拡張の失敗": func(r *stubRemote) {
			r.enhanceFunc = func(context.Context, prompts.EnhanceRequest, string) (string, error) {
				return "", errors.New("x")
			}
		},
		"画像生成の失敗": func(r *stubRemote) {
			r.renderFunc = func(context.Context, string, domain.AspectRatio) (string, error) {
				return "", errors.New("x")
			}
		},
		"利用不可": func(r *stubRemote) { r.available = false },
	}

	for name, setup := range paths {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			setup(f.remote)
			scene := f.addAdaScene(t)

			got, err := f.orch.GenerateScene(context.Background(), scene.ID, "")
			require.NoError(t, err)
			assert.False(t, got.Generating)
			assert.True(t, got.ImageURL != "" || got.Error != "", "成功か失敗のどちらかが記録される")
		})
	}
}

func TestGenerateScene_VisibleGeneratingDuringCall(t *testing.T) {
	f := newFixture(t)
	scene := f.addAdaScene(t)
	f.store.UpdateScene(scene.ID, store.ScenePatch{Error: ptr("previous"), ImageURL: ptr("old")})

	f.remote.renderFunc = func(context.Context, string, domain.AspectRatio) (string, error) {
		inFlight, _ := f.store.Scene(scene.ID)
		assert.True(t, inFlight.Generating)
		assert.Empty(t, inFlight.Error)
		assert.Empty(t, inFlight.ImageURL)
		return "data:image/jpeg;base64,WQ==", nil
	}

	_, err := f.orch.GenerateScene(context.Background(), scene.ID, "p")
	require.NoError(t, err)
}

func TestGenerateScene_EditDuringGenerationDiscardsResult(t *testing.T) {
	f := newFixture(t)
	scene := f.addAdaScene(t)

	f.remote.renderFunc = func(context.Context, string, domain.AspectRatio) (string, error) {
		f.store.UpdateScene(scene.ID, store.ScenePatch{UserText: ptr("Ada leaves the room")})
		return "data:image/jpeg;base64,WQ==", nil
	}

	got, err := f.orch.GenerateScene(context.Background(), scene.ID, "")
	require.NoError(t, err)

	assert.Equal(t, "Ada leaves the room", got.UserText)
	assert.Empty(t, got.ImageURL, "編集前の結果は書き込まない")
	assert.Empty(t, got.FinalPrompt)
	assert.False(t, got.Generating)
}

func TestGenerateScene_EditDuringEnhancementSkipsRender(t *testing.T) {
	f := newFixture(t)
	scene := f.addAdaScene(t)

	f.remote.enhanceFunc = func(context.Context, prompts.EnhanceRequest, string) (string, error) {
		f.store.UpdateScene(scene.ID, store.ScenePatch{CharacterIDs: &[]string{}})
		return "X", nil
	}

	got, err := f.orch.GenerateScene(context.Background(), scene.ID, "")
	require.NoError(t, err)

	assert.Empty(t, got.FinalPrompt)
	assert.False(t, got.Generating)
	assert.Empty(t, f.remote.callsOf("render"))
}

func TestGenerateScene_StaleFlightKeepsNewerAttempt(t *testing.T) {
	f := newFixture(t)
	scene := f.addAdaScene(t)

	enhanceStarted := make(chan struct{})
	releaseEnhance := make(chan struct{})
	f.remote.enhanceFunc = func(context.Context, prompts.EnhanceRequest, string) (string, error) {
		close(enhanceStarted)
		<-releaseEnhance
		return "X", nil
	}
	renderStarted := make(chan struct{})
	releaseRender := make(chan struct{})
	f.remote.renderFunc = func(context.Context, string, domain.AspectRatio) (string, error) {
		close(renderStarted)
		<-releaseRender
		return "data:image/jpeg;base64,WQ==", nil
	}

	staleDone := make(chan struct{})
	go func() {
		defer close(staleDone)
		_, _ = f.orch.GenerateScene(context.Background(), scene.ID, "")
	}()
	<-enhanceStarted
	f.store.UpdateScene(scene.ID, store.ScenePatch{UserText: ptr("Ada leaves the room")})

	type result struct {
		scene domain.Scene
		err   error
	}
	manualDone := make(chan result, 1)
	go func() {
		got, err := f.orch.RegenerateWithPrompt(context.Background(), scene.ID, "manual prompt")
		manualDone <- result{got, err}
	}()
	<-renderStarted

	close(releaseEnhance)
	<-staleDone

	inFlight, ok := f.store.Scene(scene.ID)
	require.True(t, ok)
	assert.True(t, inFlight.Generating, "古い生成の終了が進行中の再生成の状態を消さない")
	assert.Empty(t, f.store.PendingScenes(), "再生成中のシーンは一括生成の対象にならない")

	close(releaseRender)
	res := <-manualDone
	require.NoError(t, res.err)
	assert.Equal(t, "manual prompt", res.scene.FinalPrompt)
	assert.NotEmpty(t, res.scene.ImageURL)
	assert.False(t, res.scene.Generating)
	assert.Len(t, f.remote.callsOf("render"), 1)
}

func TestGenerateScene_EditedSceneDoesNotJoinStaleFlight(t *testing.T) {
	f := newFixture(t)
	scene := f.addAdaScene(t)

	var enhanceCalls atomic.Int32
	enhanceStarted := make(chan struct{})
	releaseEnhance := make(chan struct{})
	f.remote.enhanceFunc = func(context.Context, prompts.EnhanceRequest, string) (string, error) {
		if enhanceCalls.Add(1) == 1 {
			close(enhanceStarted)
			<-releaseEnhance
			return "before edit", nil
		}
		return "after edit", nil
	}

	staleDone := make(chan struct{})
	go func() {
		defer close(staleDone)
		_, _ = f.orch.GenerateScene(context.Background(), scene.ID, "")
	}()
	<-enhanceStarted
	f.store.UpdateScene(scene.ID, store.ScenePatch{UserText: ptr("Ada leaves the room")})

	got, err := f.orch.GenerateScene(context.Background(), scene.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Ada leaves the room", got.UserText)
	assert.Equal(t, "after edit", got.FinalPrompt)
	assert.NotEmpty(t, got.ImageURL, "編集後の呼び出しは新しい生成を行う")

	close(releaseEnhance)
	<-staleDone

	final, _ := f.store.Scene(scene.ID)
	assert.Equal(t, "after edit", final.FinalPrompt)
	assert.Equal(t, got.ImageURL, final.ImageURL)
	assert.False(t, final.Generating)
	assert.Equal(t, int32(2), enhanceCalls.Load())
	renders := f.remote.callsOf("render")
	require.Len(t, renders, 1)
	assert.Equal(t, "after edit", renders[0].input)
}

func TestRegenerateWithPrompt(t *testing.T) {
	t.Run("編集したプロンプトを保存して拡張なしで生成すること", func(t *testing.T) {
		f := newFixture(t)
		scene := f.addAdaScene(t)

		got, err := f.orch.RegenerateWithPrompt(context.Background(), scene.ID, "  edited prompt \n")
		require.NoError(t, err)

		assert.Equal(t, "edited prompt", got.FinalPrompt)
		assert.NotEmpty(t, got.ImageURL)
		assert.Empty(t, f.remote.callsOf("enhance"))
		renders := f.remote.callsOf("render")
		require.Len(t, renders, 1)
		assert.Equal(t, "edited prompt", renders[0].input)
	})

	t.Run("失敗しても編集したプロンプトは残ること", func(t *testing.T) {
		f := newFixture(t)
		f.remote.renderFunc = func(context.Context, string, domain.AspectRatio) (string, error) {
			return "", domain.NewRenderError(errors.New("x"))
		}
		scene := f.addAdaScene(t)

		got, err := f.orch.RegenerateWithPrompt(context.Background(), scene.ID, "edited")
		require.NoError(t, err)
		assert.Equal(t, "edited", got.FinalPrompt)
		assert.NotEmpty(t, got.Error)
	})

	t.Run("空のプロンプトは検証エラーになること", func(t *testing.T) {
		f := newFixture(t)
		scene := f.addAdaScene(t)
		_, err := f.orch.RegenerateWithPrompt(context.Background(), scene.ID, "   ")
		assert.ErrorIs(t, err, domain.ErrValidationFailure)
		assert.Empty(t, f.remote.allCalls())
	})

	t.Run("存在しないシーンはエラーになること", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.orch.RegenerateWithPrompt(context.Background(), "missing", "p")
		assert.ErrorIs(t, err, ErrSceneNotFound)
	})
}

func TestPreviewPrompt(t *testing.T) {
	f := newFixture(t)
	scene := f.addAdaScene(t)

	preview, err := f.orch.PreviewPrompt(scene.ID)
	require.NoError(t, err)
	assert.Equal(t, prompts.BuildBasic(scene, []domain.Character{f.ada}, f.store.Settings()), preview)

	f.store.UpdateScene(scene.ID, store.ScenePatch{FinalPrompt: ptr("cached")})
	preview, err = f.orch.PreviewPrompt(scene.ID)
	require.NoError(t, err)
	assert.Equal(t, "cached", preview)

	_, err = f.orch.PreviewPrompt("missing")
	assert.ErrorIs(t, err, ErrSceneNotFound)
}

func TestGenerateScene_DanglingCharacterIgnored(t *testing.T) {
	f := newFixture(t)
	scene := f.addAdaScene(t)
	f.store.DeleteCharacter(f.ada.ID)

	_, err := f.orch.GenerateScene(context.Background(), scene.ID, "")
	require.NoError(t, err)

	enhances := f.remote.callsOf("enhance")
	require.Len(t, enhances, 1)
	assert.NotContains(t, enhances[0].input, "Key Characters")
}
