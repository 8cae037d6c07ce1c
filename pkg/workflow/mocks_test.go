package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
)

type callRecord struct {
	kind  string
	input string
	start time.Time
	end   time.Time
}

// stubRemote は generator.RemoteClient を実装し、呼び出しを記録します。
type stubRemote struct {
	mu        sync.Mutex
	available bool
	calls     []callRecord

	enhanceFunc func(ctx context.Context, req prompts.EnhanceRequest, model string) (string, error)
	renderFunc  func(ctx context.Context, prompt string, aspect domain.AspectRatio) (string, error)
}

func newStubRemote() *stubRemote {
	return &stubRemote{
		available: true,
		enhanceFunc: func(context.Context, prompts.EnhanceRequest, string) (string, error) {
			return "X", nil
		},
		renderFunc: func(_ context.Context, prompt string, _ domain.AspectRatio) (string, error) {
			return domain.EncodeDataURL("image/jpeg", []byte("Y")), nil
		},
	}
}

func (s *stubRemote) IsAvailable() bool { return s.available }

func (s *stubRemote) EnhancePrompt(ctx context.Context, req prompts.EnhanceRequest, model string) (string, error) {
	start := time.Now()
	out, err := s.enhanceFunc(ctx, req, model)
	s.record("enhance", req.Instruction, start)
	return out, err
}

func (s *stubRemote) RenderImage(ctx context.Context, prompt string, aspect domain.AspectRatio) (string, error) {
	start := time.Now()
	out, err := s.renderFunc(ctx, prompt, aspect)
	s.record("render", prompt, start)
	return out, err
}

func (s *stubRemote) record(kind, input string, start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, callRecord{kind: kind, input: input, start: start, end: time.Now()})
}

func (s *stubRemote) callsOf(kind string) []callRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []callRecord
	for _, c := range s.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (s *stubRemote) allCalls() []callRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]callRecord(nil), s.calls...)
}

// stubResolver は ReferenceResolver を実装します。
type stubResolver struct {
	images map[string]*domain.ReferenceImage
}

func (s *stubResolver) Load(_ context.Context, ref string) (*domain.ReferenceImage, error) {
	img, ok := s.images[ref]
	if !ok {
		return nil, domain.NewValidationError("unknown ref " + ref)
	}
	return img, nil
}
