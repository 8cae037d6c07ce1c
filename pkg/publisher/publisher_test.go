package publisher

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type written struct {
	data        []byte
	contentType string
}

// mockWriter は OutputWriter を実装します。
type mockWriter struct {
	files   map[string]written
	failFor string
}

func (m *mockWriter) Write(_ context.Context, path string, r io.Reader, contentType string) error {
	if path == m.failFor {
		return errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if m.files == nil {
		m.files = make(map[string]written)
	}
	m.files[path] = written{data: data, contentType: contentType}
	return nil
}

func buildSnapshot() store.Snapshot {
	st := store.New(domain.DefaultSettings())
	ada := st.AddCharacter(domain.Character{Name: "Ada", Description: "x"})
	first := st.AddScene("Ada enters a room", []string{ada.ID})
	second := st.AddScene("Empty room", nil)

	img := domain.EncodeDataURL("image/jpeg", []byte("Y"))
	st.UpdateScene(first.ID, store.ScenePatch{ImageURL: &img, FinalPrompt: strPtr("X")})
	st.UpdateScene(second.ID, store.ScenePatch{Error: strPtr("image rendering failed: quota")})
	return st.Snapshot()
}

func strPtr(s string) *string { return &s }

func TestStoryboardPublisher_Publish(t *testing.T) {
	w := &mockWriter{}
	p := NewStoryboardPublisher(w)

	res, err := p.Publish(context.Background(), buildSnapshot(), Options{Title: "Demo", OutputDir: "out"})
	require.NoError(t, err)

	assert.Equal(t, "out/storyboard.md", res.MarkdownPath)
	require.Equal(t, []string{"out/images/panel_1.jpg"}, res.ImagePaths)

	img := w.files["out/images/panel_1.jpg"]
	assert.Equal(t, []byte("Y"), img.data)
	assert.Equal(t, "image/jpeg", img.contentType)

	md := string(w.files["out/storyboard.md"].data)
	assert.Contains(t, md, "# Demo\n")
	assert.Contains(t, md, "![Panel 1](images/panel_1.jpg)")
	assert.Contains(t, md, "- characters: Ada\n")
	assert.Contains(t, md, "## Panel 2\n\nEmpty room")
	assert.Contains(t, md, "- error: image rendering failed: quota")
}

func TestStoryboardPublisher_WriteFailure(t *testing.T) {
	w := &mockWriter{failFor: "out/images/panel_1.jpg"}
	_, err := NewStoryboardPublisher(w).Publish(context.Background(), buildSnapshot(), Options{OutputDir: "out"})
	assert.Error(t, err)
	assert.NotContains(t, w.files, "out/storyboard.md")
}

func TestBuildMarkdown_DefaultTitle(t *testing.T) {
	md := BuildMarkdown("", store.Snapshot{Settings: domain.DefaultSettings()}, nil)
	assert.Contains(t, md, "# Storyboard\n")
	assert.Contains(t, md, "- aspect ratio: Landscape (16:9)\n")
}
