package server

import "github.com/shouni/go-storyboard-kit/pkg/domain"

type settingsRequest struct {
	Style       string `json:"style"`
	AspectRatio string `json:"aspectRatio"`
}

// characterRequest は referenceImage を直接渡すか、reference にデータURLを指定します。
type characterRequest struct {
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	ReferenceImage *domain.ReferenceImage `json:"referenceImage"`
	Reference      string                 `json:"reference"`
}

type createSceneRequest struct {
	Text         string   `json:"text"`
	CharacterIDs []string `json:"characterIds"`
}

type patchSceneRequest struct {
	Text         *string   `json:"text"`
	CharacterIDs *[]string `json:"characterIds"`
}

type regenerateRequest struct {
	Prompt string `json:"prompt"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
