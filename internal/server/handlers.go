package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"

	"github.com/gin-gonic/gin"
)

var errCharacterNotFound = errors.New("キャラクターが見つかりません")

func (s *Server) getProject(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) clearProject(c *gin.Context) {
	s.store.ClearAll()
	c.Status(http.StatusNoContent)
}

func (s *Server) getOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"styles":       domain.ArtStyles(),
		"aspectRatios": domain.AspectRatios(),
	})
}

func (s *Server) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Settings())
}

func (s *Server) putSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError(err.Error()))
		return
	}
	settings, err := domain.ResolveSettings(req.Style, req.AspectRatio)
	if err != nil {
		writeError(c, err)
		return
	}
	s.store.SetSettings(settings)
	c.JSON(http.StatusOK, settings)
}

func (s *Server) createCharacter(c *gin.Context) {
	char, ok := s.bindCharacter(c)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, s.store.AddCharacter(char))
}

func (s *Server) updateCharacter(c *gin.Context) {
	char, ok := s.bindCharacter(c)
	if !ok {
		return
	}
	updated, found := s.store.UpdateCharacter(c.Param("id"), char)
	if !found {
		writeError(c, errCharacterNotFound)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteCharacter(c *gin.Context) {
	if !s.store.DeleteCharacter(c.Param("id")) {
		writeError(c, errCharacterNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// bindCharacter はリクエストを検証済みのキャラクターに変換します。失敗時はレスポンスを書き込み false を返します。
// 参照画像は referenceImage かデータURLの reference でのみ受け付けます。
func (s *Server) bindCharacter(c *gin.Context) (domain.Character, bool) {
	var req characterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError(err.Error()))
		return domain.Character{}, false
	}

	char := domain.Character{
		Name:           req.Name,
		Description:    req.Description,
		ReferenceImage: req.ReferenceImage,
	}
	if req.Reference != "" && char.ReferenceImage == nil {
		// HTTP 経由ではサーバー側のファイルや URL を読みに行かない
		mimeType, data, err := domain.DecodeDataURL(strings.TrimSpace(req.Reference))
		if err != nil {
			writeError(c, domain.NewValidationError("reference にはデータURLを指定してください: "+err.Error()))
			return domain.Character{}, false
		}
		char.ReferenceImage = &domain.ReferenceImage{Data: data, MimeType: mimeType}
	}
	if err := char.Validate(); err != nil {
		writeError(c, err)
		return domain.Character{}, false
	}
	return char, true
}

func (s *Server) createScene(c *gin.Context) {
	var req createSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError(err.Error()))
		return
	}
	if err := domain.ValidateSceneText(req.Text); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.store.AddScene(req.Text, req.CharacterIDs))
}

func (s *Server) patchScene(c *gin.Context) {
	var req patchSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError(err.Error()))
		return
	}
	if req.Text != nil {
		if err := domain.ValidateSceneText(*req.Text); err != nil {
			writeError(c, err)
			return
		}
	}
	scene, ok := s.store.UpdateScene(c.Param("id"), store.ScenePatch{
		UserText:     req.Text,
		CharacterIDs: req.CharacterIDs,
	})
	if !ok {
		writeError(c, workflow.ErrSceneNotFound)
		return
	}
	c.JSON(http.StatusOK, scene)
}

func (s *Server) deleteScene(c *gin.Context) {
	if !s.store.DeleteScene(c.Param("id")) {
		writeError(c, workflow.ErrSceneNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) generateScene(c *gin.Context) {
	scene, err := s.orch.GenerateScene(detach(c), c.Param("id"), "")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, scene)
}

func (s *Server) regenerateScene(c *gin.Context) {
	var req regenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError(err.Error()))
		return
	}
	scene, err := s.orch.RegenerateWithPrompt(detach(c), c.Param("id"), req.Prompt)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, scene)
}

func (s *Server) previewPrompt(c *gin.Context) {
	prompt, err := s.orch.PreviewPrompt(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompt": prompt})
}

func (s *Server) generatePending(c *gin.Context) {
	report, err := s.orch.GenerateAllPending(detach(c))
	if errors.Is(err, workflow.ErrNothingPending) {
		c.JSON(http.StatusOK, gin.H{"status": "nothing to do", "report": report})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed", "report": report})
}

// detach は切断やタイムアウトでキャンセルされないリクエストコンテキストを返します。
// 開始した生成は呼び出し元の接続状態に関係なく最後まで実行し、結果はストアに残します。
func detach(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidationFailure):
		status = http.StatusBadRequest
	case errors.Is(err, workflow.ErrSceneNotFound), errors.Is(err, errCharacterNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrBatchInProgress):
		status = http.StatusConflict
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error(), Kind: string(domain.KindOf(err))})
}
