package store

import (
	"slices"
	"sync"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/google/uuid"
)

// ScenePatch は UpdateScene に渡す部分更新です。nil のフィールドは変更しません。
// 文字列フィールドに空文字へのポインタを渡すと、その値を未設定に戻します。
type ScenePatch struct {
	UserText     *string
	CharacterIDs *[]string
	FinalPrompt  *string
	ImageURL     *string
	Generating   *bool
	Error        *string
}

// IsEdit は本文またはキャラクター構成を変更する編集かどうかを返します。
func (p ScenePatch) IsEdit() bool {
	return p.UserText != nil || p.CharacterIDs != nil
}

// Snapshot はある時点でのプロジェクト全体の複製です。
type Snapshot struct {
	Characters []domain.Character        `json:"characters"`
	Scenes     []domain.Scene            `json:"scenes"`
	Settings   domain.GenerationSettings `json:"settings"`
}

// Store はキャラクターとシーンをメモリ上に保持するプロジェクトストアです。
// 全ての操作は同期的で、直後の読み取りから結果が見えます。
type Store struct {
	mu         sync.RWMutex
	characters []domain.Character
	scenes     []domain.Scene
	settings   domain.GenerationSettings

	events *broadcaster
}

// New は指定した生成設定で空のストアを生成します。
func New(settings domain.GenerationSettings) *Store {
	return &Store{
		settings: settings,
		events:   newBroadcaster(),
	}
}

// AddCharacter は新しいIDを採番してキャラクターを追加します。
func (s *Store) AddCharacter(c domain.Character) domain.Character {
	c = c.Clone()
	c.ID = uuid.NewString()

	s.mu.Lock()
	s.characters = append(s.characters, c)
	s.mu.Unlock()

	s.publish(Event{Type: EventCharacterAdded, Character: ptr(c.Clone())})
	return c.Clone()
}

// UpdateCharacter は ID が一致するキャラクターの内容を置き換えます。ID は維持されます。
func (s *Store) UpdateCharacter(id string, c domain.Character) (domain.Character, bool) {
	c = c.Clone()
	c.ID = id

	s.mu.Lock()
	i := s.characterIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.Character{}, false
	}
	s.characters[i] = c
	s.mu.Unlock()

	s.publish(Event{Type: EventCharacterUpdated, Character: ptr(c.Clone())})
	return c.Clone(), true
}

// DeleteCharacter はキャラクターを削除します。シーン側の参照は残り、解決時に読み飛ばされます。
func (s *Store) DeleteCharacter(id string) bool {
	s.mu.Lock()
	i := s.characterIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.characters = slices.Delete(s.characters, i, i+1)
	s.mu.Unlock()

	s.publish(Event{Type: EventCharacterDeleted, CharacterID: id})
	return true
}

// Character は ID に一致するキャラクターの複製を返します。
func (s *Store) Character(id string) (domain.Character, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.characterIndex(id); i >= 0 {
		return s.characters[i].Clone(), true
	}
	return domain.Character{}, false
}

// Characters は全キャラクターの複製を登録順で返します。
func (s *Store) Characters() []domain.Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Character, len(s.characters))
	for i, c := range s.characters {
		out[i] = c.Clone()
	}
	return out
}

// ResolveCharacters は ids の順でキャラクターを引き当てます。削除済みの ID は除外されます。
func (s *Store) ResolveCharacters(ids []string) []domain.Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resolved := make([]domain.Character, 0, len(ids))
	for _, id := range ids {
		if i := s.characterIndex(id); i >= 0 {
			resolved = append(resolved, s.characters[i].Clone())
		}
	}
	return resolved
}

// AddScene は末尾にシーンを追加します。パネル番号は現在の件数+1 になります。
func (s *Store) AddScene(userText string, characterIDs []string) domain.Scene {
	s.mu.Lock()
	scene := domain.Scene{
		ID:           uuid.NewString(),
		PanelNumber:  len(s.scenes) + 1,
		UserText:     userText,
		CharacterIDs: slices.Clone(characterIDs),
	}
	if scene.CharacterIDs == nil {
		scene.CharacterIDs = []string{}
	}
	s.scenes = append(s.scenes, scene)
	s.mu.Unlock()

	s.publish(Event{Type: EventSceneAdded, Scene: ptr(scene.Clone())})
	return scene.Clone()
}

// UpdateScene はシーンを部分更新します。
// 本文またはキャラクター構成が変わる場合は FinalPrompt, ImageURL, Error を消去し、Revision を進めます。
func (s *Store) UpdateScene(id string, patch ScenePatch) (domain.Scene, bool) {
	s.mu.Lock()
	i := s.sceneIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.Scene{}, false
	}
	applyPatch(&s.scenes[i], patch)
	scene := s.scenes[i].Clone()
	s.mu.Unlock()

	s.publish(Event{Type: EventSceneUpdated, Scene: ptr(scene.Clone())})
	return scene, true
}

// BeginGeneration はシーンを生成中にし、画像とエラーを消去して Attempt を進めます。
// 返すシーンの Revision と Attempt は UpdateSceneAt に渡す生成開始時点の印になります。
func (s *Store) BeginGeneration(id string) (domain.Scene, bool) {
	s.mu.Lock()
	i := s.sceneIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.Scene{}, false
	}
	sc := &s.scenes[i]
	sc.Generating = true
	sc.ImageURL = ""
	sc.Error = ""
	sc.Attempt++
	scene := sc.Clone()
	s.mu.Unlock()

	s.publish(Event{Type: EventSceneUpdated, Scene: ptr(scene.Clone())})
	return scene, true
}

// UpdateSceneAt は BeginGeneration で開始した生成の結果を書き戻します。
// Revision と Attempt が共に一致する場合のみ patch 全体を適用し、applied=true を返します。
// Attempt のみ一致する場合（生成中に編集された）は Generating の変更だけを適用します。
// Attempt が一致しない場合は後続の生成が進行中のため何も変更しません。
func (s *Store) UpdateSceneAt(id string, revision, attempt uint64, patch ScenePatch) (scene domain.Scene, applied, found bool) {
	s.mu.Lock()
	i := s.sceneIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.Scene{}, false, false
	}
	current := s.scenes[i].Attempt == attempt
	applied = current && s.scenes[i].Revision == revision
	changed := applied
	if applied {
		applyPatch(&s.scenes[i], patch)
	} else if current && patch.Generating != nil {
		s.scenes[i].Generating = *patch.Generating
		changed = true
	}
	scene = s.scenes[i].Clone()
	s.mu.Unlock()

	if changed {
		s.publish(Event{Type: EventSceneUpdated, Scene: ptr(scene.Clone())})
	}
	return scene, applied, true
}

// DeleteScene はシーンを削除し、残りのパネル番号を 1..N に振り直します。
func (s *Store) DeleteScene(id string) bool {
	s.mu.Lock()
	i := s.sceneIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.scenes = slices.Delete(s.scenes, i, i+1)
	for n := range s.scenes {
		s.scenes[n].PanelNumber = n + 1
	}
	s.mu.Unlock()

	s.publish(Event{Type: EventSceneDeleted, SceneID: id})
	return true
}

// Scene は ID に一致するシーンの複製を返します。
func (s *Store) Scene(id string) (domain.Scene, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.sceneIndex(id); i >= 0 {
		return s.scenes[i].Clone(), true
	}
	return domain.Scene{}, false
}

// Scenes は全シーンの複製をパネル順で返します。
func (s *Store) Scenes() []domain.Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Scene, len(s.scenes))
	for i, sc := range s.scenes {
		out[i] = sc.Clone()
	}
	return out
}

// PendingScenes は一括生成の対象（画像なし・生成中でない・エラーなし）のシーンをパネル順で返します。
func (s *Store) PendingScenes() []domain.Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Scene
	for _, sc := range s.scenes {
		if sc.IsPending() {
			out = append(out, sc.Clone())
		}
	}
	return out
}

// Settings は現在の生成設定を返します。
func (s *Store) Settings() domain.GenerationSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetSettings は生成設定を差し替えます。既存シーンのキャッシュには影響しません。
func (s *Store) SetSettings(settings domain.GenerationSettings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	s.publish(Event{Type: EventSettingsChanged, Settings: &settings})
}

// ClearAll は全キャラクターと全シーンを削除します。生成設定は維持されます。
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.characters = nil
	s.scenes = nil
	s.mu.Unlock()

	s.publish(Event{Type: EventProjectCleared})
}

// Snapshot はプロジェクト全体の複製を返します。
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Characters: s.Characters(),
		Scenes:     s.Scenes(),
		Settings:   s.Settings(),
	}
}

func (s *Store) characterIndex(id string) int {
	return slices.IndexFunc(s.characters, func(c domain.Character) bool { return c.ID == id })
}

func (s *Store) sceneIndex(id string) int {
	return slices.IndexFunc(s.scenes, func(sc domain.Scene) bool { return sc.ID == id })
}

func applyPatch(sc *domain.Scene, p ScenePatch) {
	if p.UserText != nil {
		sc.UserText = *p.UserText
	}
	if p.CharacterIDs != nil {
		sc.CharacterIDs = slices.Clone(*p.CharacterIDs)
	}
	if p.IsEdit() {
		sc.FinalPrompt = ""
		sc.ImageURL = ""
		sc.Error = ""
		sc.Revision++
	}
	if p.FinalPrompt != nil {
		sc.FinalPrompt = *p.FinalPrompt
	}
	if p.ImageURL != nil {
		sc.ImageURL = *p.ImageURL
	}
	if p.Generating != nil {
		sc.Generating = *p.Generating
	}
	if p.Error != nil {
		sc.Error = *p.Error
	}
}

func ptr[T any](v T) *T {
	return &v
}
