package store

import (
	"sync"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// EventType はストアの変更種別です。
type EventType string

const (
	EventCharacterAdded   EventType = "character.added"
	EventCharacterUpdated EventType = "character.updated"
	EventCharacterDeleted EventType = "character.deleted"
	EventSceneAdded       EventType = "scene.added"
	EventSceneUpdated     EventType = "scene.updated"
	EventSceneDeleted     EventType = "scene.deleted"
	EventSettingsChanged  EventType = "settings.changed"
	EventProjectCleared   EventType = "project.cleared"
)

// subscriberBuffer は購読者ごとのバッファ長です。溢れたイベントは破棄されます。
const subscriberBuffer = 64

// Event はストアの変更通知です。
type Event struct {
	Type        EventType                  `json:"type"`
	Scene       *domain.Scene              `json:"scene,omitempty"`
	SceneID     string                     `json:"sceneId,omitempty"`
	Character   *domain.Character          `json:"character,omitempty"`
	CharacterID string                     `json:"characterId,omitempty"`
	Settings    *domain.GenerationSettings `json:"settings,omitempty"`
}

type broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe は変更通知を受け取るチャネルと、購読を解除する関数を返します。
// 受信が追いつかない購読者へのイベントは破棄され、ストアの操作はブロックされません。
func (s *Store) Subscribe() (<-chan Event, func()) {
	b := s.events
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) publish(ev Event) {
	b := s.events
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
