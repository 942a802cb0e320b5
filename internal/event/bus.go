package event

import (
	"sync"

	"github.com/google/uuid"
)

// EventType 定义事件类型
type EventType string

const (
	EventImportProgress EventType = "import_progress"
	EventImportComplete EventType = "import_complete"
)

// Event 代表一个系统事件
type Event struct {
	Type    EventType
	Payload interface{}
}

// Handler must not block; it runs on the publisher's goroutine.
type Handler func(event Event)

// Bus 事件总线接口
type Bus interface {
	Subscribe(topic EventType, handler Handler) string // 返回 Subscription ID
	Unsubscribe(topic EventType, subID string)
	Publish(topic EventType, payload interface{})
}

// HandlerWrapper 包装 Handler 以便识别
type HandlerWrapper struct {
	ID      string
	Handler Handler
}

// InMemoryBus 简单的内存事件总线实现
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]HandlerWrapper
}

// GlobalBus 全局单例
var GlobalBus Bus = NewInMemoryBus()

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[EventType][]HandlerWrapper),
	}
}

func (b *InMemoryBus) Subscribe(topic EventType, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	wrapper := HandlerWrapper{ID: id, Handler: handler}
	b.handlers[topic] = append(b.handlers[topic], wrapper)
	return id
}

func (b *InMemoryBus) Unsubscribe(topic EventType, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wrappers := b.handlers[topic]
	for i, w := range wrappers {
		if w.ID == subID {
			// copy so a concurrent Publish keeps iterating its own snapshot
			next := make([]HandlerWrapper, 0, len(wrappers)-1)
			next = append(next, wrappers[:i]...)
			b.handlers[topic] = append(next, wrappers[i+1:]...)
			break
		}
	}
}

// Publish 同步调用所有 Handler，保证同一发布者的事件按顺序到达
func (b *InMemoryBus) Publish(topic EventType, payload interface{}) {
	b.mu.RLock()
	wrappers := b.handlers[topic]
	b.mu.RUnlock()

	evt := Event{Type: topic, Payload: payload}
	for _, w := range wrappers {
		w.Handler(evt)
	}
}

// SubscriberCount returns the number of handlers on topic.
func (b *InMemoryBus) SubscriberCount(topic EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}
