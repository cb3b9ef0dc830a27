package notify

import (
	"context"
	"sync"
)

// Hub 是进程内的消息代理。订阅者处理不过来时丢弃消息，不阻塞发布者。
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan []byte
}

// NewHub 构造内存代理。
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan []byte)}
}

// Publish 把消息投递给账号的全部订阅者。
func (h *Hub) Publish(_ context.Context, accountID string, msg Message) error {
	payload, err := encode(msg)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[accountID] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe 注册订阅者。
func (h *Hub) Subscribe(ctx context.Context, accountID string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 16)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[accountID] == nil {
		h.subs[accountID] = make(map[int]chan []byte)
	}
	h.subs[accountID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[accountID], id)
			if len(h.subs[accountID]) == 0 {
				delete(h.subs, accountID)
			}
			close(ch)
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}
