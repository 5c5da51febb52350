package app

import "sync"

// ChatLimiter предотвращает одновременную обработку двух событий одного чата:
// состояние мастера мутируется строго последовательно. Записи считаются по
// ссылкам и удаляются, когда у чата не осталось ожидающих событий.
type ChatLimiter struct {
	mu   sync.Mutex
	byID map[int64]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

func NewChatLimiter() *ChatLimiter {
	return &ChatLimiter{byID: make(map[int64]*chatLock)}
}

func (l *ChatLimiter) lock(chatID int64) func() {
	l.mu.Lock()
	cl, ok := l.byID[chatID]
	if !ok {
		cl = &chatLock{}
		l.byID[chatID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.byID, chatID)
		}
		l.mu.Unlock()
	}
}
