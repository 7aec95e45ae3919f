package auth

import (
	"context"
	"sync"
	"time"
)

// TokenBlacklist 定义了已吊销 jti 的存储接口。
type TokenBlacklist interface {
	// Add 将 jti 加入黑名单，条目在令牌原本的过期时间之后失效。
	Add(ctx context.Context, jti string, originalTokenExpTime time.Time) error
	// IsBlacklisted 检查 jti 是否已被吊销。
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// memoryTokenBlacklist keeps revoked jtis in process memory.
// Used when Redis is disabled; revocations do not survive a restart.
type memoryTokenBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryTokenBlacklist 创建进程内的黑名单实现。
func NewMemoryTokenBlacklist() TokenBlacklist {
	return newMemoryTokenBlacklist(time.Now)
}

func newMemoryTokenBlacklist(now func() time.Time) *memoryTokenBlacklist {
	return &memoryTokenBlacklist{entries: make(map[string]time.Time), now: now}
}

func (m *memoryTokenBlacklist) Add(_ context.Context, jti string, originalTokenExpTime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !originalTokenExpTime.After(now) {
		// 已过期的令牌无需记录
		return nil
	}
	m.pruneLocked(now)
	m.entries[jti] = originalTokenExpTime
	return nil
}

func (m *memoryTokenBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.entries[jti]
	if !ok {
		return false, nil
	}
	if !exp.After(m.now()) {
		delete(m.entries, jti)
		return false, nil
	}
	return true, nil
}

func (m *memoryTokenBlacklist) pruneLocked(now time.Time) {
	for jti, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, jti)
		}
	}
}
