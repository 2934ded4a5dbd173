package testutil

import (
	"time"

	"github.com/ashwinyue/next-arena/internal/model"
	"github.com/ashwinyue/next-arena/internal/repository"
)

// CreateUser 创建用户，用户名唯一
func (m *MemoryStore) CreateUser(user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return repository.ErrDuplicate
	}
	m.users[user.Username] = user
	return nil
}

// GetUserByID 根据 ID 获取用户
func (m *MemoryStore) GetUserByID(id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ListUsers 列出用户
func (m *MemoryStore) ListUsers() ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

// UpdateUser 更新用户
func (m *MemoryStore) UpdateUser(user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Username] = user
	return nil
}

// DeleteUser 删除用户、其令牌和全部项目副本
func (m *MemoryStore) DeleteUser(user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, pu := range m.participants {
		if pu.Username == user.Username {
			delete(m.participants, id)
		}
	}
	for k, t := range m.tokens {
		if t.UserID == user.ID {
			delete(m.tokens, k)
		}
	}
	delete(m.users, user.Username)
	return nil
}

// CreateToken 保存令牌
func (m *MemoryStore) CreateToken(token *model.AuthToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.Token] = token
	return nil
}

// GetTokenByValue 获取未撤销且未过期的令牌
func (m *MemoryStore) GetTokenByValue(value string) (*model.AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[value]
	if !ok || t.IsRevoked || t.ExpiresAt.Before(time.Now()) {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

// RevokeToken 撤销令牌
func (m *MemoryStore) RevokeToken(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.ID == id {
			t.IsRevoked = true
		}
	}
	return nil
}

// RevokeTokensByUserID 撤销用户的全部令牌
func (m *MemoryStore) RevokeTokensByUserID(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.IsRevoked = true
		}
	}
	return nil
}

// DeleteExpiredTokens 删除过期或已撤销的令牌
func (m *MemoryStore) DeleteExpiredTokens() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for k, t := range m.tokens {
		if t.IsRevoked || t.ExpiresAt.Before(now) {
			delete(m.tokens, k)
		}
	}
	return nil
}
