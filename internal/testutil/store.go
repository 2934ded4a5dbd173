package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashwinyue/next-arena/internal/model"
	"github.com/ashwinyue/next-arena/internal/repository"
)

// MemoryStore 内存中的项目与用户存储，语义与 repository 包一致
type MemoryStore struct {
	mu           sync.Mutex
	projects     map[string]*model.Project
	participants map[string]*model.ProjectUser
	users        map[string]*model.User
	tokens       map[string]*model.AuthToken
	seq          int
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects:     make(map[string]*model.Project),
		participants: make(map[string]*model.ProjectUser),
		users:        make(map[string]*model.User),
		tokens:       make(map[string]*model.AuthToken),
	}
}

// AddUser 添加用户
func (m *MemoryStore) AddUser(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Username] = u
}

// GetUserByUsername 实现用户查询
func (m *MemoryStore) GetUserByUsername(username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

// tick 单调递增的创建时间，保证排序稳定
func (m *MemoryStore) tick() time.Time {
	m.seq++
	return time.Date(2024, 1, 1, 0, 0, m.seq, 0, time.UTC)
}

func copyProject(p *model.Project) *model.Project {
	out := *p
	out.Baseline = *p.Baseline.Clone()
	return &out
}

func copyParticipant(pu *model.ProjectUser) *model.ProjectUser {
	out := *pu
	out.State = *pu.State.Clone()
	return &out
}

// CreateProject 创建项目
func (m *MemoryStore) CreateProject(ctx context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.projects {
		if existing.Name == p.Name {
			return repository.ErrDuplicate
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = m.tick()
	m.projects[p.ID] = copyProject(p)
	return nil
}

// GetProject 获取项目
func (m *MemoryStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyProject(p), nil
}

// ListProjects 按创建时间倒序列出项目
func (m *MemoryStore) ListProjects(ctx context.Context, createdBy string) ([]*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Project
	for _, p := range m.projects {
		if createdBy == "" || p.CreatedBy == createdBy {
			out = append(out, copyProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// DeleteProject 删除项目及参与者副本
func (m *MemoryStore) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.projects, id)
	for pid, pu := range m.participants {
		if pu.ProjectID == id {
			delete(m.participants, pid)
		}
	}
	return nil
}

// DeleteAll 清空项目和参与者副本
func (m *MemoryStore) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects = make(map[string]*model.Project)
	m.participants = make(map[string]*model.ProjectUser)
	return nil
}

// CreateParticipant 创建参与者副本
func (m *MemoryStore) CreateParticipant(ctx context.Context, pu *model.ProjectUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.participants {
		if existing.ProjectID == pu.ProjectID && existing.Username == pu.Username {
			return repository.ErrDuplicate
		}
	}
	if pu.ID == "" {
		pu.ID = uuid.NewString()
	}
	pu.CreatedAt = m.tick()
	m.participants[pu.ID] = copyParticipant(pu)
	return nil
}

// GetParticipant 获取参与者副本
func (m *MemoryStore) GetParticipant(ctx context.Context, projectID, username string) (*model.ProjectUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pu := range m.participants {
		if pu.ProjectID == projectID && pu.Username == username {
			return copyParticipant(pu), nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetParticipantByID 根据 ID 获取参与者副本
func (m *MemoryStore) GetParticipantByID(ctx context.Context, id string) (*model.ProjectUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pu, ok := m.participants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyParticipant(pu), nil
}

// ListParticipants 按创建时间列出参与者副本
func (m *MemoryStore) ListParticipants(ctx context.Context, projectID string) ([]*model.ProjectUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ProjectUser
	for _, pu := range m.participants {
		if pu.ProjectID == projectID {
			out = append(out, copyParticipant(pu))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteParticipant 删除参与者副本
func (m *MemoryStore) DeleteParticipant(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.participants[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.participants, id)
	return nil
}

// UpdateState 在锁内读改写，fn 出错时不写回
func (m *MemoryStore) UpdateState(ctx context.Context, key repository.StateKey, fn func(*model.ScheduleState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if key.IsBaseline() {
		p, ok := m.projects[key.ProjectID]
		if !ok {
			return repository.ErrNotFound
		}
		state := p.Baseline.Clone()
		if err := fn(state); err != nil {
			return err
		}
		p.Baseline = *state
		p.Version++
		return nil
	}

	for _, pu := range m.participants {
		if pu.ProjectID == key.ProjectID && pu.Username == key.Username {
			state := pu.State.Clone()
			if err := fn(state); err != nil {
				return err
			}
			pu.State = *state
			pu.Version++
			return nil
		}
	}
	return repository.ErrNotFound
}
