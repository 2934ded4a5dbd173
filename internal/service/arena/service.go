package arena

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ashwinyue/next-arena/internal/model"
	"github.com/ashwinyue/next-arena/internal/repository"
)

// ProjectStore 项目与调度状态的持久化
type ProjectStore interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context, createdBy string) ([]*model.Project, error)
	DeleteProject(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error

	CreateParticipant(ctx context.Context, pu *model.ProjectUser) error
	GetParticipant(ctx context.Context, projectID, username string) (*model.ProjectUser, error)
	GetParticipantByID(ctx context.Context, id string) (*model.ProjectUser, error)
	ListParticipants(ctx context.Context, projectID string) ([]*model.ProjectUser, error)
	DeleteParticipant(ctx context.Context, id string) error

	UpdateState(ctx context.Context, key repository.StateKey, fn func(*model.ScheduleState) error) error
}

// UserDirectory 用户名到用户的查询
type UserDirectory interface {
	GetUserByUsername(username string) (*model.User, error)
}

// Identity 当前操作者
type Identity struct {
	Username string
	Role     model.Role
}

// HandleKind 状态句柄类型
type HandleKind string

const (
	KindBaseline HandleKind = "baseline"
	KindUserCopy HandleKind = "user_copy"
)

// Handle 当前操作者在某个项目上应读写的状态
type Handle struct {
	Key  repository.StateKey
	Kind HandleKind
}

// Service 竞技场服务
type Service struct {
	store ProjectStore
	users UserDirectory
	norm  Normalizer
	sched *Scheduler
	now   func() time.Time
}

// NewService 创建竞技场服务
func NewService(store ProjectStore, users UserDirectory, norm Normalizer) *Service {
	return &Service{
		store: store,
		users: users,
		norm:  norm,
		sched: NewScheduler(norm),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Normalizer 返回服务使用的规范化器
func (s *Service) Normalizer() Normalizer {
	return s.norm
}

// resolve 观察者使用基线，其余角色使用自己的副本
func (s *Service) resolve(projectID string, id Identity) Handle {
	if id.Role == model.RoleObserver {
		return Handle{Key: repository.StateKey{ProjectID: projectID}, Kind: KindBaseline}
	}
	return Handle{
		Key:  repository.StateKey{ProjectID: projectID, Username: id.Username},
		Kind: KindUserCopy,
	}
}

func canManage(id Identity, p *model.Project) bool {
	return id.Role == model.RoleSuperAdmin || (id.Role == model.RoleEditor && p.CreatedBy == id.Username)
}

func (s *Service) getProject(ctx context.Context, projectID string) (*model.Project, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProject, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

func (s *Service) displayName(username string) string {
	u, err := s.users.GetUserByUsername(username)
	if err != nil || u == nil {
		return username
	}
	return u.DisplayName()
}

// ========== 项目 ==========

// ProjectInfo 项目列表项
type ProjectInfo struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	Models         []string  `json:"models"`
	ValidQuestions int       `json:"valid_questions"`
	Pairs          int       `json:"pairs"`
}

func (s *Service) projectInfo(p *model.Project) ProjectInfo {
	return ProjectInfo{
		ID:             p.ID,
		Name:           p.Name,
		CreatedBy:      p.CreatedBy,
		CreatedAt:      p.CreatedAt,
		Models:         p.Baseline.Models,
		ValidQuestions: len(s.norm.ValidRowIndices(&p.Dataset)),
		Pairs:          len(p.Baseline.ModelPairs),
	}
}

// CreateProject 规范化数据集并以其创建项目和基线
func (s *Service) CreateProject(ctx context.Context, id Identity, name string, ds *model.Dataset) (*ProjectInfo, error) {
	if !id.Role.CanEdit() {
		return nil, ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidRequest)
	}

	normalized, err := s.norm.Normalize(ds)
	if err != nil {
		return nil, err
	}

	project := &model.Project{
		Name:      name,
		Dataset:   *normalized,
		Baseline:  *s.norm.CreateBaseline(normalized),
		CreatedBy: id.Username,
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrProjectExists, name)
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	log.Printf("project %q created by %s: %d models, %d valid questions",
		project.Name, id.Username, len(project.Baseline.Models), len(project.Baseline.QuestionPool))

	info := s.projectInfo(project)
	return &info, nil
}

// ListProjects 编辑只能看到自己创建的项目，其余角色看到全部
func (s *Service) ListProjects(ctx context.Context, id Identity) ([]ProjectInfo, error) {
	createdBy := ""
	if id.Role == model.RoleEditor {
		createdBy = id.Username
	}
	projects, err := s.store.ListProjects(ctx, createdBy)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	out := make([]ProjectInfo, 0, len(projects))
	for _, p := range projects {
		out = append(out, s.projectInfo(p))
	}
	return out, nil
}

// RemoveProject 删除项目及全部参与者副本
func (s *Service) RemoveProject(ctx context.Context, id Identity, projectID string) error {
	p, err := s.getProject(ctx, projectID)
	if err != nil {
		return err
	}
	if !canManage(id, p) {
		return ErrForbidden
	}
	if err := s.store.DeleteProject(ctx, p.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	log.Printf("project %q removed by %s", p.Name, id.Username)
	return nil
}

// ResetAll 删除全部项目和参与者副本
func (s *Service) ResetAll(ctx context.Context, id Identity) error {
	if id.Role != model.RoleSuperAdmin {
		return ErrForbidden
	}
	if err := s.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to reset projects: %w", err)
	}
	log.Printf("all projects reset by %s", id.Username)
	return nil
}

// ========== 投票流程 ==========

// SelectResult 选择项目的结果
type SelectResult struct {
	ProjectID string     `json:"project_id"`
	Kind      HandleKind `json:"kind"`
	Completed bool       `json:"completed"`
	Progress  float64    `json:"progress"`
}

// Select 选择项目；参与者首次进入时从基线派生副本
func (s *Service) Select(ctx context.Context, id Identity, projectID string) (*SelectResult, error) {
	p, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	h := s.resolve(p.ID, id)

	var state *model.ScheduleState
	if h.Kind == KindBaseline {
		state = &p.Baseline
	} else {
		state, err = s.ensureUserCopy(ctx, p, id.Username)
		if err != nil {
			return nil, err
		}
	}

	return &SelectResult{
		ProjectID: p.ID,
		Kind:      h.Kind,
		Completed: IsComplete(state),
		Progress:  s.sched.Progress(state, &p.Dataset),
	}, nil
}

func (s *Service) ensureUserCopy(ctx context.Context, p *model.Project, username string) (*model.ScheduleState, error) {
	pu, err := s.store.GetParticipant(ctx, p.ID, username)
	if err == nil {
		return &pu.State, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user state: %w", err)
	}

	pu = &model.ProjectUser{ProjectID: p.ID, Username: username, State: *Fork(&p.Baseline)}
	err = s.store.CreateParticipant(ctx, pu)
	if errors.Is(err, repository.ErrDuplicate) {
		// 并发的首次选择已建好副本
		existing, getErr := s.store.GetParticipant(ctx, p.ID, username)
		if getErr != nil {
			return nil, fmt.Errorf("failed to get user state: %w", getErr)
		}
		return &existing.State, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user state: %w", err)
	}
	return &pu.State, nil
}

// ComparisonView 下发给投票者的比较
type ComparisonView struct {
	Status           Status            `json:"status"`
	Comparison       *model.Comparison `json:"comparison,omitempty"`
	Question         string            `json:"question,omitempty"`
	LeftResponse     string            `json:"left_response,omitempty"`
	RightResponse    string            `json:"right_response,omitempty"`
	ComparisonNumber int               `json:"comparison_number"`
	Progress         float64           `json:"progress"`
}

// Next 返回下一个比较，全部完成时 Status 为 StatusAllComplete
func (s *Service) Next(ctx context.Context, id Identity, projectID string) (*ComparisonView, error) {
	p, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	h := s.resolve(p.ID, id)

	var view *ComparisonView
	err = s.update(ctx, h, func(state *model.ScheduleState) error {
		cmp, status, err := s.sched.Next(state, &p.Dataset)
		if err != nil {
			return err
		}
		view = &ComparisonView{
			Status:           status,
			Comparison:       cmp,
			ComparisonNumber: state.ComparisonsMade + 1,
			Progress:         s.sched.Progress(state, &p.Dataset),
		}
		if cmp != nil {
			view.Question = p.Dataset.Question(cmp.QuestionIdx)
			view.LeftResponse, _ = p.Dataset.Response(cmp.QuestionIdx, cmp.ModelA)
			view.RightResponse, _ = p.Dataset.Response(cmp.QuestionIdx, cmp.ModelB)
		} else {
			view.ComparisonNumber = state.ComparisonsMade
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// VoteResult 投票结果；Stale 为 true 表示比较已过期，未记录任何内容
type VoteResult struct {
	Recorded        bool              `json:"recorded"`
	Stale           bool              `json:"stale"`
	Record          *model.VoteRecord `json:"record,omitempty"`
	ComparisonsMade int               `json:"comparisons_made"`
	Completed       bool              `json:"completed"`
}

// Vote 对当前待投票的比较记一票
func (s *Service) Vote(ctx context.Context, id Identity, projectID, comparisonID, choice string) (*VoteResult, error) {
	c, err := ParseChoice(choice)
	if err != nil {
		return nil, err
	}
	p, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	h := s.resolve(p.ID, id)

	result := &VoteResult{}
	err = s.update(ctx, h, func(state *model.ScheduleState) error {
		rec, err := RecordVote(state, comparisonID, c, s.now())
		if err != nil {
			return err
		}
		result.Recorded = true
		result.Record = rec
		result.ComparisonsMade = state.ComparisonsMade
		result.Completed = IsComplete(state)
		return nil
	})
	if errors.Is(err, ErrStaleComparison) {
		return &VoteResult{Stale: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Redo 丢弃参与者的全部进度，重新从基线派生
func (s *Service) Redo(ctx context.Context, id Identity, projectID string) (*SelectResult, error) {
	p, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	h := s.resolve(p.ID, id)
	if h.Kind == KindBaseline {
		return nil, ErrForbidden
	}

	err = s.update(ctx, h, func(state *model.ScheduleState) error {
		*state = *Reset(&p.Baseline)
		return nil
	})
	if errors.Is(err, ErrUnknownUserState) {
		err = s.store.CreateParticipant(ctx, &model.ProjectUser{
			ProjectID: p.ID,
			Username:  id.Username,
			State:     *Reset(&p.Baseline),
		})
		if err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("failed to create user state: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	return &SelectResult{
		ProjectID: p.ID,
		Kind:      h.Kind,
		Completed: IsComplete(&p.Baseline),
		Progress:  0,
	}, nil
}

// FinishResult 结束投票时的完成情况
type FinishResult struct {
	Completed       bool `json:"completed"`
	ComparisonsMade int  `json:"comparisons_made"`
}

// Finish 报告当前状态是否已完成，不修改状态
func (s *Service) Finish(ctx context.Context, id Identity, projectID string) (*FinishResult, error) {
	p, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	h := s.resolve(p.ID, id)

	state := &p.Baseline
	if h.Kind == KindUserCopy {
		pu, err := s.store.GetParticipant(ctx, p.ID, id.Username)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownUserState
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get user state: %w", err)
		}
		state = &pu.State
	}

	return &FinishResult{
		Completed:       IsComplete(state),
		ComparisonsMade: state.ComparisonsMade,
	}, nil
}

// update 对句柄指向的状态做一次原子读改写
func (s *Service) update(ctx context.Context, h Handle, fn func(*model.ScheduleState) error) error {
	err := s.store.UpdateState(ctx, h.Key, fn)
	if errors.Is(err, repository.ErrNotFound) {
		if h.Kind == KindBaseline {
			return fmt.Errorf("%w: %s", ErrUnknownProject, h.Key.ProjectID)
		}
		return ErrUnknownUserState
	}
	return err
}

// ========== 结果 ==========

// ParticipantResult 单个参与者的结果
type ParticipantResult struct {
	ID              string                `json:"id"`
	Username        string                `json:"username"`
	DisplayName     string                `json:"display_name"`
	SessionID       string                `json:"session_id"`
	ComparisonsMade int                   `json:"comparisons_made"`
	Completed       bool                  `json:"completed"`
	Summary         Summary               `json:"summary"`
	Ranked          []ModelScore          `json:"ranked"`
	Pairwise        map[string]*PairStats `json:"pairwise"`
}

// ProjectResults 单个项目的全部参与者结果
type ProjectResults struct {
	ProjectID    string              `json:"project_id"`
	ProjectName  string              `json:"project_name"`
	Participants []ParticipantResult `json:"participants"`
}

// Results 汇总可见项目的参与者结果：超级管理员看全部，编辑只看自己的项目
func (s *Service) Results(ctx context.Context, id Identity) ([]ProjectResults, error) {
	if !id.Role.CanEdit() {
		return nil, ErrForbidden
	}
	createdBy := ""
	if id.Role == model.RoleEditor {
		createdBy = id.Username
	}
	projects, err := s.store.ListProjects(ctx, createdBy)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	out := make([]ProjectResults, 0, len(projects))
	for _, p := range projects {
		participants, err := s.store.ListParticipants(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list participants: %w", err)
		}
		pr := ProjectResults{
			ProjectID:    p.ID,
			ProjectName:  p.Name,
			Participants: make([]ParticipantResult, 0, len(participants)),
		}
		for _, pu := range participants {
			summary := AggregateSummary(&pu.State)
			pr.Participants = append(pr.Participants, ParticipantResult{
				ID:              pu.ID,
				Username:        pu.Username,
				DisplayName:     s.displayName(pu.Username),
				SessionID:       pu.State.SessionID,
				ComparisonsMade: pu.State.ComparisonsMade,
				Completed:       IsComplete(&pu.State),
				Summary:         summary,
				Ranked:          summary.Ranked(),
				Pairwise:        PairwiseBreakdown(&pu.State),
			})
		}
		out = append(out, pr)
	}
	return out, nil
}

// DeleteScore 删除某个参与者在项目上的副本
func (s *Service) DeleteScore(ctx context.Context, id Identity, participantID string) error {
	pu, err := s.store.GetParticipantByID(ctx, participantID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUnknownUserState
	}
	if err != nil {
		return fmt.Errorf("failed to get participant: %w", err)
	}
	p, err := s.getProject(ctx, pu.ProjectID)
	if err != nil {
		return err
	}
	if !canManage(id, p) {
		return ErrForbidden
	}
	if err := s.store.DeleteParticipant(ctx, pu.ID); err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	log.Printf("score of %s on project %q deleted by %s", pu.Username, p.Name, id.Username)
	return nil
}

// ParticipantState 导出用的参与者状态
type ParticipantState struct {
	ID          string
	Username    string
	DisplayName string
	State       *model.ScheduleState
}

// ExportSet 导出所需的项目数据
type ExportSet struct {
	ProjectName     string
	Models          []string
	Dataset         *model.Dataset
	UploadedBy      string
	IncludeUploader bool
	Participants    []ParticipantState
}

// ExportData 收集导出所需数据；超级管理员导出时附带上传者
func (s *Service) ExportData(ctx context.Context, id Identity, projectID string) (*ExportSet, error) {
	p, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !canManage(id, p) {
		return nil, ErrForbidden
	}

	participants, err := s.store.ListParticipants(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	data := &ExportSet{
		ProjectName:     p.Name,
		Models:          p.Baseline.Models,
		Dataset:         &p.Dataset,
		UploadedBy:      s.displayName(p.CreatedBy),
		IncludeUploader: id.Role == model.RoleSuperAdmin,
		Participants:    make([]ParticipantState, 0, len(participants)),
	}
	for _, pu := range participants {
		state := pu.State
		data.Participants = append(data.Participants, ParticipantState{
			ID:          pu.ID,
			Username:    pu.Username,
			DisplayName: s.displayName(pu.Username),
			State:       &state,
		})
	}
	return data, nil
}
