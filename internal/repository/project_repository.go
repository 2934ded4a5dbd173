package repository

import (
	"context"

	"github.com/ashwinyue/next-arena/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StateKey 定位一份调度状态：Username 为空时指向项目基线，否则指向该用户的副本
type StateKey struct {
	ProjectID string
	Username  string
}

// IsBaseline 是否指向基线
func (k StateKey) IsBaseline() bool {
	return k.Username == ""
}

// ProjectRepository 项目与参与者副本仓库
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建项目仓库
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// CreateProject 创建项目
func (r *ProjectRepository) CreateProject(ctx context.Context, p *model.Project) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

// GetProject 根据 ID 获取项目
func (r *ProjectRepository) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// ListProjects 按创建时间倒序列出项目，createdBy 非空时只返回该用户创建的项目
func (r *ProjectRepository) ListProjects(ctx context.Context, createdBy string) ([]*model.Project, error) {
	var projects []*model.Project
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if createdBy != "" {
		query = query.Where("created_by = ?", createdBy)
	}
	err := query.Find(&projects).Error
	return projects, err
}

// DeleteProject 删除项目及其全部参与者副本
func (r *ProjectRepository) DeleteProject(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.ProjectUser{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Project{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteAll 删除全部项目和参与者副本
func (r *ProjectRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.ProjectUser{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Project{}).Error
	})
}

// ========== 参与者副本 ==========

// CreateParticipant 创建参与者副本
func (r *ProjectRepository) CreateParticipant(ctx context.Context, pu *model.ProjectUser) error {
	return translate(r.db.WithContext(ctx).Create(pu).Error)
}

// GetParticipant 获取用户在项目上的副本
func (r *ProjectRepository) GetParticipant(ctx context.Context, projectID, username string) (*model.ProjectUser, error) {
	var pu model.ProjectUser
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND username = ?", projectID, username).
		First(&pu).Error
	if err != nil {
		return nil, translate(err)
	}
	return &pu, nil
}

// GetParticipantByID 根据 ID 获取参与者副本
func (r *ProjectRepository) GetParticipantByID(ctx context.Context, id string) (*model.ProjectUser, error) {
	var pu model.ProjectUser
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&pu).Error; err != nil {
		return nil, translate(err)
	}
	return &pu, nil
}

// ListParticipants 列出项目的全部参与者副本
func (r *ProjectRepository) ListParticipants(ctx context.Context, projectID string) ([]*model.ProjectUser, error) {
	var list []*model.ProjectUser
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// DeleteParticipant 删除参与者副本
func (r *ProjectRepository) DeleteParticipant(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.ProjectUser{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ========== 状态读改写 ==========

// UpdateState 在单个事务中锁定并读改写一份调度状态
// fn 返回错误时不写回；写回时校验版本号，被并发修改则返回 ErrVersionConflict
func (r *ProjectRepository) UpdateState(ctx context.Context, key StateKey, fn func(*model.ScheduleState) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked := tx.Clauses(clause.Locking{Strength: "UPDATE"})

		if key.IsBaseline() {
			var p model.Project
			if err := locked.Where("id = ?", key.ProjectID).First(&p).Error; err != nil {
				return translate(err)
			}
			state := p.Baseline.Clone()
			if err := fn(state); err != nil {
				return err
			}
			res := tx.Model(&model.Project{}).
				Where("id = ? AND version = ?", p.ID, p.Version).
				Updates(map[string]interface{}{
					"baseline": *state,
					"version":  p.Version + 1,
				})
			return checkWrite(res)
		}

		var pu model.ProjectUser
		err := locked.Where("project_id = ? AND username = ?", key.ProjectID, key.Username).First(&pu).Error
		if err != nil {
			return translate(err)
		}
		state := pu.State.Clone()
		if err := fn(state); err != nil {
			return err
		}
		res := tx.Model(&model.ProjectUser{}).
			Where("id = ? AND version = ?", pu.ID, pu.Version).
			Updates(map[string]interface{}{
				"state":   *state,
				"version": pu.Version + 1,
			})
		return checkWrite(res)
	})
}

func checkWrite(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}
