package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project 投票项目，持有上传时的数据集和基线状态
type Project struct {
	ID        string        `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name      string        `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Dataset   Dataset       `json:"-" gorm:"type:jsonb;not null"`
	Baseline  ScheduleState `json:"-" gorm:"type:jsonb;not null"`
	CreatedBy string        `json:"created_by" gorm:"type:varchar(80);not null;index"`
	Version   int64         `json:"-" gorm:"not null;default:0"`
	CreatedAt time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// BeforeCreate GORM 钩子，创建前生成 UUID
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// ProjectUser 参与者在某个项目上的独立副本
type ProjectUser struct {
	ID        string        `json:"id" gorm:"type:varchar(36);primaryKey"`
	ProjectID string        `json:"project_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_project_user"`
	Username  string        `json:"username" gorm:"type:varchar(80);not null;uniqueIndex:idx_project_user;index"`
	State     ScheduleState `json:"-" gorm:"type:jsonb;not null"`
	Version   int64         `json:"-" gorm:"not null;default:0"`
	CreatedAt time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// BeforeCreate GORM 钩子，创建前生成 UUID
func (p *ProjectUser) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (ProjectUser) TableName() string {
	return "project_users"
}
