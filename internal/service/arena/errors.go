package arena

import "errors"

var (
	// ErrInvalidDataset 数据集不可用：列数不足、表头非法或没有有效行
	ErrInvalidDataset = errors.New("invalid dataset")
	// ErrUnknownProject 项目不存在
	ErrUnknownProject = errors.New("unknown project")
	// ErrUnknownUserState 用户尚未在该项目上建立副本
	ErrUnknownUserState = errors.New("unknown user state")
	// ErrStaleComparison 投票对应的比较已不是当前待投票的比较
	ErrStaleComparison = errors.New("stale comparison")
	// ErrInvalidChoice 投票选项非法
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrForbidden 当前角色无权执行该操作
	ErrForbidden = errors.New("forbidden")
	// ErrProjectExists 项目名称已存在
	ErrProjectExists = errors.New("project already exists")
	// ErrInvalidRequest 请求参数非法
	ErrInvalidRequest = errors.New("invalid request")
)
