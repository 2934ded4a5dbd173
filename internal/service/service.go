package service

import (
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/next-arena/internal/config"
	"github.com/ashwinyue/next-arena/internal/repository"
	"github.com/ashwinyue/next-arena/internal/service/arena"
	"github.com/ashwinyue/next-arena/internal/service/auth"
	"github.com/ashwinyue/next-arena/internal/service/upload"
)

// Services 服务集合
type Services struct {
	Auth   *auth.Service
	Arena  *arena.Service
	Upload *upload.Manager

	// 配置
	Config *config.Config
}

// NewServices 创建所有服务，redisClient 为 nil 时待确认上传保存在进程内存中
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	norm := arena.NewNormalizer(cfg.Arena.MaxModelColumns, cfg.Arena.MinQuestionWords)

	if redisClient == nil {
		log.Printf("Warning: redis not configured, pending uploads are kept in memory")
	}

	return &Services{
		Auth:   auth.NewService(repo.Auth, cfg.Auth),
		Arena:  arena.NewService(repo.Project, repo.Auth, norm),
		Upload: upload.NewManager(redisClient, cfg.Arena.UploadExpiry()),
		Config: cfg,
	}, nil
}
