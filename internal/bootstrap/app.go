// Package bootstrap wires configuration, platform clients and the career
// recommendation pipeline into a runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"careercompass/internal/ai"
	appsvc "careercompass/internal/app"
	"careercompass/internal/cache"
	"careercompass/internal/config"
	"careercompass/internal/kb"
	"careercompass/internal/logger"
	"careercompass/internal/model"
	mysqlClient "careercompass/internal/platform/mysql"
	rabbitmqClient "careercompass/internal/platform/rabbitmq"
	redisClient "careercompass/internal/platform/redis"
	"careercompass/internal/repository"
	"careercompass/internal/worker"
)

// App holds every long-lived resource. MySQL, Redis and RabbitMQ are optional;
// their fields stay nil when disabled and the rest of the application degrades
// to in-process behavior.
type App struct {
	Config             *config.Config
	MySQL              *gorm.DB
	Redis              *redis.Client
	MQConn             *amqp.Connection
	RecordWorker       *worker.RecordPersistWorker
	RecommendationRepo *repository.RecommendationRepository
	Career             *appsvc.CareerService

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger.Init(cfg.App.Env)

	app := &App{Config: cfg, StartedAt: time.Now()}

	if cfg.MySQL.Enabled {
		mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, err
		}
		if err := mysqlDB.AutoMigrate(&model.RecommendationRecord{}); err != nil {
			return nil, fmt.Errorf("auto migrate tables failed: %w", err)
		}
		app.MySQL = mysqlDB
		app.RecommendationRepo = repository.NewRecommendationRepository(mysqlDB)
	}

	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		app.Redis = redisCli
	}

	if cfg.RabbitMQ.Enabled {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			return nil, err
		}
		app.MQConn = mqConn

		if app.RecommendationRepo != nil {
			app.RecordWorker = worker.NewRecordPersistWorker(mqConn, app.RecommendationRepo, cfg.RabbitMQ.RecordQueue)
			if err := app.RecordWorker.Start(ctx); err != nil {
				return nil, fmt.Errorf("start record worker failed: %w", err)
			}
		}
	}

	aiClient := ai.NewClient(cfg.LLM.BaseURL, cfg.LLM.EmbeddingModel, cfg.LLM.ChatModel, cfg.LLM.APIKey)
	loader := kb.NewLoader(cfg.Knowledge.Path)
	chunker := kb.NewChunker(cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap)

	var retCache *cache.RetrievalCache
	if app.Redis != nil {
		retCache = cache.NewRetrievalCache(app.Redis, time.Duration(cfg.Redis.RetrievalTTLSecond)*time.Second)
	}
	var publisher appsvc.RecordPublisher
	if app.MQConn != nil {
		publisher = rabbitmqClient.NewRecordPublisher(app.MQConn, cfg.RabbitMQ.RecordQueue)
	}

	app.Career = appsvc.NewCareerService(
		appsvc.Config{
			IndexDir:       cfg.Index.Dir,
			Collection:     cfg.Index.Collection,
			EmbeddingModel: cfg.LLM.EmbeddingModel,
			TopK:           cfg.Knowledge.TopK,
		},
		loader,
		chunker,
		aiClient,
		aiClient,
		retCache,
		publisher,
	)

	// A failed startup build is not fatal. The server comes up, queries fail
	// with an index-not-ready error, and a rebuild request can recover it.
	if err := app.Career.Init(ctx); err != nil {
		logger.L().Error("career pipeline init failed", zap.Error(err))
	}

	return app, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.RecordWorker != nil {
		a.RecordWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
