package app

import (
	"context"
	"fmt"
	"time"

	"equiplend/catalog"
	"equiplend/config"
	"equiplend/db"
	"equiplend/lending"
	"equiplend/logger"
	"equiplend/metrics"
	"equiplend/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router  *gin.Engine
	DB      *gorm.DB
	RDB     *redis.Client
	Repo    *db.Repo
	Engine  *lending.Engine
	Catalog *catalog.Service
	Gate    *Gate
	Metrics *metrics.Metrics
	Log     *logger.Logger
	Config  config.Config

	appSess *session.AppSessionStore
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }

func New(cfg config.Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	// --- DB: Postgres ---
	dbConn, err := db.ConnectDB(cfg.DSN())
	if err != nil {
		return nil, err
	}
	log.Info("database connected")

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	repo := db.NewRepo(dbConn)
	m := metrics.New()
	appSess := session.NewAppSessionStore(rdb, cfg.SessionTTL)

	// --- Gin ---
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log), Metrics(m))
	useCORS(r, cfg.WebOrigin, cfg.CORSOrigins)

	return &App{
		Router:  r,
		DB:      dbConn,
		RDB:     rdb,
		Repo:    repo,
		Engine:  lending.NewEngine(repo, lending.WithLogger(log.Component("lending")), lending.WithMetrics(m)),
		Catalog: catalog.New(repo, log.Component("catalog")),
		Gate:    NewGate(appSess, repo),
		Metrics: m,
		Log:     log,
		Config:  cfg,
		appSess: appSess,
	}, nil
}

func MustNew(cfg config.Config) *App {
	a, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *App) Close() {
	_ = a.RDB.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	a.Log.Sync()
}
