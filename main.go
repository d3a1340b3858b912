package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/BerniceZTT/crm_followup/cache"
	"github.com/BerniceZTT/crm_followup/config"
	"github.com/BerniceZTT/crm_followup/controllers"
	"github.com/BerniceZTT/crm_followup/events"
	"github.com/BerniceZTT/crm_followup/gateway"
	"github.com/BerniceZTT/crm_followup/repository"
	"github.com/BerniceZTT/crm_followup/routes"
	"github.com/BerniceZTT/crm_followup/service"
	"github.com/BerniceZTT/crm_followup/utils"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// 初始化日志
	utils.InitLogger(cfg.Debug())

	// 设置Gin模式
	if cfg.Debug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := utils.RegisterValidators(); err != nil {
		utils.Logger.Fatal().Err(err).Msg("注册校验规则失败")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components := map[string]string{}

	// 远端CRM服务：请求中的令牌优先，后台任务使用服务账号
	serviceToken := gateway.StaticToken(cfg.CRMApi.ServiceToken)
	crm, err := gateway.NewClient(gateway.Options{
		BaseURL:       cfg.CRMApi.BaseURL,
		Timeout:       cfg.CRMApi.Timeout,
		RatePerSecond: cfg.CRMApi.RatePerSecond,
		Burst:         cfg.CRMApi.Burst,
	}, gateway.RequestToken(nil))
	if err != nil {
		utils.Logger.Fatal().Err(err).Msg("创建CRM客户端失败")
	}
	jobCRM, err := gateway.NewClient(gateway.Options{
		BaseURL:       cfg.CRMApi.BaseURL,
		Timeout:       cfg.CRMApi.Timeout,
		RatePerSecond: cfg.CRMApi.RatePerSecond,
		Burst:         cfg.CRMApi.Burst,
	}, serviceToken)
	if err != nil {
		utils.Logger.Fatal().Err(err).Msg("创建CRM客户端失败")
	}

	// 审计存储
	var audit repository.AuditStore
	if cfg.Mongo.URI != "" {
		db, err := repository.InitMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			utils.Logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer repository.CloseMongoDB(context.Background())

		if err := repository.InitializeCollections(ctx, db); err != nil {
			utils.Logger.Error().Err(err).Msg("初始化数据库集合失败")
		}
		audit = repository.NewMongoAuditStore(db)
		components["audit"] = "mongo"
	} else {
		utils.Logger.Warn().Msg("未配置MONGO_URI，审计记录仅保存在内存中")
		audit = repository.NewMemoryAuditStore()
		components["audit"] = "memory"
	}

	// 负载缓存
	capacityCache := cache.NewNoopCapacityCache()
	components["cache"] = "none"
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			utils.Logger.Warn().Err(err).Msg("连接Redis失败，不使用负载缓存")
		} else {
			capacityCache = cache.NewRedisCapacityCache(rdb, cfg.Redis.CapacityTTL)
			components["cache"] = "redis"
		}
	}

	// 领域事件
	var publisher events.Publisher = events.LogPublisher{}
	components["events"] = "log"
	if cfg.AMQP.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(events.AMQPConfig{URL: cfg.AMQP.URL, Exchange: cfg.AMQP.Exchange})
		if err != nil {
			utils.Logger.Warn().Err(err).Msg("连接RabbitMQ失败，事件只写日志")
		} else {
			publisher = amqpPublisher
			components["events"] = "amqp"
		}
	}
	defer publisher.Close()

	followUps := service.NewFollowUpService(crm, publisher, time.Now, cfg.PhoneRegion)
	assignments := service.NewAssignmentService(crm, capacityCache, audit, publisher)

	router := routes.NewRouter(routes.Handlers{
		FollowUps:   controllers.NewFollowUpController(followUps),
		Assignments: controllers.NewAssignmentController(assignments),
		Signer:      utils.NewTokenSigner(cfg.JWTKey, 0),
		Audit:       audit,
		CORSOrigins: cfg.CORSOrigins,
		Components:  components,
	})

	// 每日逾期汇总
	if cfg.OverdueDigestHour >= 0 {
		if cfg.CRMApi.ServiceToken == "" {
			utils.Logger.Warn().Msg("未配置CRM_SERVICE_TOKEN，不启用每日逾期汇总")
		} else {
			digestService := service.NewFollowUpService(jobCRM, publisher, time.Now, cfg.PhoneRegion)
			service.ScheduleDailyTaskAt(ctx, cfg.OverdueDigestHour, 0, 0, service.ProcessOverdueFollowUps(digestService))
		}
	}

	// 设置HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 启动服务器
	go func() {
		utils.Logger.Info().Msgf("服务器启动，监听端口: %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Logger.Fatal().Err(err).Msg("启动服务器失败")
		}
	}()

	// 优雅关闭
	<-ctx.Done()
	utils.Logger.Info().Msg("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Logger.Error().Err(err).Msg("服务器关闭异常")
	}

	utils.Logger.Info().Msg("服务器已优雅关闭")
}
