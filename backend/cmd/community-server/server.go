package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"community-service/backend/config"
	"community-service/backend/internal/action"
	"community-service/backend/internal/auth"
	"community-service/backend/internal/cache"
	"community-service/backend/internal/events"
	"community-service/backend/internal/handler"
	"community-service/backend/internal/httpapi/middleware"
	"community-service/backend/internal/logging"
	"community-service/backend/internal/mysqldb"
	"community-service/backend/internal/pgdb"
	"community-service/backend/internal/repo"
	"community-service/backend/internal/ws"
)

// storage bundles the gorm handle with the procedures of the configured driver.
type storage struct {
	db         *gorm.DB
	pool       *pgxpool.Pool
	procedures repo.Procedures
}

func (s *storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	opt := mysqldb.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	switch cfg.Database.Driver {
	case "postgres":
		db, err := mysqldb.OpenDialector(postgres.Open(cfg.Database.DSN), opt)
		if err != nil {
			return nil, err
		}
		pool, err := pgdb.NewPool(ctx, cfg.Database.DSN, int32(max(cfg.Database.MaxOpenConns/2, 2)))
		if err != nil {
			if sqlDB, derr := db.DB(); derr == nil {
				_ = sqlDB.Close()
			}
			return nil, err
		}
		return &storage{db: db, pool: pool, procedures: pgdb.NewPgProcedures(pool)}, nil
	default:
		db, err := mysqldb.Open(cfg.Database.DSN, opt)
		if err != nil {
			return nil, err
		}
		return &storage{db: db, procedures: mysqldb.NewMySQLProcedures(db)}, nil
	}
}

func migrateStorage(ctx context.Context, st *storage) error {
	if err := mysqldb.AutoMigrate(st.db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if st.pool != nil {
		if err := pgdb.ApplySchema(ctx, st.pool); err != nil {
			return err
		}
	}
	return nil
}

func migrate(ctx context.Context, cfg *config.Config) error {
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := migrateStorage(ctx, st); err != nil {
		return err
	}
	log.Info("migration complete", zap.String("driver", cfg.Database.Driver))
	return nil
}

func newSaramaConfig() *sarama.Config {
	kc := sarama.NewConfig()
	// SyncProducer requires Return.Successes
	kc.Producer.Return.Successes = true
	kc.Producer.RequiredAcks = sarama.WaitForLocal
	kc.Consumer.Offsets.Initial = sarama.OffsetOldest
	kc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	return kc
}

func newVerifier(cfg *config.Config) auth.Verifier {
	if cfg.Auth.Path != "" {
		return auth.NewRemoteVerifier(cfg.Auth.Path, &http.Client{}, 0)
	}
	return auth.NewJWTVerifier(cfg.Auth.Secret)
}

// openRedis connects and pings; more than one address means a cluster.
func openRedis(ctx context.Context, cfg *config.Config) (redis.UniversalClient, error) {
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer log.Sync()
	gin.SetMode(cfg.Running.Mode)

	// === storage ===
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	if cfg.Database.AutoMigrate {
		if err := migrateStorage(ctx, st); err != nil {
			return err
		}
	}

	rdb, err := openRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	profiles := mysqldb.NewMySQLProfileRepo(st.db)
	badges := mysqldb.NewMySQLBadgeRepo(st.db)
	notifications := mysqldb.NewMySQLNotificationRepo(st.db)
	sf := &singleflight.Group{}
	hub := ws.NewHub()

	// === kafka: optional; without brokers interactions do not notify ===
	var publisher events.Publisher = events.NopPublisher{}
	consumerDone := make(chan struct{})
	if len(cfg.Kafka.Brokers) > 0 {
		kc := newSaramaConfig()
		producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kc)
		if err != nil {
			return fmt.Errorf("connect kafka producer: %w", err)
		}
		defer producer.Close()
		dispatcher := events.NewKafkaDispatcher(producer, cfg.Kafka.Topic, events.NewSemaphore(0), log, events.DispatcherOptions{
			QueueSize:   cfg.Kafka.QueueSize,
			Workers:     cfg.Kafka.Workers,
			MaxRetry:    cfg.Kafka.MaxRetry,
			BaseBackoff: 50 * time.Millisecond,
			MaxBackoff:  time.Second,
		})
		// runs before producer.Close
		defer dispatcher.Close()
		publisher = dispatcher

		group, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID, kc)
		if err != nil {
			return fmt.Errorf("connect kafka consumer group: %w", err)
		}
		consumer := events.NewNotificationConsumer(notifications, hub, log)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx, group, []string{cfg.Kafka.Topic}); err != nil {
				log.Error("notification consumer stopped", zap.Error(err))
			}
		}()
		defer func() {
			_ = group.Close()
			<-consumerDone
		}()
	} else {
		close(consumerDone)
		log.Warn("kafka brokers not configured, interaction notifications disabled")
	}

	svc, err := action.NewService(action.Deps{
		Procedures:    st.procedures,
		Edges:         mysqldb.NewMySQLEdgeRepo(st.db),
		Profiles:      profiles,
		Badges:        badges,
		History:       mysqldb.NewMySQLHistoryRepo(st.db),
		Notifications: notifications,
		Counters: cache.NewRedisCounters(rdb, sf, mysqldb.NewMySQLPostRepo(st.db), cache.CounterOptions{
			BaseTTL: cfg.Cache.CounterTTL,
			Jitter:  cfg.Cache.CounterJitter,
		}),
		StoreCache: cache.NewCatalogCache(rdb, sf, badges, profiles, cache.CatalogOptions{
			CatalogTTL: cfg.Cache.CatalogTTL,
			UserTTL:    cfg.Cache.UserStoreTTL,
		}),
		Publisher: publisher,
		Log:       log,
	})
	if err != nil {
		return err
	}
	h := handler.New(svc, ws.NewManager(hub, notifications, cfg.WS.AllowedOrigins, log))

	router := gin.New()
	router.Use(middleware.Logger(log), middleware.Recovery(log))
	// off by default: the gateway already adds CORS headers and a second set
	// turns Access-Control-Allow-Origin into "null, null"
	if cfg.CORS.Enabled {
		cc := cors.Config{
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}
		if len(cfg.CORS.AllowOrigins) > 0 {
			cc.AllowOrigins = cfg.CORS.AllowOrigins
		} else {
			cc.AllowOriginFunc = func(string) bool { return true }
		}
		router.Use(cors.New(cc))
	}
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	social := router.Group("/social")
	social.Use(middleware.Auth(newVerifier(cfg), log))
	h.Register(social)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Running.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("driver", cfg.Database.Driver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
