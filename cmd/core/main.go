package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-tx-ledger/internal/app/core/adapter/in/rest"
	"github.com/JoeShih716/go-tx-ledger/internal/app/core/adapter/out/events"
	memory_adapter "github.com/JoeShih716/go-tx-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-tx-ledger/internal/app/core/adapter/out/mysql"
	postgres_adapter "github.com/JoeShih716/go-tx-ledger/internal/app/core/adapter/out/postgres"
	"github.com/JoeShih716/go-tx-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-tx-ledger/pkg/logging"
	"github.com/JoeShih716/go-tx-ledger/pkg/mysql"
	"github.com/JoeShih716/go-tx-ledger/pkg/wal"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Store struct {
		// Backend: memory | mysql | postgres
		Backend     string `yaml:"backend"`
		WALPath     string `yaml:"wal_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"store"`
	MySQL mysql.Config `yaml:"mysql"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	Logging logging.Config `yaml:"logging"`
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := loadConfig()

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	store, cleanup, err := buildStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to init store", zap.Error(err))
	}
	defer cleanup()

	emitter, closeEmitters := buildEmitter(cfg, logger)
	defer closeEmitters()

	engine := usecase.NewEngine(store, emitter)

	server := rest.NewServer(engine, logger)
	router := server.Router()
	router.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Info("starting HTTP server", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}

func buildStore(cfg Config, logger *zap.Logger) (usecase.Store, func(), error) {
	switch cfg.Store.Backend {
	case "", "memory":
		var w *wal.WAL
		if cfg.Store.WALPath != "" {
			var err error
			w, err = wal.NewWAL(cfg.Store.WALPath)
			if err != nil {
				return nil, nil, err
			}
		}
		store, err := memory_adapter.NewStore(w)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if w != nil {
				w.Close()
			}
		}
		logger.Info("using in-memory store", zap.String("wal", cfg.Store.WALPath))
		return store, cleanup, nil

	case "mysql":
		client, err := mysql.NewClient(cfg.MySQL)
		if err != nil {
			return nil, nil, err
		}
		store := mysql_adapter.NewStore(client)
		if err := store.AutoMigrate(); err != nil {
			client.Close()
			return nil, nil, err
		}
		logger.Info("using mysql store", zap.String("host", cfg.MySQL.Host))
		return store, func() { client.Close() }, nil

	case "postgres":
		db, err := postgres_adapter.Open(cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		store := postgres_adapter.NewStore(db)
		if err := store.Init(context.Background()); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("using postgres store")
		return store, func() { db.Close() }, nil

	default:
		logger.Fatal("invalid store backend", zap.String("backend", cfg.Store.Backend))
		return nil, nil, nil
	}
}

func buildEmitter(cfg Config, logger *zap.Logger) (usecase.Emitter, func()) {
	emitters := events.Multi{
		events.NewLogEmitter(logger),
		events.NewPrometheusEmitter(prometheus.DefaultRegisterer),
	}
	closers := func() {}

	if len(cfg.Kafka.Brokers) > 0 {
		topic := cfg.Kafka.Topic
		if topic == "" {
			topic = "transaction_events"
		}
		kafkaEmitter := events.NewKafkaEmitter(cfg.Kafka.Brokers, topic, logger)
		emitters = append(emitters, kafkaEmitter)
		closers = func() { kafkaEmitter.Close() }
		logger.Info("publishing ledger events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers))
	}
	return emitters, closers
}

func loadConfig() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfgData, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.MySQL.MaxOpenConns == 0 {
		cfg.MySQL.MaxOpenConns = 100
	}
	if cfg.MySQL.MaxIdleConns == 0 {
		cfg.MySQL.MaxIdleConns = 10
	}
	if cfg.MySQL.ConnMaxLifetime == 0 {
		cfg.MySQL.ConnMaxLifetime = 30 * time.Minute
	}

	// Secrets come from the environment, not the config file.
	if password := os.Getenv("MYSQL_PASSWORD"); password != "" {
		cfg.MySQL.Password = password
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Store.PostgresDSN = dsn
	}
	return cfg
}
