package database

import (
	"context"
	"fmt"
	"time"

	"payment-webhook-api/internal/config"
	"payment-webhook-api/internal/models"
	"payment-webhook-api/pkg/logging"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	DB          *gorm.DB
	RedisClient *redis.Client
)

// InitDatabase opens the audit database and the Redis delivery-status
// store. Both are optional: a failure disables the corresponding feature
// and the webhook keeps serving.
func InitDatabase() error {
	if err := initGorm(); err != nil {
		logging.Warnf("Audit database disabled: %v", err)
		DB = nil
	}

	if err := initRedis(); err != nil {
		logging.Warnf("Delivery status store disabled: %v", err)
		RedisClient = nil
	}

	if DB != nil {
		if err := autoMigrate(); err != nil {
			logging.Warnf("Audit database disabled, migration failed: %v", err)
			DB = nil
		}
	}

	return nil
}

// initGorm opens PostgreSQL when DATABASE_URL is set, falling back to a
// local SQLite file for development.
func initGorm() error {
	var err error

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	}

	if dsn := config.AppConfig.DatabaseURL; dsn == "" {
		logging.Infof("Database URL not set, using SQLite for development")
		DB, err = gorm.Open(sqlite.Open("payment-webhook.db"), gormConfig)
	} else {
		DB, err = gorm.Open(postgres.Open(dsn), gormConfig)
	}

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	logging.Infof("Database connected successfully")
	return nil
}

// initRedis connects the delivery-status store when REDIS_URL is set.
func initRedis() error {
	redisURL := config.AppConfig.RedisURL
	if redisURL == "" {
		return fmt.Errorf("REDIS_URL is not set")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	RedisClient = redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err = RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Infof("Redis connected successfully")
	return nil
}

// autoMigrate performs database migration
func autoMigrate() error {
	return DB.AutoMigrate(
		&models.WebhookEvent{},
	)
}

// GetDB returns database instance
func GetDB() *gorm.DB {
	return DB
}

// GetRedis returns Redis client
func GetRedis() *redis.Client {
	return RedisClient
}

// CloseDatabase closes database connections
func CloseDatabase() error {
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logging.Errorf("Failed to close database: %v", err)
			}
		}
	}

	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logging.Errorf("Failed to close Redis: %v", err)
		}
	}

	return nil
}
