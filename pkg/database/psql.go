package database

import (
	"context"
	"fmt"
	"time"

	"chat_platform/pkg/logger"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDatabaseConnection create a new postgresSQL connection
func NewDatabaseConnection(d Connection) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	dbConfig, err := pgxpool.ParseConfig(d.ConnectStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	for i := 0; i < d.RetryCount; i++ {
		pool, err = pgxpool.ConnectConfig(context.Background(), dbConfig)
		if err == nil {
			break
		}
		logger.Log.Warn(
			"Failed to connect to postgreSQL database, retrying...",
			zap.Int("attempt", i+1),
			zap.String("address", fmt.Sprintf("[%s:%d]", dbConfig.ConnConfig.Host, dbConfig.ConnConfig.Port)),
			zap.Error(err),
		)
		time.Sleep(d.RetryInterval * time.Second)
	}

	return pool, err
}

// NewGormConnection create a gorm postgres connection have retry
func NewGormConnection(d Connection) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < d.RetryCount; i++ {
		db, err = gorm.Open(postgres.Open(d.ConnectStr), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err == nil {
			return db, nil
		}
		logger.Log.Warn(
			"Failed to open gorm postgres, retrying...",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
		time.Sleep(d.RetryInterval * time.Second)
	}

	return nil, fmt.Errorf("open gorm postgres after %d attempts: %w", d.RetryCount, err)
}

// PostgresDSN build a libpq style dsn used by both pgx and gorm
func PostgresDSN(host string, port int, user, password, dbName string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", user, password, host, port, dbName)
}
