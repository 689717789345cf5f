package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatYAML = `
port: "8080"
grpc_port: "50051"
mongo:
  host: mongo
  port: 27017
  user: ${TEST_MONGO_USER}
  database: chat
  retry_count: 3
redis:
  redis_db: 2
  url_cache_ttl: 1h
minio:
  bucket: uploads
  upload_expiry: 15m
directory:
  max_username_suffix: 99999
messaging:
  fan_out_limit: 16
  messages_per_second: 5
  burst: 10
`

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat_service.yaml"), []byte(chatYAML), 0644))
	t.Setenv("TEST_MONGO_USER", "chat_user")

	t.Run("expand env placeholders", func(t *testing.T) {
		cfg, err := ReadConfig[Chat]("chat_service", dir)
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, "50051", cfg.GRPCPort)
		assert.Equal(t, "chat_user", cfg.MongoSQL.User)
		assert.Equal(t, 27017, cfg.MongoSQL.Port)
		assert.Equal(t, 2, cfg.Redis.RedisDB)
		assert.Equal(t, time.Hour, cfg.Redis.URLCache)
		assert.Equal(t, 15*time.Minute, cfg.MinIO.UploadExpiry)
		assert.Equal(t, 99999, cfg.Directory.MaxUsernameSuffix)
		assert.Equal(t, 16, cfg.Messaging.FanOutLimit)
		assert.Equal(t, 5.0, cfg.Messaging.MessagesPerSecond)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadConfig[Chat]("not_there", dir)
		assert.Error(t, err)
	})
}

func TestGetPath(t *testing.T) {
	_, err := GetPath("definitely-not-a-file.txt", 2)
	assert.Error(t, err)
}

func TestRunEnv(t *testing.T) {
	prev := env
	t.Cleanup(func() { env = prev })

	env = "local"
	assert.True(t, IsLocal())
	assert.False(t, IsProduction())

	env = "production"
	assert.False(t, IsLocal())
	assert.True(t, IsProduction())
}
