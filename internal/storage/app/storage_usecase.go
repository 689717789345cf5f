package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat_platform/internal/storage/domain"
	"chat_platform/pkg/database"
	"chat_platform/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BlobStore object storage used by the usecase, *database.MinIOClient satisfies it
type BlobStore interface {
	PresignPutURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	ObjectURL(ctx context.Context, objectName string) (string, error)
}

// StorageUseCase upload tickets and durable object urls
type StorageUseCase interface {
	GenerateUploadURL(ctx context.Context) (*domain.UploadTicket, error)
	// GetURL returns "" when nothing was uploaded under storageID
	GetURL(ctx context.Context, storageID string) (string, error)
}

type storageUseCase struct {
	blob         BlobStore
	cache        database.RedisRepository[string]
	uploadExpiry time.Duration
	cacheTTL     time.Duration
}

// NewStorageUseCase cache may be nil, zero durations fall back to the defaults
func NewStorageUseCase(blob BlobStore, cache database.RedisRepository[string], uploadExpiry, cacheTTL time.Duration) StorageUseCase {
	if uploadExpiry <= 0 {
		uploadExpiry = domain.DefaultUploadExpiry
	}
	if cacheTTL <= 0 {
		cacheTTL = domain.DefaultURLCacheTTL
	}
	return &storageUseCase{
		blob:         blob,
		cache:        cache,
		uploadExpiry: uploadExpiry,
		cacheTTL:     cacheTTL,
	}
}

func (s *storageUseCase) GenerateUploadURL(ctx context.Context) (*domain.UploadTicket, error) {
	id := uuid.New().String()
	u, err := s.blob.PresignPutURL(ctx, id, s.uploadExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate upload url: %w", err)
	}
	logger.Log.Debug("upload url issued", zap.String("storage_id", id))
	return &domain.UploadTicket{StorageID: id, UploadURL: u}, nil
}

func (s *storageUseCase) GetURL(ctx context.Context, storageID string) (string, error) {
	if storageID == "" {
		return "", nil
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, storageID)
		if err == nil && cached != "" {
			return cached, nil
		}
		if err != nil && !errors.Is(err, database.ErrCacheMiss) {
			// cache 失敗不影響主流程
			logger.Log.Warn("url cache get", zap.String("storage_id", storageID), zap.Error(err))
		}
	}

	u, err := s.blob.ObjectURL(ctx, storageID)
	if err != nil {
		return "", fmt.Errorf("resolve object %s: %w", storageID, err)
	}
	if u == "" {
		return "", nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, storageID, u, s.cacheTTL); err != nil {
			logger.Log.Warn("url cache set", zap.String("storage_id", storageID), zap.Error(err))
		}
	}
	return u, nil
}
