package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNoPublicURL object urls are persisted in messages, so a public base is required
var ErrNoPublicURL = errors.New("minio: public_url is required")

// MinIOClient definition minio client
type MinIOClient struct {
	Client     *minio.Client
	BucketName string
	PublicURL  string
}

// NewMinIOConnection create a new minio connection have retry
func NewMinIOConnection(d MinIOConnection) (*MinIOClient, error) {
	if strings.TrimSpace(d.PublicURL) == "" {
		return nil, ErrNoPublicURL
	}
	var mc *MinIOClient
	var err error

	for i := 1; i <= d.RetryCount; i++ {
		mc, err = NewMinioClient(d.Endpoint, d.User, d.Password, d.BucketName, d.UseSSL)
		if err == nil {
			mc.PublicURL = strings.TrimRight(d.PublicURL, "/")
			log.Printf("minIO[%s] connected (attempt %d)", d.Endpoint, i)
			return mc, nil
		}

		log.Printf("minIO[%s] connect failed (attempt %d/%d): %v", d.Endpoint, i, d.RetryCount, err)
		time.Sleep(d.RetryInterval * time.Second)
	}

	return mc, err
}

// NewMinioClient create a new minio, the bucket is created when missing
func NewMinioClient(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOClient, error) {
	minioClient, err := minio.New(endpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
			Secure: useSSL,
		})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	ctx := context.Background()
	exists, err := minioClient.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket [%s]: %w", bucketName, err)
	}

	if !exists {
		if err = minioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket [%s]: %w", bucketName, err)
		}
		log.Printf("Bucket [%s] created", bucketName)
	}

	return &MinIOClient{
		Client:     minioClient,
		BucketName: bucketName,
	}, nil
}

// PresignPutURL 生成一個 Presigned URL 讓 client 直接上傳 object
func (m *MinIOClient) PresignPutURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	u, err := m.Client.PresignedPutObject(ctx, m.BucketName, objectName, expiry)
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", objectName, err)
	}
	return u.String(), nil
}

// Exists report whether objectName has been uploaded
func (m *MinIOClient) Exists(ctx context.Context, objectName string) (bool, error) {
	_, err := m.Client.StatObject(ctx, m.BucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", objectName, err)
	}
	return true, nil
}

// ObjectURL durable url of an uploaded object, empty when the object does not exist
func (m *MinIOClient) ObjectURL(ctx context.Context, objectName string) (string, error) {
	if m.PublicURL == "" {
		return "", ErrNoPublicURL
	}
	ok, err := m.Exists(ctx, objectName)
	if err != nil || !ok {
		return "", err
	}
	return publicObjectURL(m.PublicURL, m.BucketName, objectName), nil
}

// publicObjectURL <base>/<bucket>/<key>, never expires
func publicObjectURL(base, bucket, objectName string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), bucket, url.PathEscape(objectName))
}
