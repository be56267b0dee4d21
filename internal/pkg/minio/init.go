package minio

import (
	"Mallchat/internal/api/config"
	"context"
	"fmt"
	log "log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	// Client 全局 MinIO 客户端实例，走内网地址
	Client *minio.Client
	// signClient 按外网地址签名，生成给客户端使用的预签名链接
	signClient *minio.Client
	// MainBucket 主要存储桶
	MainBucket string
)

const defaultRegion = "us-east-1"

// Init 初始化 MinIO 客户端
func Init() error {
	cfg := config.Cfg.MinIO

	var endpoint string
	var useSSL bool
	if cfg.InternalEndpoint != "" {
		endpoint = cfg.InternalEndpoint
		useSSL = cfg.InternalUseSSL
	} else {
		endpoint = cfg.ExternalEndpoint
		useSSL = cfg.ExternalUseSSL
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: defaultRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize minio client: %w", err)
	}

	signer, err := minio.New(cfg.ExternalEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.ExternalUseSSL,
		Region: defaultRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize minio signer: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.MainBucket)
	if err != nil {
		return fmt.Errorf("failed to connect to minio server: %w", err)
	}
	if !exists {
		if err = client.MakeBucket(ctx, cfg.MainBucket, minio.MakeBucketOptions{Region: defaultRegion}); err != nil {
			return fmt.Errorf("创建存储桶失败: %w", err)
		}
		log.Info("已自动创建存储桶", "bucket", cfg.MainBucket)
	}

	Client = client
	signClient = signer
	MainBucket = cfg.MainBucket
	return nil
}
