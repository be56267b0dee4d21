package minio

import (
	"Mallchat/internal/api/config"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// PresignedUpload 预签名上传结果
type PresignedUpload struct {
	UploadURL   string
	DownloadURL string
	ObjectName  string
}

// Enabled 是否配置了对象存储
func Enabled() bool {
	return signClient != nil
}

// PresignedPutURL 生成直传链接，客户端上传后以 DownloadURL 作为消息里的资源地址
func PresignedPutURL(ctx context.Context, objectName string, expiry time.Duration) (*PresignedUpload, error) {
	if signClient == nil {
		return nil, fmt.Errorf("minio client is not initialized")
	}

	u, err := signClient.PresignedPutObject(ctx, MainBucket, objectName, expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &PresignedUpload{
		UploadURL:   u.String(),
		DownloadURL: GetPublicURL(objectName),
		ObjectName:  objectName,
	}, nil
}

// GetPublicURL 获取文件的公共访问URL
func GetPublicURL(objectName string) string {
	return publicPrefix() + objectName
}

// IsManagedURL 资源地址必须指向本系统的存储桶
func IsManagedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	prefix := publicPrefix()
	return strings.HasPrefix(raw, prefix) && len(raw) > len(prefix)
}

func publicPrefix() string {
	cfg := config.Cfg.MinIO
	protocol := "http"
	if cfg.ExternalUseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/", protocol, cfg.ExternalEndpoint, cfg.MainBucket)
}
