package service

import (
	"Mallchat/internal/api/dto"
	"Mallchat/internal/pkg/minio"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
)

// 上传场景
const (
	OssSceneChat   = 1
	OssSceneAvatar = 2
)

var ossSceneDir = map[int]string{
	OssSceneChat:   "chat",
	OssSceneAvatar: "avatar",
}

type OssService interface {
	GetUploadURL(ctx context.Context, uid uint64, req *dto.UploadURLReq) (*dto.UploadURLResp, error)
}

type OssServiceImpl struct {
	expiry  time.Duration
	enabled func() bool
	presign func(ctx context.Context, objectName string, expiry time.Duration) (*minio.PresignedUpload, error)
	now     func() time.Time
}

func NewOssService(expiry time.Duration) OssService {
	return &OssServiceImpl{
		expiry:  expiry,
		enabled: minio.Enabled,
		presign: minio.PresignedPutURL,
		now:     time.Now,
	}
}

// GetUploadURL 对象名：场景/年月/uid/随机串_文件名
func (s *OssServiceImpl) GetUploadURL(ctx context.Context, uid uint64, req *dto.UploadURLReq) (*dto.UploadURLResp, error) {
	if !s.enabled() {
		return nil, ErrOSSDisabled
	}
	dir, ok := ossSceneDir[req.Scene]
	if !ok || req.FileName == "" {
		return nil, ErrParamInvalid
	}
	name := path.Base(req.FileName)
	objectName := fmt.Sprintf("%s/%s/%d/%s_%s", dir, s.now().Format("200601"), uid, uuid.NewString(), name)
	upload, err := s.presign(ctx, objectName, s.expiry)
	if err != nil {
		return nil, err
	}
	return &dto.UploadURLResp{UploadURL: upload.UploadURL, DownloadURL: upload.DownloadURL}, nil
}
