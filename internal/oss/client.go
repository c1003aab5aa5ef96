package oss

import (
	"time"

	"image-edit-mcp/common"
)

// NewOSSClientFromConfig 从配置创建 OSS 客户端
func NewOSSClientFromConfig(cfg *common.Config) (OSSIface, error) {
	return NewS3Client(S3Config{
		Endpoint:   cfg.OSSEndpoint,
		Region:     cfg.OSSRegion,
		AccessKey:  cfg.OSSAccessKey,
		SecretKey:  cfg.OSSSecretKey,
		Bucket:     cfg.OSSBucket,
		PathStyle:  cfg.OSSPathStyle,
		URLExpires: time.Duration(cfg.OSSURLExpiresSeconds) * time.Second,
	})
}
