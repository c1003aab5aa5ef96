package oss

import (
	"context"
	"io"
	"time"
)

// OSSIface 编辑结果的对象存储接口，bucket 在创建客户端时确定
type OSSIface interface {
	// UploadFile 上传对象，返回 bucket/key
	UploadFile(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)

	// GetSignedURL 生成对象的临时访问 URL
	GetSignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)

	// UploadFileWithURL 上传对象并返回可访问的 URL
	UploadFileWithURL(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
}

var _ OSSIface = (*S3Client)(nil)
