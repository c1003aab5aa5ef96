package oss

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"image-edit-mcp/common"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// 预签名请求与上传的超时时间
const uploadTimeout = 60 * time.Second

// S3Client S3 兼容的 OSS 客户端实现
type S3Client struct {
	client     *s3.Client
	httpClient *http.Client
	endpoint   string // 带协议的服务地址，为空时使用 AWS 默认地址
	region     string
	bucket     string
	pathStyle  bool
	urlExpires time.Duration

	// 阿里云 OSS 不支持 SDK PutObject 的 aws-chunked 编码，改用预签名 PUT 上传
	presignedPut bool
}

// S3Config S3 客户端配置
type S3Config struct {
	Endpoint  string // OSS 服务端点，例如：oss-cn-hangzhou.aliyuncs.com 或 http://127.0.0.1:9000
	Region    string // 区域，例如：us-east-1 或 cn-hangzhou
	AccessKey string // Access Key ID，为空时使用 AWS 默认凭证链
	SecretKey string // Secret Access Key
	Bucket    string
	PathStyle bool

	// 大于 0 时 UploadFileWithURL 返回带签名的 URL
	URLExpires time.Duration
}

// NewS3Client 创建新的 S3 客户端
func NewS3Client(cfg S3Config) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: OSS bucket is required", common.ErrConfiguration)
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := endpointURL(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &S3Client{
		client:       client,
		httpClient:   &http.Client{Timeout: uploadTimeout},
		endpoint:     endpoint,
		region:       cfg.Region,
		bucket:       cfg.Bucket,
		pathStyle:    cfg.PathStyle,
		urlExpires:   cfg.URLExpires,
		presignedPut: strings.Contains(endpoint, ".aliyuncs.com"),
	}, nil
}

// endpointURL 未指定协议时默认使用 https
func endpointURL(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "https://" + endpoint
}

// UploadFile 上传文件到 OSS
func (c *S3Client) UploadFile(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	fields := map[string]interface{}{
		"bucket": c.bucket,
		"key":    key,
	}
	common.WithFields(fields).WithField("content_type", contentType).Debug("Starting file upload to OSS")

	body, err := io.ReadAll(reader)
	if err != nil {
		common.WithError(err).WithFields(fields).Error("Failed to read file for upload")
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	if c.presignedPut {
		err = c.putPresigned(ctx, key, body, contentType)
	} else {
		_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(c.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			err = fmt.Errorf("failed to upload file: %w", err)
		}
	}
	if err != nil {
		common.WithError(err).WithFields(fields).WithField("size", len(body)).Error("Failed to upload file to OSS")
		return "", err
	}

	filePath := fmt.Sprintf("%s/%s", c.bucket, key)
	common.WithFields(fields).WithField("size", len(body)).Info("File uploaded to OSS successfully")
	return filePath, nil
}

// putPresigned 使用预签名 PUT URL 上传（标准 Content-Length，无 aws-chunked）
func (c *S3Client) putPresigned(ctx context.Context, key string, body []byte, contentType string) error {
	reqCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	presigned, err := s3.NewPresignClient(c.client).PresignPutObject(reqCtx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to presign PUT URL: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPut, presigned.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	for k, v := range presigned.SignedHeader {
		for _, hv := range v {
			req.Header.Add(k, hv)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload file via presigned PUT: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("OSS upload failed: status code %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// GetSignedURL 获取文件的带签名 URL
func (c *S3Client) GetSignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	request, err := s3.NewPresignClient(c.client).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		common.WithError(err).WithField("key", key).Error("Failed to generate signed URL")
		return "", fmt.Errorf("failed to presign URL: %w", err)
	}
	return request.URL, nil
}

// UploadFileWithURL 上传文件并返回 URL；配置了过期时间时返回带签名的 URL
func (c *S3Client) UploadFileWithURL(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if _, err := c.UploadFile(ctx, key, reader, contentType); err != nil {
		return "", err
	}

	if c.urlExpires > 0 {
		return c.GetSignedURL(ctx, key, c.urlExpires)
	}
	return c.buildObjectURL(key), nil
}

// buildObjectURL 构造对象的公开 URL（不带签名）
func (c *S3Client) buildObjectURL(key string) string {
	if c.endpoint != "" {
		scheme, host, _ := strings.Cut(c.endpoint, "://")
		if c.pathStyle {
			return fmt.Sprintf("%s://%s/%s/%s", scheme, host, c.bucket, key)
		}
		return fmt.Sprintf("%s://%s.%s/%s", scheme, c.bucket, host, key)
	}

	if c.region != "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", c.bucket, key)
}
