package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"image-edit-mcp/common"
	"image-edit-mcp/internal/utils"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultModel 默认的图片编辑模型
const DefaultModel = "gpt-image-1"

const providerName = "openai"

// Client OpenAI 图片编辑客户端
type Client struct {
	client openai.Client
	model  string
}

// Config OpenAI 客户端配置
type Config struct {
	APIKey    string // API Key
	BaseURL   string // 自定义 Base URL（兼容 OpenAI 协议的网关），为空时使用官方地址
	ModelName string // 模型名称，为空时使用 DefaultModel
}

// NewClient 创建新的 OpenAI 客户端
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required", common.ErrCredential)
	}

	// SDK 默认会重试两次，这里关闭，失败直接交给调用方
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.ModelName
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Close 关闭客户端（openai.Client 不持有需要释放的资源）
func (c *Client) Close() error {
	return nil
}

// EditImage 图片编辑：上传本地图片和提示词，返回第一张结果图片的原始字节
func (c *Client) EditImage(ctx context.Context, imagePath, prompt, size, quality string) ([]byte, error) {
	common.WithFields(map[string]interface{}{
		"model":      c.model,
		"image_path": imagePath,
		"size":       size,
		"quality":    quality,
	}).Debug("Starting OpenAI image editing")

	resp, err := c.edit(ctx, imagePath, prompt, size, quality)
	if err != nil {
		return nil, err
	}

	// 上游约定至少返回一张图片，这里仍显式校验，空列表按数据错误处理
	if resp == nil || len(resp.Data) == 0 {
		common.WithField("model", c.model).Error("OpenAI returned no images")
		return nil, fmt.Errorf("%w: no image returned from OpenAI", common.ErrData)
	}
	if resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("%w: OpenAI result has no b64_json payload", common.ErrData)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode OpenAI b64_json: %v", common.ErrData, err)
	}

	common.WithFields(map[string]interface{}{
		"model": c.model,
		"size":  len(data),
	}).Debug("OpenAI image edited successfully")

	return data, nil
}

// edit 文件句柄只在请求期间持有，返回时无论成功失败都会关闭
func (c *Client) edit(ctx context.Context, imagePath, prompt, size, quality string) (*openai.ImagesResponse, error) {
	imageFile, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", imagePath, err)
	}
	defer imageFile.Close()

	// 未声明 Content-Type 时 SDK 会按 application/octet-stream 上传，接口会拒绝
	upload := openai.File(imageFile, filepath.Base(imagePath), utils.MimeTypeFromPath(imagePath))

	resp, err := c.client.Images.Edit(ctx, openai.ImageEditParams{
		Image:   openai.ImageEditParamsImageUnion{OfFile: upload},
		Prompt:  prompt,
		Model:   openai.ImageModel(c.model),
		Quality: openai.ImageEditParamsQuality(quality),
		Size:    openai.ImageEditParamsSize(size),
	})
	if err != nil {
		common.WithError(err).WithFields(map[string]interface{}{
			"model":      c.model,
			"image_path": imagePath,
		}).Error("Failed to edit image with OpenAI")
		return nil, newProviderError(err)
	}
	return resp, nil
}

func newProviderError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return common.NewProviderError(providerName, apiErr.StatusCode, err)
	}
	return common.NewProviderError(providerName, 0, err)
}
