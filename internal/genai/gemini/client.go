package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"

	"image-edit-mcp/common"
	"image-edit-mcp/internal/utils"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"
)

// DefaultModel 默认的图片编辑模型
const DefaultModel = "gemini-2.5-flash-image-preview"

const providerName = "gemini"

// contentStreamer 对应 genai.Models 的流式生成接口
type contentStreamer interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Client Gemini 图片编辑客户端
type Client struct {
	models contentStreamer
	model  string
}

// Config Gemini 客户端配置
type Config struct {
	APIKey    string // API Key
	BaseURL   string // 自定义 Base URL，如果为空则使用默认值
	ModelName string // 模型名称，为空时使用 DefaultModel
}

// NewClient 创建新的 Gemini 客户端
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", common.ErrCredential)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create genai client: %v", common.ErrConfiguration, err)
	}

	return newClient(client.Models, cfg.ModelName), nil
}

func newClient(models contentStreamer, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		models: models,
		model:  model,
	}
}

// Close 关闭客户端（genai.Client 不需要显式关闭）
func (c *Client) Close() error {
	return nil
}

// EditImage 图片编辑：读取本地图片，连同提示词发给 Gemini，返回首个内联图片的原始字节
func (c *Client) EditImage(ctx context.Context, imagePath string, prompt string) ([]byte, error) {
	mimeType := utils.MimeTypeFromPath(imagePath)
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", imagePath, err)
	}

	common.WithFields(map[string]interface{}{
		"model":      c.model,
		"image_path": imagePath,
		"mime_type":  mimeType,
		"size":       len(imageData),
	}).Debug("Starting Gemini image editing")

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(imageData, mimeType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityImage), string(genai.ModalityText)},
	}

	// 流式迭代是阻塞调用，放到独立 goroutine 中执行，调用方只在 Wait 处等待结果
	var edited []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		edited, err = c.firstInlineImage(gctx, contents, config)
		return err
	})
	if err := g.Wait(); err != nil {
		common.WithError(err).WithFields(map[string]interface{}{
			"model":      c.model,
			"image_path": imagePath,
		}).Error("Failed to edit image with Gemini")
		return nil, err
	}

	common.WithFields(map[string]interface{}{
		"model": c.model,
		"size":  len(edited),
	}).Debug("Gemini image edited successfully")

	return edited, nil
}

// firstInlineImage 按到达顺序扫描响应块，找到第一个非空内联数据后立即停止消费
func (c *Client) firstInlineImage(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) ([]byte, error) {
	for chunk, err := range c.models.GenerateContentStream(ctx, c.model, contents, config) {
		if err != nil {
			return nil, newProviderError(err)
		}
		if data := inlineImageData(chunk); len(data) > 0 {
			return data, nil
		}
	}
	return nil, fmt.Errorf("%w: no image data returned from Gemini", common.ErrData)
}

// inlineImageData 只检查第一个候选结果
func inlineImageData(chunk *genai.GenerateContentResponse) []byte {
	if chunk == nil || len(chunk.Candidates) == 0 {
		return nil
	}
	candidate := chunk.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return nil
	}
	for _, part := range candidate.Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data
		}
	}
	return nil
}

func newProviderError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return common.NewProviderError(providerName, apiErr.Code, err)
	}
	return common.NewProviderError(providerName, 0, err)
}
