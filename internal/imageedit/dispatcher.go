package imageedit

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"image-edit-mcp/common"
	"image-edit-mcp/internal/genai/gemini"
	"image-edit-mcp/internal/genai/openai"
)

// Provider 图片编辑提供方
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// 请求未指定时使用的默认尺寸与质量（仅 OpenAI 使用）
const (
	DefaultSize    = "1024x1536"
	DefaultQuality = "high"
)

// 首次使用提供方时读取的 API Key 环境变量
const (
	OpenAIKeyEnv = "OPENAI_API_KEY"
	GeminiKeyEnv = "GEMINI_API_KEY"
)

// ParseProvider 不区分大小写；除 gemini 以外的取值都按 openai 处理
func ParseProvider(name string) Provider {
	if strings.ToLower(name) == string(ProviderGemini) {
		return ProviderGemini
	}
	return ProviderOpenAI
}

// Request 一次图片编辑请求
type Request struct {
	ImagePath string // 本地图片路径
	Prompt    string
	Size      string // 仅 OpenAI 使用，为空时取 DefaultSize
	Quality   string // 仅 OpenAI 使用，为空时取 DefaultQuality
}

// Config 分发器配置
type Config struct {
	Provider string

	OpenAIBaseURL string
	OpenAIModel   string
	GeminiBaseURL string
	GeminiModel   string

	// 单次请求超时，0 表示不设置
	Timeout time.Duration

	// LookupEnv 读取 API Key，为空时使用 os.LookupEnv
	LookupEnv func(key string) (string, bool)
}

// ConfigFromCommon 从应用配置构建分发器配置
func ConfigFromCommon(cfg *common.Config) Config {
	return Config{
		Provider:      cfg.GenAIProvider,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIImageModel,
		GeminiBaseURL: cfg.GeminiBaseURL,
		GeminiModel:   cfg.GeminiImageModel,
		Timeout:       cfg.Timeout(),
	}
}

// Dispatcher 将编辑请求转发给构造时选定的提供方，并把返回的字节解码为图片。
//
// 提供方客户端在首次使用时创建并缓存，之后所有调用复用同一个实例；
// 创建过程由互斥锁保护，并发的首次调用也只会创建一次。
type Dispatcher struct {
	provider  Provider
	cfg       Config
	lookupEnv func(key string) (string, bool)
	route     func(ctx context.Context, req Request) ([]byte, error)

	mu           sync.Mutex
	openaiClient openai.Editor
	geminiClient gemini.Editor

	newOpenAI func(cfg openai.Config) (openai.Editor, error)
	newGemini func(cfg gemini.Config) (gemini.Editor, error)
}

// NewDispatcher 创建分发器；不读取 API Key，也不创建任何客户端
func NewDispatcher(cfg Config) *Dispatcher {
	d := &Dispatcher{
		provider:  ParseProvider(cfg.Provider),
		cfg:       cfg,
		lookupEnv: cfg.LookupEnv,
		newOpenAI: func(cfg openai.Config) (openai.Editor, error) {
			return openai.NewClient(cfg)
		},
		newGemini: func(cfg gemini.Config) (gemini.Editor, error) {
			return gemini.NewClient(cfg)
		},
	}
	if d.lookupEnv == nil {
		d.lookupEnv = os.LookupEnv
	}

	switch d.provider {
	case ProviderGemini:
		d.route = d.editWithGemini
	default:
		d.route = d.editWithOpenAI
	}
	return d
}

// Provider 返回构造时确定的提供方
func (d *Dispatcher) Provider() Provider {
	return d.provider
}

// EditImage 使用选定的提供方编辑图片，返回解码后的结果
func (d *Dispatcher) EditImage(ctx context.Context, req Request) (*Result, error) {
	if req.Size == "" {
		req.Size = DefaultSize
	}
	if req.Quality == "" {
		req.Quality = DefaultQuality
	}

	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	common.WithFields(map[string]interface{}{
		"provider":   d.provider,
		"image_path": req.ImagePath,
	}).Debug("Routing image edit request")

	data, err := d.route(ctx, req)
	if err != nil {
		return nil, err
	}
	return DecodeResult(data)
}

func (d *Dispatcher) editWithOpenAI(ctx context.Context, req Request) ([]byte, error) {
	client, err := d.openAIEditor()
	if err != nil {
		return nil, err
	}
	return client.EditImage(ctx, req.ImagePath, req.Prompt, req.Size, req.Quality)
}

func (d *Dispatcher) editWithGemini(ctx context.Context, req Request) ([]byte, error) {
	client, err := d.geminiEditor()
	if err != nil {
		return nil, err
	}
	return client.EditImage(ctx, req.ImagePath, req.Prompt)
}

func (d *Dispatcher) openAIEditor() (openai.Editor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.openaiClient != nil {
		return d.openaiClient, nil
	}

	apiKey, err := d.apiKey(OpenAIKeyEnv)
	if err != nil {
		return nil, err
	}
	client, err := d.newOpenAI(openai.Config{
		APIKey:    apiKey,
		BaseURL:   d.cfg.OpenAIBaseURL,
		ModelName: d.cfg.OpenAIModel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	common.WithField("model", d.cfg.OpenAIModel).Info("OpenAI client initialized")
	d.openaiClient = client
	return client, nil
}

func (d *Dispatcher) geminiEditor() (gemini.Editor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.geminiClient != nil {
		return d.geminiClient, nil
	}

	apiKey, err := d.apiKey(GeminiKeyEnv)
	if err != nil {
		return nil, err
	}
	client, err := d.newGemini(gemini.Config{
		APIKey:    apiKey,
		BaseURL:   d.cfg.GeminiBaseURL,
		ModelName: d.cfg.GeminiModel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	common.WithField("model", d.cfg.GeminiModel).Info("Gemini client initialized")
	d.geminiClient = client
	return client, nil
}

func (d *Dispatcher) apiKey(env string) (string, error) {
	value, _ := d.lookupEnv(env)
	if value == "" {
		return "", fmt.Errorf("%w: %s is not set", common.ErrCredential, env)
	}
	return value, nil
}

// Close 关闭已创建的客户端
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, client := range []interface{}{d.openaiClient, d.geminiClient} {
		if closer, ok := client.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}
