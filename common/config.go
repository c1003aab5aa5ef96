package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 图片输出格式
const (
	ImageFormatBase64 = "base64"
	ImageFormatURL    = "url"
)

// Config 应用配置结构
type Config struct {
	// 图片编辑提供方: gemini 或 openai（不区分大小写，其余值按 openai 处理）
	GenAIProvider string

	// 各提供方的自定义地址与模型；API Key 在首次调用时从环境变量读取，这里不保存
	OpenAIBaseURL    string
	OpenAIImageModel string
	GeminiBaseURL    string
	GeminiImageModel string

	// 单次编辑请求超时（秒），0 表示不设置
	GenAITimeoutSeconds int

	// 图片输出格式: base64 或 url
	GenAIImageFormat string
	// 输出前重新编码的格式（png/jpeg/gif/bmp/tiff），为空时保留提供方原始字节
	GenAIOutputEncoding string

	// OSS 配置（GenAIImageFormat 为 url 时使用）
	OSSEndpoint  string
	OSSRegion    string
	OSSAccessKey string
	OSSSecretKey string
	OSSBucket    string

	OSSPathStyle         bool // 使用 path-style 访问（MinIO 等自建服务需要）
	OSSURLExpiresSeconds int  // 大于 0 时返回带签名的临时 URL（秒），否则返回公开 URL

	// 日志配置
	LogLevel  string // 日志级别: debug, info, warn, error
	LogFormat string // 日志格式: json, text
	LogOutput string // 输出位置: stdout, stderr, file
	LogFile   string // 日志文件路径（当 LogOutput 为 file 时）
}

// LoadConfig 从 .env 文件和环境变量加载配置，并初始化日志
func LoadConfig() (*Config, error) {
	// .env 中的 OPENAI_API_KEY / GEMINI_API_KEY 也会被载入进程环境
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: .env file not found, using environment variables")
	}

	config := configFromEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logConfig := &LogConfig{
		Level:    config.LogLevel,
		Format:   config.LogFormat,
		Output:   config.LogOutput,
		FilePath: config.LogFile,
	}
	if err := InitLogger(logConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return config, nil
}

func configFromEnv() *Config {
	return &Config{
		GenAIProvider:       getEnv("GENAI_PROVIDER", "gemini"),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
		OpenAIImageModel:    getEnv("OPENAI_IMAGE_MODEL", "gpt-image-1"),
		GeminiBaseURL:       getEnv("GEMINI_BASE_URL", ""),
		GeminiImageModel:    getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image-preview"),
		GenAITimeoutSeconds: getEnvInt("GENAI_TIMEOUT_SECONDS", 0),
		GenAIImageFormat:    strings.ToLower(getEnv("GENAI_IMAGE_FORMAT", ImageFormatBase64)),
		GenAIOutputEncoding: strings.ToLower(getEnv("GENAI_OUTPUT_ENCODING", "")),
		// OSS 配置
		OSSEndpoint:          getEnv("OSS_ENDPOINT", ""),
		OSSRegion:            getEnv("OSS_REGION", "us-east-1"),
		OSSAccessKey:         getEnv("OSS_ACCESS_KEY", ""),
		OSSSecretKey:         getEnv("OSS_SECRET_KEY", ""),
		OSSBucket:            getEnv("OSS_BUCKET", ""),
		OSSPathStyle:         getEnvBool("OSS_PATH_STYLE", false),
		OSSURLExpiresSeconds: getEnvInt("OSS_URL_EXPIRES_SECONDS", 0),
		// 日志配置
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogOutput: getEnv("LOG_OUTPUT", "stderr"),
		LogFile:   getEnv("LOG_FILE", ""),
	}
}

// Validate 校验与提供方无关的配置项
func (c *Config) Validate() error {
	switch c.GenAIImageFormat {
	case ImageFormatBase64:
	case ImageFormatURL:
		if c.OSSBucket == "" {
			return fmt.Errorf("OSS_BUCKET is required when GENAI_IMAGE_FORMAT=%s", ImageFormatURL)
		}
	default:
		return fmt.Errorf("unsupported GENAI_IMAGE_FORMAT: %s", c.GenAIImageFormat)
	}

	switch c.GenAIOutputEncoding {
	case "", "png", "jpg", "jpeg", "gif", "bmp", "tif", "tiff":
	default:
		return fmt.Errorf("unsupported GENAI_OUTPUT_ENCODING: %s", c.GenAIOutputEncoding)
	}

	if c.GenAITimeoutSeconds < 0 {
		return fmt.Errorf("GENAI_TIMEOUT_SECONDS must not be negative, got %d", c.GenAITimeoutSeconds)
	}
	if c.OSSURLExpiresSeconds < 0 {
		return fmt.Errorf("OSS_URL_EXPIRES_SECONDS must not be negative, got %d", c.OSSURLExpiresSeconds)
	}
	return nil
}

// Timeout 返回单次请求超时时间
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.GenAITimeoutSeconds) * time.Second
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 获取整型环境变量，解析失败时返回默认值
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}
