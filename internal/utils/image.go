package utils

import (
	"crypto/rand"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMimeType 无法从文件名判断类型时使用
const DefaultMimeType = "image/png"

// 常见图片扩展名，避免依赖系统 mime.types 的差异
var imageMimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
}

// MimeTypeFromPath 根据文件名推断 MIME 类型（不区分大小写），默认 image/png
func MimeTypeFromPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return DefaultMimeType
	}
	if mt, ok := imageMimeTypes[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		// 去掉 "; charset=utf-8" 之类的参数
		if base, _, err := mime.ParseMediaType(mt); err == nil {
			return base
		}
		return mt
	}
	return DefaultMimeType
}

// MimeTypeFromFormat 将 image.Decode 返回的格式名转换为 MIME 类型
func MimeTypeFromFormat(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	case "tiff", "tif":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

// GetExtensionFromMimeType 根据 MIME 类型获取文件扩展名（不区分大小写）
func GetExtensionFromMimeType(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	default:
		return ".png"
	}
}

// GenerateImagePath 生成 OSS 对象目录：images/yyyy-MM-dd/
func GenerateImagePath(now time.Time) string {
	return fmt.Sprintf("images/%s/", now.Format("2006-01-02"))
}

// GenerateImageFileName 生成对象文件名：{uuid}_{timestamp}_{random}.ext
func GenerateImageFileName(now time.Time, mimeType string) string {
	randomBytes := make([]byte, 4)
	_, _ = rand.Read(randomBytes)

	return fmt.Sprintf("%s_%d_%x%s", uuid.New().String(), now.Unix(), randomBytes, GetExtensionFromMimeType(mimeType))
}

// TruncateForLog 截断长字符串用于日志，避免打印过长内容（如 base64）
func TruncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
