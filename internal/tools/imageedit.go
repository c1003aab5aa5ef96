package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"image-edit-mcp/common"
	"image-edit-mcp/internal/imageedit"
	"image-edit-mcp/internal/oss"
	"image-edit-mcp/internal/utils"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// EditImageToolName MCP 工具名称
const EditImageToolName = "edit_image"

// Output 工具结果的输出方式
type Output struct {
	Format   string       // common.ImageFormatBase64 或 common.ImageFormatURL
	Encoding string       // 重新编码的格式，为空时保留提供方原始字节
	Store    oss.OSSIface // Format 为 url 时必填

	// 生成对象路径时使用，为空时取 time.Now
	Now func() time.Time
}

// OutputFromConfig 根据配置构建输出方式；store 仅在 url 格式下使用
func OutputFromConfig(cfg *common.Config, store oss.OSSIface) Output {
	return Output{
		Format:   cfg.GenAIImageFormat,
		Encoding: cfg.GenAIOutputEncoding,
		Store:    store,
	}
}

// RegisterImageEditTools 注册图片编辑的 MCP tool
func RegisterImageEditTools(s *server.MCPServer, editor imageedit.Editor, output Output) error {
	if output.Format == common.ImageFormatURL && output.Store == nil {
		return fmt.Errorf("%w: OSS client is required for %s output", common.ErrConfiguration, common.ImageFormatURL)
	}
	if output.Now == nil {
		output.Now = time.Now
	}

	editImageTool := mcp.NewTool(
		EditImageToolName,
		mcp.WithDescription("Edit a local image with the configured provider (OpenAI or Gemini) following a text prompt. Returns the edited image as base64 image content or as an uploaded URL."),
		mcp.WithString("image_path",
			mcp.Required(),
			mcp.Description("Path of the local image file to edit"),
		),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("Text prompt describing how to edit the image"),
		),
		mcp.WithString("size",
			mcp.Description("Output size for OpenAI, e.g. 1024x1024, 1536x1024, 1024x1536 (default 1024x1536). Ignored by Gemini."),
		),
		mcp.WithString("quality",
			mcp.Description("Output quality for OpenAI: low, medium, high (default high). Ignored by Gemini."),
		),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	h := &editImageHandler{editor: editor, output: output}
	s.AddTool(editImageTool, h.handle)
	return nil
}

type editImageHandler struct {
	editor imageedit.Editor
	output Output
}

func (h *editImageHandler) handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	imagePath, err := req.RequireString("image_path")
	if err != nil || strings.TrimSpace(imagePath) == "" {
		return mcp.NewToolResultError("image_path parameter is required"), nil
	}
	prompt, err := req.RequireString("prompt")
	if err != nil || strings.TrimSpace(prompt) == "" {
		return mcp.NewToolResultError("prompt parameter is required"), nil
	}

	result, err := h.editor.EditImage(ctx, imageedit.Request{
		ImagePath: imagePath,
		Prompt:    prompt,
		Size:      req.GetString("size", ""),
		Quality:   req.GetString("quality", ""),
	})
	if err != nil {
		kind := common.ErrorKind(err)
		common.WithError(err).WithFields(map[string]interface{}{
			"image_path": imagePath,
			"prompt":     utils.TruncateForLog(prompt, 80),
			"kind":       kind,
		}).Error("Image edit failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to edit image (%s error): %v", kind, err)), nil
	}

	data, mimeType, err := result.Encode(h.output.Encoding)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode image: %v", err)), nil
	}
	summary := fmt.Sprintf("%dx%d %s", result.Width(), result.Height(), strings.TrimPrefix(mimeType, "image/"))

	if h.output.Format != common.ImageFormatURL {
		common.WithField("summary", summary).Info("Returning edited image as base64")
		return mcp.NewToolResultImage("Edited image: "+summary, base64.StdEncoding.EncodeToString(data), mimeType), nil
	}

	now := h.output.Now()
	key := utils.GenerateImagePath(now) + utils.GenerateImageFileName(now, mimeType)
	imageURL, err := h.output.Store.UploadFileWithURL(ctx, key, bytes.NewReader(data), mimeType)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to upload edited image: %v", err)), nil
	}

	common.WithFields(map[string]interface{}{
		"key":     key,
		"summary": summary,
	}).Info("Edited image uploaded")
	return mcp.NewToolResultText(fmt.Sprintf("Edited image (%s): %s", summary, imageURL)), nil
}
