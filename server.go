package main

import (
	"log"

	"image-edit-mcp/common"
	"image-edit-mcp/internal/imageedit"
	"image-edit-mcp/internal/oss"
	"image-edit-mcp/internal/tools"

	"github.com/mark3labs/mcp-go/server"
)

func main() {
	// 加载配置（同时初始化日志）
	config, err := common.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dispatcher := imageedit.NewDispatcher(imageedit.ConfigFromCommon(config))
	defer dispatcher.Close()

	common.WithFields(map[string]interface{}{
		"provider":      dispatcher.Provider(),
		"openai_model":  config.OpenAIImageModel,
		"gemini_model":  config.GeminiImageModel,
		"image_format":  config.GenAIImageFormat,
		"output_format": config.GenAIOutputEncoding,
	}).Info("Server starting...")

	// url 输出需要 OSS 客户端
	var store oss.OSSIface
	if config.GenAIImageFormat == common.ImageFormatURL {
		store, err = oss.NewOSSClientFromConfig(config)
		if err != nil {
			common.Fatalf("Failed to create OSS client: %v", err)
		}
		common.WithFields(map[string]interface{}{
			"endpoint": config.OSSEndpoint,
			"bucket":   config.OSSBucket,
		}).Info("OSS client initialized")
	}

	// 创建 MCP 服务器
	s := server.NewMCPServer(
		"Image Edit MCP Server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	if err := tools.RegisterImageEditTools(s, dispatcher, tools.OutputFromConfig(config, store)); err != nil {
		common.Fatalf("Failed to register image edit tools: %v", err)
	}

	// 启动 stdio 服务器
	if err := server.ServeStdio(s); err != nil {
		common.Fatalf("Server error: %v", err)
	}
}
