package gemini

import "context"

// Editor Gemini 图片编辑能力；size/quality 对 Gemini 无意义，因此不在签名中
type Editor interface {
	EditImage(ctx context.Context, imagePath string, prompt string) ([]byte, error)
}

var _ Editor = (*Client)(nil)
