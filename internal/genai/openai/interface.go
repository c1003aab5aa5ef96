package openai

import "context"

// Editor OpenAI 图片编辑能力
type Editor interface {
	EditImage(ctx context.Context, imagePath, prompt, size, quality string) ([]byte, error)
}

var _ Editor = (*Client)(nil)
