package imageedit

import "context"

// Editor 根据本地图片和提示词生成编辑后的图片
type Editor interface {
	EditImage(ctx context.Context, req Request) (*Result, error)
}

var _ Editor = (*Dispatcher)(nil)
