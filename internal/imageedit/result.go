package imageedit

import (
	"bytes"
	"fmt"
	"image"

	"image-edit-mcp/common"
	"image-edit-mcp/internal/utils"

	// imaging 会注册 jpeg/png/gif/bmp/tiff 解码器，webp 需要单独注册
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Result 解码后的编辑结果
type Result struct {
	Image    image.Image // 解码后的像素数据
	Format   string      // image.Decode 识别出的格式，如 png、jpeg、webp
	MIMEType string
	Data     []byte // 提供方返回的原始字节
}

// DecodeResult 将提供方返回的原始字节解码为图片
func DecodeResult(data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image payload", common.ErrData)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image payload: %v", common.ErrData, err)
	}

	return &Result{
		Image:    img,
		Format:   format,
		MIMEType: utils.MimeTypeFromFormat(format),
		Data:     data,
	}, nil
}

// Width 图片宽度
func (r *Result) Width() int {
	return r.Image.Bounds().Dx()
}

// Height 图片高度
func (r *Result) Height() int {
	return r.Image.Bounds().Dy()
}

// Encode 按指定格式（png、jpeg 等扩展名）重新编码；format 为空或与原格式一致时直接返回原始字节
func (r *Result) Encode(format string) ([]byte, string, error) {
	if format == "" {
		return r.Data, r.MIMEType, nil
	}

	target, err := imaging.FormatFromExtension(format)
	if err != nil {
		return nil, "", fmt.Errorf("unsupported output encoding %q: %w", format, err)
	}
	mimeType := utils.MimeTypeFromFormat(target.String())
	if mimeType == r.MIMEType {
		return r.Data, r.MIMEType, nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, r.Image, target); err != nil {
		return nil, "", fmt.Errorf("failed to encode image as %s: %w", target, err)
	}
	return buf.Bytes(), mimeType, nil
}
