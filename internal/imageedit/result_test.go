package imageedit

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"image-edit-mcp/common"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func TestDecodeResult(t *testing.T) {
	data := encodePNG(t, 5, 4)

	res, err := DecodeResult(data)

	require.NoError(t, err)
	require.Equal(t, "png", res.Format)
	require.Equal(t, "image/png", res.MIMEType)
	require.Equal(t, 5, res.Width())
	require.Equal(t, 4, res.Height())
	require.Equal(t, data, res.Data)
}

func TestDecodeResult_JPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 6)), nil))

	res, err := DecodeResult(buf.Bytes())

	require.NoError(t, err)
	require.Equal(t, "jpeg", res.Format)
	require.Equal(t, "image/jpeg", res.MIMEType)
	require.Equal(t, 8, res.Width())
}

func TestDecodeResult_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "nil", data: nil},
		{name: "empty", data: []byte{}},
		{name: "garbage", data: []byte("not an image")},
		{name: "truncated png", data: encodePNG(t, 4, 4)[:20]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeResult(tt.data)
			require.ErrorIs(t, err, common.ErrData)
		})
	}
}

func TestResult_Encode(t *testing.T) {
	data := encodePNG(t, 6, 3)
	res, err := DecodeResult(data)
	require.NoError(t, err)

	t.Run("empty keeps original", func(t *testing.T) {
		out, mimeType, err := res.Encode("")
		require.NoError(t, err)
		require.Equal(t, data, out)
		require.Equal(t, "image/png", mimeType)
	})

	t.Run("same format keeps original", func(t *testing.T) {
		out, mimeType, err := res.Encode("png")
		require.NoError(t, err)
		require.Equal(t, data, out)
		require.Equal(t, "image/png", mimeType)
	})

	t.Run("png to jpeg", func(t *testing.T) {
		out, mimeType, err := res.Encode("jpg")
		require.NoError(t, err)
		require.Equal(t, "image/jpeg", mimeType)

		decoded, err := imaging.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		require.Equal(t, image.Rect(0, 0, 6, 3), decoded.Bounds())

		_, format, err := image.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		require.Equal(t, "jpeg", format)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, _, err := res.Encode("heic")
		require.Error(t, err)
	})
}
