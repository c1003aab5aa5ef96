package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"image-edit-mcp/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedEdit struct {
	auth        string
	path        string
	model       string
	prompt      string
	quality     string
	size        string
	filename    string
	contentType string
	image       []byte
}

func newEditServer(t *testing.T, status int, body any, captured *capturedEdit, calls *int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)

		if !assert.NoError(t, r.ParseMultipartForm(10<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		assert.NoError(t, err)

		*captured = capturedEdit{
			auth:        r.Header.Get("Authorization"),
			path:        r.URL.Path,
			model:       r.FormValue("model"),
			prompt:      r.FormValue("prompt"),
			quality:     r.FormValue("quality"),
			size:        r.FormValue("size"),
			filename:    header.Filename,
			contentType: header.Header.Get("Content-Type"),
			image:       data,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 80), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeTempImage(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: baseURL + "/v1/"})
	require.NoError(t, err)
	return client
}

func TestClient_EditImage_RoundTrip(t *testing.T) {
	want := testPNG(t)
	var captured capturedEdit
	var calls int32
	srv := newEditServer(t, http.StatusOK, map[string]any{
		"created": 1760000000,
		"data":    []map[string]any{{"b64_json": base64.StdEncoding.EncodeToString(want)}},
	}, &captured, &calls)

	client := newTestClient(t, srv.URL)
	source := []byte("source-image-bytes")
	path := writeTempImage(t, "portrait.png", source)

	got, err := client.EditImage(context.Background(), path, "make it a watercolor", "1024x1536", "high")

	require.NoError(t, err)
	require.Equal(t, want, got)

	decoded, err := png.Decode(bytes.NewReader(got))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 4, 3), decoded.Bounds())

	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
	require.Equal(t, "Bearer test-key", captured.auth)
	require.Equal(t, "/v1/images/edits", captured.path)
	require.Equal(t, DefaultModel, captured.model)
	require.Equal(t, "make it a watercolor", captured.prompt)
	require.Equal(t, "high", captured.quality)
	require.Equal(t, "1024x1536", captured.size)
	require.Equal(t, "portrait.png", captured.filename)
	require.Equal(t, "image/png", captured.contentType)
	require.Equal(t, source, captured.image)
}

func TestClient_EditImage_CustomModelAndParams(t *testing.T) {
	var captured capturedEdit
	var calls int32
	srv := newEditServer(t, http.StatusOK, map[string]any{
		"created": 1,
		"data":    []map[string]any{{"b64_json": base64.StdEncoding.EncodeToString([]byte("x"))}},
	}, &captured, &calls)

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1/", ModelName: "gpt-image-1-mini"})
	require.NoError(t, err)
	path := writeTempImage(t, "photo.jpg", []byte("jpeg-bytes"))

	_, err = client.EditImage(context.Background(), path, "remove the background", "1536x1024", "medium")

	require.NoError(t, err)
	require.Equal(t, "gpt-image-1-mini", captured.model)
	require.Equal(t, "1536x1024", captured.size)
	require.Equal(t, "medium", captured.quality)
	require.Equal(t, "image/jpeg", captured.contentType)
}

func TestClient_EditImage_DataErrors(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{
			name: "empty result list",
			body: map[string]any{"created": 1, "data": []any{}},
		},
		{
			name: "missing payload",
			body: map[string]any{"created": 1, "data": []map[string]any{{"url": "https://example.com/a.png"}}},
		},
		{
			name: "invalid base64",
			body: map[string]any{"created": 1, "data": []map[string]any{{"b64_json": "%%%not-base64%%%"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured capturedEdit
			var calls int32
			srv := newEditServer(t, http.StatusOK, tt.body, &captured, &calls)
			client := newTestClient(t, srv.URL)
			path := writeTempImage(t, "a.png", []byte("source"))

			_, err := client.EditImage(context.Background(), path, "prompt", "1024x1536", "high")

			require.ErrorIs(t, err, common.ErrData)
			require.NotErrorIs(t, err, common.ErrProvider)
		})
	}
}

func TestClient_EditImage_ProviderErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		rateLimited bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, rateLimited: true},
		{name: "unauthorized", status: http.StatusUnauthorized},
		{name: "server error", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured capturedEdit
			var calls int32
			srv := newEditServer(t, tt.status, map[string]any{
				"error": map[string]any{"message": "upstream says no", "type": "test_error", "code": "test"},
			}, &captured, &calls)
			client := newTestClient(t, srv.URL)
			path := writeTempImage(t, "a.png", []byte("source"))

			_, err := client.EditImage(context.Background(), path, "prompt", "1024x1536", "high")

			require.ErrorIs(t, err, common.ErrProvider)
			var perr *common.ProviderError
			require.ErrorAs(t, err, &perr)
			require.Equal(t, tt.status, perr.StatusCode)
			require.Equal(t, tt.rateLimited, perr.RateLimited())
			require.EqualValues(t, 1, atomic.LoadInt32(&calls), "no retries")
		})
	}
}

func TestClient_EditImage_MissingFile(t *testing.T) {
	var captured capturedEdit
	var calls int32
	srv := newEditServer(t, http.StatusOK, map[string]any{}, &captured, &calls)
	client := newTestClient(t, srv.URL)

	_, err := client.EditImage(context.Background(), filepath.Join(t.TempDir(), "missing.png"), "prompt", "1024x1536", "high")

	require.ErrorIs(t, err, os.ErrNotExist)
	require.Zero(t, atomic.LoadInt32(&calls))
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.ErrorIs(t, err, common.ErrCredential)
}
