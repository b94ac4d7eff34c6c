package server

import (
	"bytes"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectImageHandler_JSON(t *testing.T) {
	s := newTestServer(t)

	req := multipartRequest(t, "/detect/image", pngBytes(t, yellowScene()), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeResponse(t, rec)
	require.True(t, resp.Found)
	assert.InDelta(t, 275, resp.BBox.X, boxTolerance)
	assert.NotEmpty(t, resp.ROI)
}

func TestDetectImageHandler_JPEG(t *testing.T) {
	s := newTestServer(t)

	req := multipartRequest(t, "/detect/image?format=jpeg", pngBytes(t, yellowScene()), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Region"))

	img, err := jpeg.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.InDelta(t, 250, img.Bounds().Dx(), boxTolerance)
	assert.InDelta(t, 260, img.Bounds().Dy(), boxTolerance)
}

func TestDetectImageHandler_JPEGWithUpscale(t *testing.T) {
	s := newTestServer(t)

	req := multipartRequest(t, "/detect/image?format=jpeg", pngBytes(t, yellowScene()), map[string]string{"upscale": "2"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	img, err := jpeg.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.InDelta(t, 500, img.Bounds().Dx(), 2*boxTolerance)
}

func TestDetectImageHandler_JPEGNotFound(t *testing.T) {
	s := newTestServer(t)

	req := multipartRequest(t, "/detect/image?format=jpeg", pngBytes(t, blueScene()), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.False(t, resp.Found)
}

func TestDetectImageHandler_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		target string
		data   []byte
		fields map[string]string
		status int
		errMsg string
	}{
		{"no file", "/detect/image", nil, nil, http.StatusBadRequest, "No image file"},
		{"invalid image", "/detect/image", []byte("not an image"), nil, http.StatusBadRequest, "Invalid image format"},
		{"image too large", "/detect/image", pngBytes(t, image.NewGray(image.Rect(0, 0, 13000, 4))), nil, http.StatusBadRequest, "too large"},
		{"unsupported format", "/detect/image?format=gif", []byte("x"), nil, http.StatusBadRequest, "Unsupported format"},
		{"bad min_area", "/detect/image", pngBytes(t, blueScene()), map[string]string{"min_area": "abc"}, http.StatusBadRequest, "min_area"},
		{"bad debug", "/detect/image", pngBytes(t, blueScene()), map[string]string{"debug": "maybe"}, http.StatusBadRequest, "debug"},
		{"invalid override", "/detect/image", pngBytes(t, blueScene()), map[string]string{"max_ar_diff": "150"}, http.StatusBadRequest, "aspect deviation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, multipartRequest(t, tt.target, tt.data, tt.fields))

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, decodeResponse(t, rec).Error, tt.errMsg)
		})
	}
}

func TestDetectImageHandler_NotMultipart(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/detect/image", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeResponse(t, rec).Error, "Failed to parse form data")
}

func TestDetectImageHandler_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/detect/image", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestFromForm(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/detect/image?min_area=100&max_ar_diff=20.5&upscale=3&debug=true", nil)

	got, err := requestFromForm(req)
	require.NoError(t, err)
	require.NotNil(t, got.MinArea)
	assert.Equal(t, 100, *got.MinArea)
	assert.InDelta(t, 20.5, *got.MaxARDiff, 1e-9)
	assert.Equal(t, 3, *got.Upscale)
	assert.True(t, *got.Debug)
	assert.True(t, got.hasOverrides())

	empty, err := requestFromForm(httptest.NewRequest(http.MethodPost, "/detect/image", nil))
	require.NoError(t, err)
	assert.False(t, empty.hasOverrides())
}
