package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artfolio/internal/blobstore"
	"artfolio/internal/imgcache"
	"artfolio/internal/models"
	"artfolio/internal/pipeline"
)

// newPipelineServer wires the real pipeline, local blob store and cache, so
// the upload and retrieval paths are exercised end to end.
func newPipelineServer(t *testing.T) *Server {
	t.Helper()
	store := blobstore.NewLocal(t.TempDir())
	cache, err := imgcache.New(store, 100, time.Hour)
	require.NoError(t, err)
	pipe := pipeline.New(store, "http://gallery.test", nil)
	return newTestServer(t, newFakeDB(), pipe, cache)
}

func largeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func TestUploadAndRetrieveEndToEnd(t *testing.T) {
	s := newPipelineServer(t)
	cookie := login(t, s)

	body, ct := multipartBody(t, nil, "sunset.jpg", largeJPEG(t, 1600, 1200))
	w := doMultipart(s, http.MethodPost, "/api/upload", body, ct, cookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var manifest models.UploadManifest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &manifest))
	assert.Equal(t, "sunset.jpg", manifest.OriginalName)
	assert.True(t, strings.HasSuffix(manifest.FileName, ".jpg"))

	expected := map[string][2]int{
		"low":  {320, 240},
		"mid":  {720, 540},
		"high": {1280, 960},
	}
	for tier, dims := range expected {
		res := manifest.Resolutions[tier]
		assert.Equal(t, dims[0], res.Width, tier)
		assert.Equal(t, dims[1], res.Height, tier)

		get := doJSON(s, http.MethodGet, fmt.Sprintf("/api/image/%s/%s", tier, manifest.FileName), nil)
		require.Equal(t, http.StatusOK, get.Code, tier)
		assert.Equal(t, "image/jpeg", get.Header().Get("Content-Type"))
		assert.Equal(t, "public, max-age=31536000, immutable", get.Header().Get("Cache-Control"))

		cfg, _, err := image.DecodeConfig(bytes.NewReader(get.Body.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, dims[0], cfg.Width, tier)
		assert.Equal(t, dims[1], cfg.Height, tier)
	}
}

func TestRetrieveUnknownImage(t *testing.T) {
	s := newPipelineServer(t)

	w := doJSON(s, http.MethodGet, "/api/image/low/no-such-file.jpg", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(s, http.MethodGet, "/api/image/original/file.jpg", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRejectsOversizedPayload(t *testing.T) {
	pipe := &fakePipe{}
	s := newTestServer(t, newFakeDB(), pipe, fakeCache{})
	cookie := login(t, s)

	body, ct := multipartBody(t, nil, "big.jpg", bytes.Repeat([]byte{0xAB}, 11<<20))
	w := doMultipart(s, http.MethodPost, "/api/upload", body, ct, cookie)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, 0, pipe.processedCount())
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	pipe := &fakePipe{}
	s := newTestServer(t, newFakeDB(), pipe, fakeCache{})
	cookie := login(t, s)

	gif := append([]byte("GIF89a"), make([]byte, 64)...)
	body, ct := multipartBody(t, nil, "anim.gif", gif)
	w := doMultipart(s, http.MethodPost, "/api/upload", body, ct, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, pipe.processedCount())
}

func TestUploadMissingFile(t *testing.T) {
	pipe := &fakePipe{}
	s := newTestServer(t, newFakeDB(), pipe, fakeCache{})
	cookie := login(t, s)

	body, ct := multipartBody(t, map[string]string{"note": "no image"}, "", nil)
	w := doMultipart(s, http.MethodPost, "/api/upload", body, ct, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, pipe.processedCount())
}

func TestUploadRejectsCorruptImage(t *testing.T) {
	s := newPipelineServer(t)
	cookie := login(t, s)

	// Valid JPEG magic bytes, broken body: passes MIME sniffing, fails decode.
	corrupt := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x00}, 128)...)
	body, ct := multipartBody(t, nil, "broken.jpg", corrupt)
	w := doMultipart(s, http.MethodPost, "/api/upload", body, ct, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
