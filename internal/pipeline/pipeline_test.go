package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artfolio/internal/blobstore"
	"artfolio/internal/cleanup"
	"artfolio/internal/processor"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	failOn  string // key prefix that makes Put fail
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.failOn != "" && strings.HasPrefix(key, s.failOn) {
		return fmt.Errorf("fakeStore: %w: injected", blobstore.ErrUnavailable)
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	return data, nil
}

func (s *fakeStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) jobs(t *testing.T) []cleanup.Job {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()
	jobs := make([]cleanup.Job, 0, len(w.msgs))
	for _, m := range w.msgs {
		var job cleanup.Job
		require.NoError(t, json.Unmarshal(m.Value, &job))
		jobs = append(jobs, job)
	}
	return jobs
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func TestProcessAndStoreManifest(t *testing.T) {
	store := newFakeStore()
	p := New(store, "http://gallery.test/", nil)

	manifest, err := p.ProcessAndStore(context.Background(), testJPEG(t, 1600, 1200), "sunset.jpg")
	require.NoError(t, err)

	assert.Equal(t, "sunset.jpg", manifest.OriginalName)
	assert.True(t, strings.HasSuffix(manifest.FileName, ".jpg"))
	require.Len(t, manifest.Resolutions, 3)

	expected := map[string][2]int{
		"low":  {320, 240},
		"mid":  {720, 540},
		"high": {1280, 960},
	}
	for tier, dims := range expected {
		res, ok := manifest.Resolutions[tier]
		require.True(t, ok, tier)
		assert.Equal(t, dims[0], res.Width, tier)
		assert.Equal(t, dims[1], res.Height, tier)
		assert.Greater(t, res.Size, 0, tier)
		assert.Equal(t,
			fmt.Sprintf("http://gallery.test/api/image/%s/%s", tier, manifest.FileName),
			res.URL, tier)

		data, err := store.Get(context.Background(), tier+"/"+manifest.FileName)
		require.NoError(t, err)
		assert.Len(t, data, res.Size)
	}
}

func TestProcessAndStoreUniqueFileNames(t *testing.T) {
	store := newFakeStore()
	p := New(store, "http://gallery.test", nil)
	src := testJPEG(t, 800, 600)

	first, err := p.ProcessAndStore(context.Background(), src, "same.jpg")
	require.NoError(t, err)
	second, err := p.ProcessAndStore(context.Background(), src, "same.jpg")
	require.NoError(t, err)

	assert.NotEqual(t, first.FileName, second.FileName)
	assert.Len(t, store.objects, 6)
}

func TestProcessAndStoreExtensionFallback(t *testing.T) {
	assert.True(t, strings.HasSuffix(FileName("photo.PNG"), ".png"))
	assert.True(t, strings.HasSuffix(FileName("noextension"), ".jpg"))
}

func TestProcessAndStoreAllOrNothing(t *testing.T) {
	store := newFakeStore()
	store.failOn = "mid/"
	writer := &fakeWriter{}
	p := New(store, "http://gallery.test", cleanup.NewProducer(writer))

	manifest, err := p.ProcessAndStore(context.Background(), testJPEG(t, 800, 600), "x.jpg")
	assert.ErrorIs(t, err, blobstore.ErrUnavailable)
	assert.Nil(t, manifest)

	// The low rendition was already stored; it must be queued for removal.
	jobs := writer.jobs(t)
	require.Len(t, jobs, 1)
	require.Len(t, jobs[0].Keys, 1)
	assert.True(t, strings.HasPrefix(jobs[0].Keys[0], "low/"))
}

func TestProcessAndStoreDecodeFailure(t *testing.T) {
	store := newFakeStore()
	writer := &fakeWriter{}
	p := New(store, "http://gallery.test", cleanup.NewProducer(writer))

	manifest, err := p.ProcessAndStore(context.Background(), []byte("not an image"), "x.jpg")
	assert.ErrorIs(t, err, processor.ErrDecode)
	assert.Nil(t, manifest)
	assert.Equal(t, 0, store.puts)
	assert.Empty(t, writer.jobs(t))
}

func TestDiscardManifest(t *testing.T) {
	store := newFakeStore()
	writer := &fakeWriter{}
	p := New(store, "http://gallery.test", cleanup.NewProducer(writer))

	manifest, err := p.ProcessAndStore(context.Background(), testJPEG(t, 800, 600), "y.jpg")
	require.NoError(t, err)

	p.DiscardManifest(context.Background(), manifest)

	jobs := writer.jobs(t)
	require.Len(t, jobs, 1)
	assert.ElementsMatch(t, []string{
		"low/" + manifest.FileName,
		"mid/" + manifest.FileName,
		"high/" + manifest.FileName,
	}, jobs[0].Keys)
}

func TestCleanupProcessRemovesObjects(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	p := New(store, "http://gallery.test", nil)

	manifest, err := p.ProcessAndStore(ctx, testJPEG(t, 800, 600), "z.jpg")
	require.NoError(t, err)
	require.Len(t, store.objects, 3)

	job := cleanup.Job{Keys: []string{
		"low/" + manifest.FileName,
		"mid/" + manifest.FileName,
		"high/" + manifest.FileName,
	}}
	raw, err := json.Marshal(job)
	require.NoError(t, err)

	require.NoError(t, cleanup.Process(ctx, raw, store))
	assert.Empty(t, store.objects)
}
