package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"artfolio/internal/blobstore"
	"artfolio/internal/cleanup"
	"artfolio/internal/models"
	"artfolio/internal/processor"
)

// Pipeline turns one source image into three stored renditions and a
// manifest of proxy URLs. Stateless; safe to call concurrently for
// different uploads.
type Pipeline struct {
	store   blobstore.Store
	baseURL string
	cleanup *cleanup.Producer // optional
}

func New(store blobstore.Store, baseURL string, cp *cleanup.Producer) *Pipeline {
	return &Pipeline{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		cleanup: cp,
	}
}

// Key returns the storage key for one rendition.
func Key(tier processor.Tier, fileName string) string {
	return tier.String() + "/" + fileName
}

// FileName generates a collision-resistant name preserving the original
// extension, defaulting to .jpg.
func FileName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".jpg"
	}
	return strings.ReplaceAll(uuid.New().String(), "-", "") + ext
}

// ProcessAndStore transcodes and stores every tier in order and assembles
// the manifest. All-or-nothing: on any failure no manifest is returned and
// already-stored renditions are handed to the cleanup queue.
func (p *Pipeline) ProcessAndStore(ctx context.Context, src []byte, originalName string) (*models.UploadManifest, error) {
	const op = "pipeline.ProcessAndStore"

	fileName := FileName(originalName)
	resolutions := make(map[string]models.ProcessedImage, len(processor.Tiers()))

	var stored []string
	for _, tier := range processor.Tiers() {
		data, w, h, err := processor.Transcode(src, tier)
		if err != nil {
			p.discard(ctx, stored)
			return nil, fmt.Errorf("%s: %s: %w", op, tier, err)
		}

		key := Key(tier, fileName)
		if err := p.store.Put(ctx, key, data, "image/jpeg"); err != nil {
			p.discard(ctx, stored)
			return nil, fmt.Errorf("%s: %s: %w", op, tier, err)
		}
		stored = append(stored, key)

		resolutions[tier.String()] = models.ProcessedImage{
			URL:    p.URL(tier, fileName),
			Width:  w,
			Height: h,
			Size:   len(data),
		}
	}

	return &models.UploadManifest{
		OriginalName: originalName,
		FileName:     fileName,
		Resolutions:  resolutions,
	}, nil
}

// URL builds the retrieval URL for one rendition. Always routes through the
// image proxy so every read passes the cache, whichever backend holds the
// bytes.
func (p *Pipeline) URL(tier processor.Tier, fileName string) string {
	return fmt.Sprintf("%s/api/image/%s/%s", p.baseURL, tier, fileName)
}

// DiscardManifest queues removal of every rendition named by a manifest,
// used when a painting is deleted or its image replaced.
func (p *Pipeline) DiscardManifest(ctx context.Context, m *models.UploadManifest) {
	if m == nil {
		return
	}
	keys := make([]string, 0, len(processor.Tiers()))
	for _, tier := range processor.Tiers() {
		keys = append(keys, Key(tier, m.FileName))
	}
	p.discard(ctx, keys)
}

func (p *Pipeline) discard(ctx context.Context, keys []string) {
	if p.cleanup == nil || len(keys) == 0 {
		return
	}
	if err := p.cleanup.EnqueueRemoval(ctx, keys); err != nil {
		log.Printf("pipeline: could not enqueue removal of %d objects: %v", len(keys), err)
	}
}
