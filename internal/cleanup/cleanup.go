package cleanup

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"

	"artfolio/internal/blobstore"
)

// Job asks the background worker to remove stored objects. Enqueued when an
// upload fails after some tiers were already stored, when a painting's image
// is replaced, and when a painting is deleted.
type Job struct {
	Keys []string `json:"keys"`
}

// Writer is the subset of kafka.Writer the producer needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Producer struct {
	w Writer
}

func NewProducer(w Writer) *Producer {
	return &Producer{w: w}
}

// EnqueueRemoval publishes a removal job. Best effort: a publish failure is
// logged by callers, never fails the request that triggered it.
func (p *Producer) EnqueueRemoval(ctx context.Context, keys []string) error {
	const op = "cleanup.EnqueueRemoval"

	if len(keys) == 0 {
		return nil
	}
	raw, err := json.Marshal(Job{Keys: keys})
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{Value: raw}); err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	return nil
}

// Process handles one consumed job, removing each key from the store.
// Removal of an already-absent object is a no-op, so redelivery is safe.
func Process(ctx context.Context, raw []byte, store blobstore.Store) error {
	const op = "cleanup.Process"

	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}

	for _, key := range job.Keys {
		if err := store.Remove(ctx, key); err != nil {
			log.Printf("cleanup: failed to remove %s: %v", key, err)
		}
	}
	return nil
}
