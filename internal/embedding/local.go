package embedding

import (
	"context"
	"fmt"

	"github.com/matsen/qembed/internal/encoder"
)

// DefaultChunkSize bounds how many queries go through the encoder in one
// forward pass. Chunking bounds peak memory; it does not change the numeric
// result versus a single pass.
const DefaultChunkSize = 32

// Local generates embeddings by running a local encoder and mean-pooling
// its token outputs.
type Local struct {
	enc       encoder.Encoder
	chunkSize int
	normalize bool
	progress  ProgressReporter
}

// LocalOption configures a Local provider.
type LocalOption func(*Local)

// WithChunkSize sets the maximum number of queries encoded per forward pass.
func WithChunkSize(n int) LocalOption {
	return func(l *Local) {
		if n > 0 {
			l.chunkSize = n
		}
	}
}

// WithNormalize controls L2 normalization of pooled embeddings.
func WithNormalize(normalize bool) LocalOption {
	return func(l *Local) {
		l.normalize = normalize
	}
}

// NewLocal creates an embedding provider backed by a local encoder.
// Normalization is on by default.
func NewLocal(enc encoder.Encoder, opts ...LocalOption) *Local {
	l := &Local{
		enc:       enc,
		chunkSize: DefaultChunkSize,
		normalize: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetProgressReporter sets the reporter notified after each embedded query
// during batch runs.
func (l *Local) SetProgressReporter(reporter ProgressReporter) {
	l.progress = reporter
}

// Embed generates an embedding for a single query.
func (l *Local) Embed(ctx context.Context, text string) (Embedding, error) {
	batch, err := l.enc.Encode(ctx, []string{text})
	if err != nil {
		return Embedding{}, fmt.Errorf("encoding query: %w", err)
	}
	if batch.Len() != 1 {
		return Embedding{}, fmt.Errorf("encoder returned %d rows, want 1", batch.Len())
	}
	return Pool(batch.Vectors[0], batch.Mask[0], l.normalize), nil
}

// EmbedBatch embeds queries in consecutive chunks of at most the configured
// chunk size. Chunks are processed sequentially in input order; if any
// chunk's encode call fails the whole batch aborts.
func (l *Local) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	out := make([]Embedding, 0, len(texts))

	for start := 0; start < len(texts); start += l.chunkSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := start + l.chunkSize
		if end > len(texts) {
			end = len(texts)
		}
		chunk := texts[start:end]

		batch, err := l.enc.Encode(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("encoding queries %d-%d: %w", start+1, end, err)
		}
		if batch.Len() != len(chunk) {
			return nil, fmt.Errorf("encoder returned %d rows, want %d", batch.Len(), len(chunk))
		}

		for i := range chunk {
			out = append(out, Pool(batch.Vectors[i], batch.Mask[i], l.normalize))
		}

		if l.progress != nil {
			l.progress.OnProgress(end, len(texts))
		}
	}

	return out, nil
}

// ModelName returns the underlying encoder's model identifier.
func (l *Local) ModelName() string {
	return l.enc.ModelName()
}

// Dimensions returns the underlying encoder's hidden dimensionality.
func (l *Local) Dimensions() int {
	return l.enc.Dimensions()
}
