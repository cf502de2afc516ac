// Package output renders synthetic events as the CSV artifact and stores it
// on the local disk, AWS S3 or an S3-compatible endpoint.
package output

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/hakagen/pkg/detection"
)

// Artifact describes a stored CSV file.
type Artifact struct {
	Name     string `json:"name"`
	Key      string `json:"key"`
	Location string `json:"location"`
	Rows     int    `json:"rows"`
	Body     []byte `json:"-"`
}

// Writer encodes and stores artifacts.
type Writer struct {
	store  BlobStore
	prefix string
	logger *zap.Logger
}

// NewWriter returns a Writer putting files under prefix in store.
func NewWriter(store BlobStore, prefix string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: store, prefix: prefix, logger: logger}
}

// NewStore builds the BlobStore selected by cfg.Backend.
func NewStore(ctx context.Context, cfg Config) (BlobStore, error) {
	switch cfg.Backend {
	case "", BackendLocal:
		if cfg.Dir == "" {
			return nil, detection.NewValidationError("output.dir", "required for local backend")
		}
		return NewLocalStore(cfg.Dir), nil
	case BackendS3:
		if cfg.Bucket == "" {
			return nil, detection.NewValidationError("output.bucket", "required for s3 backend")
		}
		return NewS3Store(ctx, cfg.Region, cfg.Bucket)
	case BackendMinio:
		if cfg.Bucket == "" || cfg.Endpoint == "" {
			return nil, detection.NewValidationError("output.endpoint", "endpoint and bucket required for minio backend")
		}
		return NewMinioStore(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Bucket, cfg.UseSSL)
	}
	return nil, detection.NewValidationError("output.backend", fmt.Sprintf("unknown backend %q", cfg.Backend))
}

// Write encodes events and stores them as the artifact for date.
func (w *Writer) Write(ctx context.Context, date time.Time, events []detection.SyntheticEvent) (Artifact, error) {
	body, err := EncodeCSV(events)
	if err != nil {
		return Artifact{}, err
	}
	name := FileName(date)
	key := name
	if w.prefix != "" {
		key = path.Join(w.prefix, name)
	}
	if err := w.store.Put(ctx, key, body, "text/csv"); err != nil {
		return Artifact{}, fmt.Errorf("store artifact: %w", err)
	}

	a := Artifact{Name: name, Key: key, Location: w.store.Location(key), Rows: len(events), Body: body}
	w.logger.Info("artifact stored",
		zap.String("location", a.Location),
		zap.Int("rows", a.Rows),
		zap.Int("bytes", len(body)),
	)
	return a, nil
}
