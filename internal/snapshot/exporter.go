// Package snapshot periodically writes a point-in-time view of every
// portfolio to S3. It is write-only and advisory: the engine never reads a
// snapshot back to reconstruct state (holdings live only in memory, per the
// system's in-memory-by-contract design), so a failed upload only loses one
// period of historical record, never correctness.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/portfolio"
)

// PortfolioSource supplies the current set of portfolios to snapshot.
type PortfolioSource interface {
	List() []portfolio.View
}

// Uploader is the narrow S3 contract this package depends on, satisfied by
// *manager.Uploader.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Exporter uploads one JSON object per export cycle, named by timestamp.
// Like the position store's write-tmp-then-rename discipline, the full
// payload is built in memory before the single Upload call — there is never
// a partially-written object visible to a reader.
type S3Exporter struct {
	uploader Uploader
	bucket   string
	prefix   string
	source   PortfolioSource
	log      zerolog.Logger
}

// NewS3Exporter constructs the exporter.
func NewS3Exporter(uploader Uploader, bucket, prefix string, source PortfolioSource, log zerolog.Logger) *S3Exporter {
	return &S3Exporter{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		source:   source,
		log:      log.With().Str("component", "snapshot_exporter").Logger(),
	}
}

type exportPayload struct {
	ExportedAt time.Time         `json:"exported_at"`
	Portfolios []portfolio.View `json:"portfolios"`
}

// Export builds the full payload and uploads it as a single object.
func (e *S3Exporter) Export(ctx context.Context, at time.Time) error {
	payload := exportPayload{ExportedAt: at, Portfolios: e.source.List()}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("snapshot: marshal payload: %w", err)
	}

	key := fmt.Sprintf("%s/%s.json", e.prefix, at.UTC().Format("20060102T150405Z"))
	_, err = e.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &e.bucket,
		Key:    &key,
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("snapshot: upload %s: %w", key, err)
	}

	e.log.Info().Str("key", key).Int("portfolios", len(payload.Portfolios)).Msg("snapshot exported")
	return nil
}

// Name implements scheduler.Job.
func (e *S3Exporter) Name() string { return "snapshot_export" }

// Run implements scheduler.Job, exporting at the current time.
func (e *S3Exporter) Run() error {
	return e.Export(context.Background(), time.Now())
}
