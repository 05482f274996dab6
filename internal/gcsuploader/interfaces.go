package gcsuploader

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/garden-ledger/internal/expense"
)

// ObjectPrefix is the folder holding archived model exchanges.
const ObjectPrefix = "model-outputs"

// ModelOutputArchive keeps raw model exchanges as JSON objects in a GCS bucket.
// It implements expense.ModelOutputSink.
type ModelOutputArchive struct {
	client *storage.Client
	bucket string
}

var _ expense.ModelOutputSink = (*ModelOutputArchive)(nil)

// NewModelOutputArchive creates an archive writing to bucket.
// It assumes Application Default Credentials are configured (gcloud auth application-default login).
func NewModelOutputArchive(ctx context.Context, bucket string) (*ModelOutputArchive, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewModelOutputArchive: create storage client: %w", err)
	}
	return &ModelOutputArchive{client: client, bucket: bucket}, nil
}

// Close closes the storage client.
func (a *ModelOutputArchive) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// ObjectName returns model-outputs/YYYY/MM/DD/<id>.json for the exchange, dated in UTC.
func ObjectName(out *expense.ModelOutput) string {
	created := out.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return fmt.Sprintf("%s/%s/%s.json", ObjectPrefix, created.UTC().Format("2006/01/02"), out.ID)
}
