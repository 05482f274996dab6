package gcsuploader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/garden-ledger/internal/expense"
)

// FetchModelOutput reads an archived exchange. ref is either an object name in
// the archive bucket or a full gs://bucket/object URI.
func (a *ModelOutputArchive) FetchModelOutput(ctx context.Context, ref string) (*expense.ModelOutput, error) {
	bucket, object := a.bucket, ref
	if strings.HasPrefix(ref, "gs://") {
		var err error
		if bucket, object, err = ParseGCSURI(ref); err != nil {
			return nil, err
		}
	}

	data, err := download(ctx, a.client, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("FetchModelOutput: %w", err)
	}

	var out expense.ModelOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("FetchModelOutput: decode %s: %w", object, err)
	}
	return &out, nil
}

// ParseGCSURI splits gs://bucket/path/to/object into bucket and object path.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

func download(ctx context.Context, client *storage.Client, bucket, object string) ([]byte, error) {
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader %s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}
