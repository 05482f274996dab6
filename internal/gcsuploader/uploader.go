package gcsuploader

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/garden-ledger/internal/expense"
)

// SaveModelOutput writes the exchange as an indented JSON object.
func (a *ModelOutputArchive) SaveModelOutput(ctx context.Context, out *expense.ModelOutput) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("SaveModelOutput: marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	name := ObjectName(out)
	w := a.client.Bucket(a.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("SaveModelOutput: write %s: %w", name, err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("SaveModelOutput: finalize %s: %w", name, err)
	}

	return nil
}
