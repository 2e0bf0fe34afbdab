package service

import (
	"context"
	"fmt"

	"github.com/garyjia/fund-review/internal/application/port"
	"github.com/garyjia/fund-review/internal/domain/entity"
)

// attachmentBatch tracks the files one request stores so they can be
// discarded when its transaction fails, and the files it replaces so they
// can be removed once the transaction commits.
type attachmentBatch struct {
	storage  port.FileStorage
	logger   Logger
	saved    []string
	obsolete []string
}

func newAttachmentBatch(fs port.FileStorage, logger Logger) *attachmentBatch {
	return &attachmentBatch{storage: fs, logger: logger}
}

// save stores one upload under a fresh key for the reimbursement
func (b *attachmentBatch) save(ctx context.Context, reimbursementID int64, prefix string, upload entity.Upload) (string, error) {
	key, err := entity.AttachmentKey(reimbursementID, prefix, upload.FileName)
	if err != nil {
		return "", err
	}
	if err := b.storage.Save(ctx, key, upload.Content); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", upload.FileName, err)
	}
	b.saved = append(b.saved, key)
	return key, nil
}

// retire marks stored keys for removal after commit
func (b *attachmentBatch) retire(keys ...string) {
	for _, k := range keys {
		if k != "" {
			b.obsolete = append(b.obsolete, k)
		}
	}
}

// discard removes everything this batch stored
func (b *attachmentBatch) discard(ctx context.Context) {
	b.remove(ctx, b.saved)
	b.saved = nil
}

// commit removes the files replaced by this batch
func (b *attachmentBatch) commit(ctx context.Context) {
	b.remove(ctx, b.obsolete)
	b.obsolete = nil
}

func (b *attachmentBatch) remove(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := b.storage.Delete(ctx, key); err != nil {
			b.logger.Error("Failed to remove attachment", "key", key, "error", err)
		}
	}
}

// checkUploads rejects unsupported file types before anything is stored
func checkUploads(uploads ...[]entity.Upload) error {
	for _, group := range uploads {
		for _, u := range group {
			if _, err := entity.ImageExtension(u.FileName); err != nil {
				return err
			}
		}
	}
	return nil
}
