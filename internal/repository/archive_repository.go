package repository

import (
	"context"

	"github.com/iconidentify/xdl/internal/domain"
)

// ArchiveRepository remembers which posts have already been downloaded.
type ArchiveRepository interface {
	// Has reports whether the post has been downloaded before.
	Has(ctx context.Context, postID string) (bool, error)

	// Record marks a post as downloaded. Recording an archived post again
	// refreshes its entry.
	Record(ctx context.Context, entry domain.ArchiveEntry) error

	// Close releases underlying resources.
	Close() error
}
