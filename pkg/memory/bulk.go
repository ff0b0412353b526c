package memory

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// maxBulkConcurrency bounds how many archival entries are touched at once
// by a bulk operation, since the store serializes writes to a single
// SQLite connection (MaxOpenConns=1) — concurrency here overlaps the
// read/tag-computation work, not the writes themselves.
const maxBulkConcurrency = 4

// BulkRetag re-tags a batch of existing archival entries concurrently,
// reusing each entry's current content with its tags replaced. It stops
// and returns the first error encountered; entries already retagged
// before that point remain retagged.
func (db *DB) BulkRetag(ctx context.Context, ids []int64, tags []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBulkConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			entry, found, err := db.Get(ctx, id)
			if err != nil {
				return err
			}
			if !found {
				return nil
			}
			_, err = db.conn.ExecContext(ctx,
				"UPDATE archival_memory SET tags = ?, updated_at = datetime('now') WHERE id = ?",
				joinTags(tags), entry.ID)
			return err
		})
	}

	return g.Wait()
}
