package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CreateShare grants toUserID access to mediaID. Sharing the same media with
// the same user twice is a no-op; created reports whether a row was added.
func (s *Store) CreateShare(ctx context.Context, mediaID, fromUserID, toUserID string) (created bool, err error) {
	mid, ok1 := parseID(mediaID)
	from, ok2 := parseID(fromUserID)
	to, ok3 := parseID(toUserID)
	if !ok1 || !ok2 || !ok3 {
		return false, fmt.Errorf("create share: %w", ErrNotFound)
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO shares (media_id, from_user_id, to_user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (media_id, to_user_id) DO NOTHING`,
		mid, from, to)
	if err != nil {
		return false, fmt.Errorf("create share %s -> %s: %w", mediaID, toUserID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ShareRecipients returns the ids of every user mediaID is shared with.
func (s *Store) ShareRecipients(ctx context.Context, mediaID string) ([]string, error) {
	mid, ok := parseID(mediaID)
	if !ok {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `SELECT to_user_id FROM shares WHERE media_id = $1 ORDER BY to_user_id`, mid)
	if err != nil {
		return nil, fmt.Errorf("share recipients of %s: %w", mediaID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("share recipients of %s: %w", mediaID, err)
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = formatID(id)
	}
	return out, nil
}
