package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/devstream-shilpa/Media-Platform/internal/media"
)

const mediaColumns = `id, owner_id, s3_key, file_name, file_type, status, metadata,
	thumbnail_key, error_detail, created_at, processed_at`

// NewMedia is the input to CreateMedia.
type NewMedia struct {
	OwnerID   string
	ObjectKey string
	FileName  string
	FileType  string
}

// CreateMedia inserts a pending record and returns it with its assigned id.
func (s *Store) CreateMedia(ctx context.Context, in NewMedia) (*media.Record, error) {
	owner, ok := parseID(in.OwnerID)
	if !ok {
		return nil, fmt.Errorf("create media: owner %q: %w", in.OwnerID, ErrNotFound)
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO media (owner_id, s3_key, file_name, file_type, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING `+mediaColumns,
		owner, in.ObjectKey, in.FileName, in.FileType)
	rec, err := scanRecord(row)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("create media %s: %w", in.ObjectKey, ErrKeyTaken)
	}
	if err != nil {
		return nil, fmt.Errorf("create media: %w", err)
	}
	return rec, nil
}

// GetMedia returns the record or ErrNotFound.
func (s *Store) GetMedia(ctx context.Context, id string) (*media.Record, error) {
	n, ok := parseID(id)
	if !ok {
		return nil, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, n)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get media %s: %w", id, err)
	}
	return rec, nil
}

// ListByOwner returns the owner's media, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]media.Record, error) {
	owner, ok := parseID(ownerID)
	if !ok {
		return []media.Record{}, nil
	}
	start := time.Now()
	rows, err := s.db.Query(ctx, `
		SELECT `+mediaColumns+`
		FROM media
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list media for %s: %w", ownerID, err)
	}
	recs, err := collectRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("list media for %s: %w", ownerID, err)
	}
	log.Debug().Str("ownerId", ownerID).Int("count", len(recs)).Dur("duration", time.Since(start)).Msg("Listed media")
	return recs, nil
}

// ListSharedWith returns media other users shared with userID, newest share
// first.
func (s *Store) ListSharedWith(ctx context.Context, userID string) ([]media.Record, error) {
	uid, ok := parseID(userID)
	if !ok {
		return []media.Record{}, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT m.id, m.owner_id, m.s3_key, m.file_name, m.file_type, m.status, m.metadata,
			m.thumbnail_key, m.error_detail, m.created_at, m.processed_at
		FROM shares s
		JOIN media m ON m.id = s.media_id
		WHERE s.to_user_id = $1
		ORDER BY s.created_at DESC, m.id DESC`, uid)
	if err != nil {
		return nil, fmt.Errorf("list shared with %s: %w", userID, err)
	}
	recs, err := collectRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("list shared with %s: %w", userID, err)
	}
	return recs, nil
}

// CanView reports whether userID owns the record or has it shared to them.
func (s *Store) CanView(ctx context.Context, mediaID, userID string) (bool, error) {
	mid, ok1 := parseID(mediaID)
	uid, ok2 := parseID(userID)
	if !ok1 || !ok2 {
		return false, nil
	}
	var allowed bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM media WHERE id = $1 AND owner_id = $2)
		    OR EXISTS (SELECT 1 FROM shares WHERE media_id = $1 AND to_user_id = $2)`,
		mid, uid).Scan(&allowed)
	if err != nil {
		return false, fmt.Errorf("check access to %s: %w", mediaID, err)
	}
	return allowed, nil
}

// MarkProcessing sets status to processing and clears any previous error.
// Metadata and thumbnail from an earlier run are left in place.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	return s.updateStatus(ctx, id, `
		UPDATE media SET status = 'processing', error_detail = NULL
		WHERE id = $1`)
}

// MarkFailed records the failure text. processed_at is only set the first
// time the record reaches a terminal state.
func (s *Store) MarkFailed(ctx context.Context, id, detail string) error {
	return s.updateStatus(ctx, id, `
		UPDATE media SET status = 'failed', error_detail = $2,
			processed_at = COALESCE(processed_at, now())
		WHERE id = $1`, detail)
}

// Complete is the single success write: status, metadata and thumbnail move
// together.
func (s *Store) Complete(ctx context.Context, id string, meta media.Metadata, thumbnailKey string) error {
	payload, err := media.MarshalMetadata(meta)
	if err != nil {
		return err
	}
	var thumb *string
	if thumbnailKey != "" {
		thumb = &thumbnailKey
	}
	return s.updateStatus(ctx, id, `
		UPDATE media SET status = 'ready', metadata = $2, thumbnail_key = $3,
			error_detail = NULL, processed_at = COALESCE(processed_at, now())
		WHERE id = $1`, payload, thumb)
}

func (s *Store) updateStatus(ctx context.Context, id, sql string, args ...any) error {
	n, ok := parseID(id)
	if !ok {
		return fmt.Errorf("media %q: %w", id, ErrNotFound)
	}
	start := time.Now()
	tag, err := s.db.Exec(ctx, sql, append([]any{n}, args...)...)
	if err != nil {
		return fmt.Errorf("update media %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("media %s: %w", id, ErrNotFound)
	}
	log.Debug().Str("mediaId", id).Dur("duration", time.Since(start)).Msg("Media status updated")
	return nil
}

func scanRecord(row pgx.Row) (*media.Record, error) {
	var (
		rec         media.Record
		id, owner   int64
		status      string
		meta        []byte
		thumb, errD *string
	)
	if err := row.Scan(&id, &owner, &rec.ObjectKey, &rec.FileName, &rec.FileType, &status,
		&meta, &thumb, &errD, &rec.CreatedAt, &rec.ProcessedAt); err != nil {
		return nil, err
	}
	rec.ID = formatID(id)
	rec.OwnerID = formatID(owner)
	rec.Status = media.Status(status)
	if !rec.Status.Valid() {
		return nil, fmt.Errorf("media %d: unknown status %q", id, status)
	}
	if thumb != nil {
		rec.ThumbnailKey = *thumb
	}
	if errD != nil {
		rec.ErrorDetail = *errD
	}
	m, err := media.UnmarshalMetadata(meta)
	if err != nil {
		return nil, fmt.Errorf("media %d: %w", id, err)
	}
	rec.Metadata = m
	return &rec, nil
}

func collectRecords(rows pgx.Rows) ([]media.Record, error) {
	defer rows.Close()
	recs := []media.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}
