package attendance

import (
	"context"
	"fmt"

	"hrsync/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const upsertSQL = `
    INSERT INTO attendances (uid, user_id, punch, status, punched_at)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (uid, punched_at) DO UPDATE
      SET user_id = EXCLUDED.user_id,
          punch = EXCLUDED.punch,
          status = EXCLUDED.status,
          updated_at = now()
  `

// UpsertMany writes each record with its own statement so a failure midway
// leaves the already written records intact; replaying the batch converges.
func (s *Store) UpsertMany(ctx context.Context, records []Record) (int, error) {
	written := 0
	for _, rec := range Dedupe(records) {
		if _, err := s.DB.Exec(ctx, upsertSQL, rec.UID, rec.UserID, rec.Punch, rec.Status, rec.Timestamp.UTC()); err != nil {
			return written, fmt.Errorf("%w: upsert uid=%d: %w", ErrStoreFailure, rec.UID, err)
		}
		written++
	}
	return written, nil
}

func (s *Store) FindPage(ctx context.Context, filter Filter, page, pageSize int) ([]Record, int, error) {
	offset, err := Offset(page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	where, args := filter.where()

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM attendances"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count attendances: %w", ErrStoreFailure, err)
	}
	if total == 0 || offset >= total {
		return []Record{}, total, nil
	}

	query := "SELECT id, uid, user_id, punch, status, punched_at FROM attendances" + where +
		fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := s.DB.Query(ctx, query, append(args, pageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list attendances: %w", ErrStoreFailure, err)
	}
	defer rows.Close()

	out := make([]Record, 0, pageSize)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UID, &rec.UserID, &rec.Punch, &rec.Status, &rec.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("%w: scan attendance: %w", ErrStoreFailure, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: list attendances: %w", ErrStoreFailure, err)
	}
	return out, total, nil
}

func (s *Store) DeleteAll(ctx context.Context, filter Filter) (int64, error) {
	where, args := filter.where()
	tag, err := s.DB.Exec(ctx, "DELETE FROM attendances"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: delete attendances: %w", ErrStoreFailure, err)
	}
	return tag.RowsAffected(), nil
}
