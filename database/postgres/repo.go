package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudpad/cloudpad"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// repo implements cloudpad.MetaDataRepo. tableName is already sanitized.
type repo struct {
	pool      *pgxpool.Pool
	tableName string
}

const selectColumns = `id, object_key, content_type, etag, size_bytes, cache_control, custom_metadata, created_at, updated_at`

func scanMetaData(row pgx.Row, extra ...any) (cloudpad.MetaData, error) {
	var m cloudpad.MetaData
	dest := append([]any{
		&m.ID, &m.Key, &m.ContentType, &m.ETag, &m.Size, &m.CacheControl, &m.CustomMetadata, &m.CreatedAt, &m.UpdatedAt,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		return cloudpad.MetaData{}, err
	}

	if len(m.CustomMetadata) == 0 {
		m.CustomMetadata = nil
	}

	return m, nil
}

func (r *repo) Get(ctx context.Context, key string) (cloudpad.MetaData, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE object_key = $1`, selectColumns, r.tableName)

	m, err := scanMetaData(r.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cloudpad.MetaData{}, cloudpad.ErrNotFound
		}
		return cloudpad.MetaData{}, fmt.Errorf("get: %w", err)
	}

	return m, nil
}

// Upsert inserts a row or replaces every mutable column of the existing row
// for the same key. The xmax system column is zero only for freshly
// inserted tuples.
func (r *repo) Upsert(ctx context.Context, entry cloudpad.ObjectEntry) (cloudpad.MetaData, bool, error) {
	meta := entry.CustomMetadata
	if meta == nil {
		meta = map[string]string{}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (object_key, content_type, etag, size_bytes, cache_control, custom_metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (object_key) DO UPDATE
		SET content_type = EXCLUDED.content_type,
			etag = EXCLUDED.etag,
			size_bytes = EXCLUDED.size_bytes,
			cache_control = EXCLUDED.cache_control,
			custom_metadata = EXCLUDED.custom_metadata,
			updated_at = NOW()
		RETURNING %s, (xmax = 0) AS inserted
	`, r.tableName, selectColumns)

	var inserted bool
	m, err := scanMetaData(
		r.pool.QueryRow(ctx, query, entry.Key, entry.ContentType, entry.ETag, entry.Size, entry.CacheControl, meta),
		&inserted,
	)
	if err != nil {
		return cloudpad.MetaData{}, false, fmt.Errorf("upsert: %w", err)
	}

	return m, inserted, nil
}

func (r *repo) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE object_key = $1`, r.tableName)

	result, err := r.pool.Exec(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete: %w", cloudpad.ErrNotFound)
	}

	return nil
}

func (r *repo) List(ctx context.Context) ([]cloudpad.MetaData, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY object_key COLLATE "C"`, selectColumns, r.tableName)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	items := []cloudpad.MetaData{}
	for rows.Next() {
		m, err := scanMetaData(rows)
		if err != nil {
			return nil, fmt.Errorf("list: scan: %w", err)
		}
		items = append(items, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: rows: %w", err)
	}

	return items, nil
}
