package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudpad/cloudpad"
	"github.com/google/uuid"
)

// repo implements cloudpad.MetaDataRepo. tableName is already quoted.
type repo struct {
	db        *sql.DB
	tableName string
}

const selectColumns = `id, object_key, content_type, etag, size_bytes, cache_control, custom_metadata, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMetaData(row rowScanner) (cloudpad.MetaData, error) {
	var m cloudpad.MetaData
	var idStr, metaJSON, createdAt, updatedAt string

	if err := row.Scan(&idStr, &m.Key, &m.ContentType, &m.ETag, &m.Size, &m.CacheControl, &metaJSON, &createdAt, &updatedAt); err != nil {
		return cloudpad.MetaData{}, err
	}

	var err error
	if m.ID, err = uuid.Parse(idStr); err != nil {
		return cloudpad.MetaData{}, fmt.Errorf("parse uuid: %w", err)
	}
	if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return cloudpad.MetaData{}, fmt.Errorf("parse created_at: %w", err)
	}
	if m.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return cloudpad.MetaData{}, fmt.Errorf("parse updated_at: %w", err)
	}
	if m.CustomMetadata, err = decodeMetadata(metaJSON); err != nil {
		return cloudpad.MetaData{}, err
	}

	return m, nil
}

func encodeMetadata(meta map[string]string) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode custom metadata: %w", err)
	}
	return string(b), nil
}

func decodeMetadata(s string) (map[string]string, error) {
	var meta map[string]string
	if err := json.Unmarshal([]byte(s), &meta); err != nil {
		return nil, fmt.Errorf("decode custom metadata: %w", err)
	}
	if len(meta) == 0 {
		return nil, nil
	}
	return meta, nil
}

func (r *repo) Get(ctx context.Context, key string) (cloudpad.MetaData, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE object_key = ?`, selectColumns, r.tableName) //nolint:gosec // G201: table name is validated

	m, err := scanMetaData(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cloudpad.MetaData{}, cloudpad.ErrNotFound
		}
		return cloudpad.MetaData{}, fmt.Errorf("get: %w", err)
	}

	return m, nil
}

// Upsert inserts a row or replaces every mutable column of the existing row
// for the same key. created_at and id survive updates.
func (r *repo) Upsert(ctx context.Context, entry cloudpad.ObjectEntry) (cloudpad.MetaData, bool, error) {
	metaJSON, err := encodeMetadata(entry.CustomMetadata)
	if err != nil {
		return cloudpad.MetaData{}, false, fmt.Errorf("upsert: %w", err)
	}

	newID := uuid.New()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, object_key, content_type, etag, size_bytes, cache_control, custom_metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (object_key) DO UPDATE
		SET content_type = excluded.content_type,
			etag = excluded.etag,
			size_bytes = excluded.size_bytes,
			cache_control = excluded.cache_control,
			custom_metadata = excluded.custom_metadata,
			updated_at = excluded.updated_at
		RETURNING %s`, r.tableName, selectColumns)

	m, err := scanMetaData(r.db.QueryRowContext(ctx, query,
		newID.String(), entry.Key, entry.ContentType, entry.ETag, entry.Size, entry.CacheControl, metaJSON, now, now,
	))
	if err != nil {
		return cloudpad.MetaData{}, false, fmt.Errorf("upsert: %w", err)
	}

	return m, m.ID == newID, nil
}

func (r *repo) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE object_key = ?`, r.tableName) //nolint:gosec // G201: table name is validated

	result, err := r.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete: %w", cloudpad.ErrNotFound)
	}

	return nil
}

func (r *repo) List(ctx context.Context) ([]cloudpad.MetaData, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY object_key`, selectColumns, r.tableName) //nolint:gosec // G201: table name is validated

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
