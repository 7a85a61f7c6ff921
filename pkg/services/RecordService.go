package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adampresley/photoportfolio/pkg/models"
	"github.com/rfberaldo/sqlz"
)

const (
	RecordKeyProfile    = "profile"
	RecordKeyPhotos     = "photos"
	RecordKeyCredential = "credential"
)

type RecordServicer interface {
	Load(ctx context.Context, key string) (string, bool, error)
	Save(ctx context.Context, key, value string) error
}

type RecordServiceConfig struct {
	DB         *sqlz.DB
	QuotaBytes int64
}

/*
RecordService is the durable key/value store. Every value is a full
record; saves overwrite, last write wins. When QuotaBytes is above
zero the combined size of all records may not exceed it.
*/
type RecordService struct {
	db         *sqlz.DB
	quotaBytes int64
	mu         *sync.Mutex
}

type record struct {
	RecordKey string `db:"record_key"`
	Value     string `db:"value"`
}

type recordUsage struct {
	Used int64 `db:"used"`
}

func NewRecordService(config RecordServiceConfig) RecordService {
	return RecordService{
		db:         config.DB,
		quotaBytes: config.QuotaBytes,
		mu:         &sync.Mutex{},
	}
}

func (s RecordService) Load(ctx context.Context, key string) (string, bool, error) {
	var (
		err error
	)

	result := record{}

	sql := `
SELECT
   r.record_key
   , r.value
FROM records AS r
WHERE 1=1
   AND r.record_key=?
   `

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	if err = s.db.QueryRow(ctx, &result, sql, key); err != nil {
		if sqlz.IsNotFound(err) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("error querying for record '%s': %w", key, err)
	}

	return result.Value, true, nil
}

func (s RecordService) Save(ctx context.Context, key, value string) error {
	var (
		err   error
		usage recordUsage
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	size := int64(len(value))

	if s.quotaBytes > 0 {
		sql := `
SELECT
   COALESCE(SUM(LENGTH(CAST(r.value AS BLOB))), 0) AS used
FROM records AS r
WHERE 1=1
   AND r.record_key<>?
   `

		queryCtx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()

		if err = s.db.QueryRow(queryCtx, &usage, sql, key); err != nil {
			return fmt.Errorf("error querying storage usage for record '%s': %w", key, err)
		}

		if usage.Used+size > s.quotaBytes {
			slog.Warn("record rejected, storage quota exceeded", "key", key, "size", size, "used", usage.Used, "quota", s.quotaBytes)

			return &models.CapacityError{
				Key:   key,
				Size:  size,
				Used:  usage.Used,
				Quota: s.quotaBytes,
			}
		}
	}

	sql := `
INSERT INTO records (
   record_key
   , value
   , updated_at
) VALUES (?, ?, ?)
ON CONFLICT(record_key) DO UPDATE SET
   value=excluded.value
   , updated_at=excluded.updated_at
`

	execCtx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	if _, err = s.db.Exec(execCtx, sql, key, value, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("error saving record '%s': %w", key, err)
	}

	slog.Debug("record saved", "key", key, "size", size)
	return nil
}

/*
LoadRecord reads a record and decodes it from JSON. found is false
when the key has never been written. A record that is not valid JSON
returns an error matching models.ErrCorruptRecord.
*/
func LoadRecord[T any](ctx context.Context, records RecordServicer, key string) (T, bool, error) {
	var (
		err    error
		result T
		raw    string
		found  bool
	)

	if raw, found, err = records.Load(ctx, key); err != nil || !found {
		return result, false, err
	}

	if err = json.Unmarshal([]byte(raw), &result); err != nil {
		return result, false, fmt.Errorf("%w: error decoding record '%s': %w", models.ErrCorruptRecord, key, err)
	}

	return result, true, nil
}

func SaveRecord[T any](ctx context.Context, records RecordServicer, key string, value T) error {
	var (
		err error
		b   []byte
	)

	if b, err = json.Marshal(value); err != nil {
		return fmt.Errorf("error encoding record '%s': %w", key, err)
	}

	return records.Save(ctx, key, string(b))
}
