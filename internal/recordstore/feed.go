package recordstore

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresFeed reads the change feed for one named consumer. The position is
// persisted in feed_offsets and only advances on Commit, so a batch whose
// processing fails is redelivered on the next Next call.
type PostgresFeed struct {
	DB       *pgxpool.Pool
	Consumer string
}

func NewPostgresFeed(db *pgxpool.Pool, consumer string) *PostgresFeed {
	return &PostgresFeed{DB: db, Consumer: consumer}
}

func (f *PostgresFeed) Next(ctx context.Context, limit int) ([]Change, error) {
	var last int64
	err := f.DB.QueryRow(ctx, `
    SELECT COALESCE(
      (SELECT last_seq FROM feed_offsets WHERE consumer = $1), 0)
  `, f.Consumer).Scan(&last)
	if err != nil {
		return nil, err
	}

	rows, err := f.DB.Query(ctx, `
    SELECT seq, pk, sk, kind, old_doc, new_doc
    FROM record_changes
    WHERE seq > $1
    ORDER BY seq
    LIMIT $2
  `, last, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batch []Change
	for rows.Next() {
		var c Change
		var kind string
		var oldRaw, newRaw []byte
		if err := rows.Scan(&c.Seq, &c.PK, &c.SK, &kind, &oldRaw, &newRaw); err != nil {
			return nil, err
		}
		c.Kind = EventKind(kind)
		if len(oldRaw) > 0 {
			if err := json.Unmarshal(oldRaw, &c.Old); err != nil {
				return nil, err
			}
		}
		if len(newRaw) > 0 {
			if err := json.Unmarshal(newRaw, &c.New); err != nil {
				return nil, err
			}
		}
		batch = append(batch, c)
	}
	return batch, rows.Err()
}

func (f *PostgresFeed) Commit(ctx context.Context, seq int64) error {
	_, err := f.DB.Exec(ctx, `
    INSERT INTO feed_offsets (consumer, last_seq) VALUES ($1, $2)
    ON CONFLICT (consumer) DO UPDATE SET last_seq = EXCLUDED.last_seq
  `, f.Consumer, seq)
	return err
}
