package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists items in a single `records` table and appends every
// mutation to `record_changes` inside the same transaction, which gives the
// change feed exact commit ordering.
type PostgresStore struct {
	DB *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{DB: db}
}

// feedLockID is the advisory-lock key ("hrms" in ASCII) serializing write
// transactions. Feed sequence numbers are assigned at insert but
// transactions commit in any order, so without the lock a consumer could
// commit its offset past a lower sequence that becomes visible later and
// lose that change for good. Taking the xact-scoped lock before any row
// work (rather than just before the feed insert) keeps it ordered ahead of
// every row lock, so writers cannot deadlock on it.
const feedLockID int64 = 0x68726d73

func (s *PostgresStore) Get(ctx context.Context, key Key) (Item, error) {
	var raw []byte
	err := s.DB.QueryRow(ctx, `
    SELECT doc FROM records WHERE pk = $1 AND sk = $2
  `, key.PK, key.SK).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, err
	}
	doc, err := decodeDoc(raw)
	if err != nil {
		return Item{}, err
	}
	return Item{PK: key.PK, SK: key.SK, Doc: doc}, nil
}

func (s *PostgresStore) Query(ctx context.Context, pk string) ([]Item, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT pk, sk, doc FROM records WHERE pk = $1 ORDER BY sk
  `, pk)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func (s *PostgresStore) QueryPrefix(ctx context.Context, prefix string) ([]Item, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT pk, sk, doc FROM records WHERE pk LIKE $1 || '%' ORDER BY pk, sk
  `, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func (s *PostgresStore) Put(ctx context.Context, op PutOp) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := applyPut(ctx, tx, op); err != nil {
			if errors.Is(err, ErrConditionFailed) {
				return ErrConditionFailed
			}
			return err
		}
		return nil
	})
}

func (s *PostgresStore) Update(ctx context.Context, op UpdateOp) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		return applyUpdate(ctx, tx, op)
	})
}

func (s *PostgresStore) TransactWrite(ctx context.Context, ops []WriteOp) error {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		// Lock every touched key in a stable order first so concurrent
		// transactions cannot deadlock, and so all preconditions are
		// evaluated against a consistent snapshot.
		keys := make([]Key, 0, len(ops))
		for _, op := range ops {
			keys = append(keys, opKey(op))
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].PK == keys[j].PK {
				return keys[i].SK < keys[j].SK
			}
			return keys[i].PK < keys[j].PK
		})
		for _, key := range keys {
			if _, _, err := lockItem(ctx, tx, key); err != nil {
				return err
			}
		}

		for _, op := range ops {
			var err error
			switch {
			case op.Put != nil:
				err = applyPut(ctx, tx, *op.Put)
			case op.Update != nil:
				err = applyUpdate(ctx, tx, *op.Update)
			case op.Check != nil:
				err = applyCheck(ctx, tx, *op.Check)
			default:
				err = fmt.Errorf("recordstore: empty write op")
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, ErrConditionFailed) {
		return ErrTransactionCanceled
	}
	return err
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, feedLockID); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func lockItem(ctx context.Context, tx pgx.Tx, key Key) (Doc, bool, error) {
	var raw []byte
	err := tx.QueryRow(ctx, `
    SELECT doc FROM records WHERE pk = $1 AND sk = $2 FOR UPDATE
  `, key.PK, key.SK).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	doc, err := decodeDoc(raw)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func applyPut(ctx context.Context, tx pgx.Tx, op PutOp) error {
	key := Key{PK: op.Item.PK, SK: op.Item.SK}
	raw, err := json.Marshal(op.Item.Doc)
	if err != nil {
		return err
	}

	if op.Condition.NotExists && !op.Condition.Exists && len(op.Condition.FieldEquals) == 0 {
		// An absent row cannot be row-locked, so two racing creators would
		// both pass a read-then-check. The existence test rides on the
		// insert instead: the loser's conflict is skipped and the zero row
		// count reports the failed condition.
		tag, err := tx.Exec(ctx, `
    INSERT INTO records (pk, sk, doc) VALUES ($1, $2, $3)
    ON CONFLICT (pk, sk) DO NOTHING
  `, key.PK, key.SK, raw)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrConditionFailed
		}
		return appendChange(ctx, tx, key, nil, op.Item.Doc, false)
	}

	current, exists, err := lockItem(ctx, tx, key)
	if err != nil {
		return err
	}
	if err := checkCondition(current, exists, op.Condition); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
    INSERT INTO records (pk, sk, doc) VALUES ($1, $2, $3)
    ON CONFLICT (pk, sk) DO UPDATE SET doc = EXCLUDED.doc
  `, key.PK, key.SK, raw); err != nil {
		return err
	}
	return appendChange(ctx, tx, key, current, op.Item.Doc, exists)
}

func applyUpdate(ctx context.Context, tx pgx.Tx, op UpdateOp) error {
	current, exists, err := lockItem(ctx, tx, op.Key)
	if err != nil {
		return err
	}
	if err := checkCondition(current, exists, op.Condition); err != nil {
		return err
	}
	next := make(Doc, len(current)+len(op.Set))
	for k, v := range current {
		next[k] = v
	}
	for k, v := range op.Set {
		next[k] = v
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
    INSERT INTO records (pk, sk, doc) VALUES ($1, $2, $3)
    ON CONFLICT (pk, sk) DO UPDATE SET doc = EXCLUDED.doc
  `, op.Key.PK, op.Key.SK, raw); err != nil {
		return err
	}
	return appendChange(ctx, tx, op.Key, current, next, exists)
}

func applyCheck(ctx context.Context, tx pgx.Tx, op CheckOp) error {
	current, exists, err := lockItem(ctx, tx, op.Key)
	if err != nil {
		return err
	}
	return checkCondition(current, exists, op.Condition)
}

func checkCondition(current Doc, exists bool, cond Condition) error {
	if cond.Zero() {
		return nil
	}
	if cond.NotExists && exists {
		return ErrConditionFailed
	}
	if (cond.Exists || len(cond.FieldEquals) > 0) && !exists {
		return ErrConditionFailed
	}
	for field, want := range cond.FieldEquals {
		got, ok := current[field]
		if !ok || !ValueEqual(got, want) {
			return ErrConditionFailed
		}
	}
	return nil
}

func appendChange(ctx context.Context, tx pgx.Tx, key Key, old, new Doc, existed bool) error {
	kind := EventInsert
	if existed {
		kind = EventModify
	}
	var oldRaw []byte
	if existed {
		var err error
		oldRaw, err = json.Marshal(old)
		if err != nil {
			return err
		}
	}
	newRaw, err := json.Marshal(new)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
    INSERT INTO record_changes (pk, sk, kind, old_doc, new_doc)
    VALUES ($1, $2, $3, $4, $5)
  `, key.PK, key.SK, string(kind), oldRaw, newRaw)
	return err
}

func scanItems(rows pgx.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var item Item
		var raw []byte
		if err := rows.Scan(&item.PK, &item.SK, &raw); err != nil {
			return nil, err
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			return nil, err
		}
		item.Doc = doc
		items = append(items, item)
	}
	return items, rows.Err()
}

func decodeDoc(raw []byte) (Doc, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var doc Doc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
