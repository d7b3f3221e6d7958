package recordstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"hrms/internal/platform/db"
)

// The tests below exercise guarantees only a live database can violate:
// feed visibility under concurrent commits and conditional inserts racing
// on absent rows. They run against TEST_DATABASE_URL and skip without it.

func newPostgresStore(t *testing.T) (*PostgresStore, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool, "../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `
    TRUNCATE records, record_changes, feed_offsets RESTART IDENTITY
  `); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return NewPostgresStore(pool), pool
}

func TestPostgresPutNotExistsUnderContention(t *testing.T) {
	store, _ := newPostgresStore(t)
	ctx := context.Background()

	const writers = 16
	var wins, losses int64
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			op := PutOp{
				Item: Item{
					PK:  "EMPLOYEE#contended",
					SK:  "ATTENDANCE#2026-03-02",
					Doc: Doc{"writer": float64(n)},
				},
				Condition: Condition{NotExists: true},
			}
			switch err := store.Put(ctx, op); {
			case err == nil:
				atomic.AddInt64(&wins, 1)
			case errors.Is(err, ErrConditionFailed):
				atomic.AddInt64(&losses, 1)
			default:
				t.Errorf("writer %d: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 || losses != writers-1 {
		t.Fatalf("wins = %d, losses = %d; exactly one writer may create the row", wins, losses)
	}

	// The losers left no trace: one stored row, one INSERT feed entry.
	var rowCount, changeCount int
	pool := store.DB
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM records`).Scan(&rowCount); err != nil {
		t.Fatalf("count records: %v", err)
	}
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM record_changes`).Scan(&changeCount); err != nil {
		t.Fatalf("count changes: %v", err)
	}
	if rowCount != 1 || changeCount != 1 {
		t.Fatalf("rows = %d, changes = %d, want 1 and 1", rowCount, changeCount)
	}
}

func TestPostgresFeedDeliversEveryConcurrentChange(t *testing.T) {
	store, pool := newPostgresStore(t)
	ctx := context.Background()
	feed := NewPostgresFeed(pool, "contract-test")

	const writers = 8
	const perWriter = 25
	const total = writers * perWriter

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				op := PutOp{Item: Item{
					PK:  fmt.Sprintf("EMPLOYEE#w%d", w),
					SK:  fmt.Sprintf("ATTENDANCE#2026-01-%02d", i+1),
					Doc: Doc{"entry": float64(i)},
				}}
				if err := store.Put(ctx, op); err != nil {
					t.Errorf("writer %d put %d: %v", w, i, err)
					return
				}
			}
		}(w)
	}

	// Consume concurrently with the writers. A change committed after the
	// offset passed its sequence number would never show up and the drain
	// below would time out short of the total.
	delivered := 0
	var lastSeq int64
	deadline := time.Now().Add(30 * time.Second)
	for delivered < total {
		if time.Now().After(deadline) {
			t.Fatalf("delivered %d of %d changes before timeout", delivered, total)
		}
		batch, err := feed.Next(ctx, 7)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if len(batch) == 0 {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		for _, c := range batch {
			if c.Seq <= lastSeq {
				t.Fatalf("seq %d delivered after %d", c.Seq, lastSeq)
			}
			lastSeq = c.Seq
		}
		delivered += len(batch)
		if err := feed.Commit(ctx, lastSeq); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}
	wg.Wait()

	if rest, err := feed.Next(ctx, total); err != nil || len(rest) != 0 {
		t.Fatalf("feed not drained: %d extra entries, err %v", len(rest), err)
	}
}
