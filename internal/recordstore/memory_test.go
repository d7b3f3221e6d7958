package recordstore

import (
	"context"
	"errors"
	"testing"
)

func TestPutNotExistsCondition(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	op := PutOp{
		Item:      Item{PK: "A", SK: "S", Doc: Doc{"v": "1"}},
		Condition: Condition{NotExists: true},
	}
	if err := store.Put(ctx, op); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := store.Put(ctx, op); !errors.Is(err, ErrConditionFailed) {
		t.Fatalf("second put: got %v, want ErrConditionFailed", err)
	}
}

func TestUpdateFieldEqualsCondition(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, PutOp{Item: Item{PK: "A", SK: "S", Doc: Doc{"status": "ACTIVE"}}}); err != nil {
		t.Fatalf("put: %v", err)
	}

	err := store.Update(ctx, UpdateOp{
		Key:       Key{PK: "A", SK: "S"},
		Set:       Doc{"status": "INACTIVE"},
		Condition: Condition{Exists: true, FieldEquals: map[string]any{"status": "ACTIVE"}},
	})
	if err != nil {
		t.Fatalf("conditional update: %v", err)
	}

	err = store.Update(ctx, UpdateOp{
		Key:       Key{PK: "A", SK: "S"},
		Set:       Doc{"status": "INACTIVE"},
		Condition: Condition{Exists: true, FieldEquals: map[string]any{"status": "ACTIVE"}},
	})
	if !errors.Is(err, ErrConditionFailed) {
		t.Fatalf("repeat update: got %v, want ErrConditionFailed", err)
	}
}

func TestUpdateMergesFields(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, PutOp{Item: Item{PK: "A", SK: "S", Doc: Doc{"a": "1", "b": "2"}}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Update(ctx, UpdateOp{Key: Key{PK: "A", SK: "S"}, Set: Doc{"b": "3"}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	item, err := store.Get(ctx, Key{PK: "A", SK: "S"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item.Doc["a"] != "1" || item.Doc["b"] != "3" {
		t.Fatalf("unexpected doc after update: %v", item.Doc)
	}
}

func TestTransactWriteIsAtomic(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, PutOp{Item: Item{PK: "A", SK: "EXISTING", Doc: Doc{"v": "old"}}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ops := []WriteOp{
		{Put: &PutOp{Item: Item{PK: "A", SK: "NEW", Doc: Doc{"v": "1"}}, Condition: Condition{NotExists: true}}},
		{Put: &PutOp{Item: Item{PK: "A", SK: "EXISTING", Doc: Doc{"v": "clobbered"}}, Condition: Condition{NotExists: true}}},
	}
	if err := store.TransactWrite(ctx, ops); !errors.Is(err, ErrTransactionCanceled) {
		t.Fatalf("transact: got %v, want ErrTransactionCanceled", err)
	}

	if _, err := store.Get(ctx, Key{PK: "A", SK: "NEW"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("first op leaked through a canceled transaction: %v", err)
	}
	item, err := store.Get(ctx, Key{PK: "A", SK: "EXISTING"})
	if err != nil {
		t.Fatalf("get existing: %v", err)
	}
	if item.Doc["v"] != "old" {
		t.Fatalf("existing item modified by canceled transaction: %v", item.Doc)
	}
}

func TestTransactWriteCheckOp(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, PutOp{Item: Item{PK: "A", SK: "GATE", Doc: Doc{"status": "ACTIVE"}}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ops := []WriteOp{
		{Check: &CheckOp{
			Key:       Key{PK: "A", SK: "GATE"},
			Condition: Condition{Exists: true, FieldEquals: map[string]any{"status": "ACTIVE"}},
		}},
		{Update: &UpdateOp{Key: Key{PK: "A", SK: "DATA"}, Set: Doc{"v": "1"}}},
	}
	if err := store.TransactWrite(ctx, ops); err != nil {
		t.Fatalf("gated write: %v", err)
	}

	ops[0].Check.Condition.FieldEquals = map[string]any{"status": "INACTIVE"}
	if err := store.TransactWrite(ctx, ops); !errors.Is(err, ErrTransactionCanceled) {
		t.Fatalf("failed gate: got %v, want ErrTransactionCanceled", err)
	}
}

func TestFeedOrderingAndCommit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, v := range []string{"1", "2", "3"} {
		if err := store.Put(ctx, PutOp{Item: Item{PK: "A", SK: "S" + v, Doc: Doc{"v": v}}}); err != nil {
			t.Fatalf("put %s: %v", v, err)
		}
	}

	feed := store.Feed("test")
	batch, err := feed.Next(ctx, 2)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if len(batch) != 2 || batch[0].Seq != 1 || batch[1].Seq != 2 {
		t.Fatalf("unexpected batch: %+v", batch)
	}
	if batch[0].Kind != EventInsert {
		t.Fatalf("first change kind = %s, want INSERT", batch[0].Kind)
	}

	// Without a commit the same entries are redelivered.
	again, err := feed.Next(ctx, 2)
	if err != nil {
		t.Fatalf("redelivery next: %v", err)
	}
	if len(again) != 2 || again[0].Seq != 1 {
		t.Fatalf("expected redelivery from seq 1, got %+v", again)
	}

	if err := feed.Commit(ctx, batch[1].Seq); err != nil {
		t.Fatalf("commit: %v", err)
	}
	rest, err := feed.Next(ctx, 10)
	if err != nil {
		t.Fatalf("next after commit: %v", err)
	}
	if len(rest) != 1 || rest[0].Seq != 3 {
		t.Fatalf("unexpected tail batch: %+v", rest)
	}
}

func TestFeedCarriesBeforeAndAfterImages(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	key := Key{PK: "A", SK: "S"}
	if err := store.Put(ctx, PutOp{Item: Item{PK: key.PK, SK: key.SK, Doc: Doc{"v": "old"}}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Update(ctx, UpdateOp{Key: key, Set: Doc{"v": "new"}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	batch, err := store.Feed("test").Next(ctx, 10)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(batch))
	}
	mod := batch[1]
	if mod.Kind != EventModify {
		t.Fatalf("second change kind = %s, want MODIFY", mod.Kind)
	}
	if mod.Old["v"] != "old" || mod.New["v"] != "new" {
		t.Fatalf("unexpected images: old=%v new=%v", mod.Old, mod.New)
	}
}

func TestQueryPrefix(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	docs := map[Key]Doc{
		{PK: "ORG#DEPARTMENT#1", SK: "METADATA"}: {"n": "a"},
		{PK: "ORG#DEPARTMENT#2", SK: "METADATA"}: {"n": "b"},
		{PK: "ORG#POSITION#1", SK: "METADATA"}:   {"n": "c"},
	}
	for key, doc := range docs {
		if err := store.Put(ctx, PutOp{Item: Item{PK: key.PK, SK: key.SK, Doc: doc}}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	items, err := store.QueryPrefix(ctx, "ORG#DEPARTMENT#")
	if err != nil {
		t.Fatalf("query prefix: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 departments, got %d", len(items))
	}
	if items[0].PK > items[1].PK {
		t.Fatalf("items not sorted: %s, %s", items[0].PK, items[1].PK)
	}
}

func TestValueEqualNumericNormalization(t *testing.T) {
	if !ValueEqual(float64(30), 30) {
		t.Fatal("float64(30) and int 30 should compare equal")
	}
	if ValueEqual("a", "b") {
		t.Fatal("distinct strings compared equal")
	}
	if !ValueEqual(nil, nil) {
		t.Fatal("nil values should compare equal")
	}
}
