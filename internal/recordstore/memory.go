package recordstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store with the same transactional and
// change-feed semantics as the Postgres implementation. It backs tests and
// local development without a database.
type MemoryStore struct {
	mu      sync.Mutex
	items   map[Key]Doc
	changes []Change
	nextSeq int64
	offsets map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:   make(map[Key]Doc),
		offsets: make(map[string]int64),
		nextSeq: 1,
	}
}

func (s *MemoryStore) Get(_ context.Context, key Key) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.items[key]
	if !ok {
		return Item{}, ErrNotFound
	}
	return Item{PK: key.PK, SK: key.SK, Doc: cloneDoc(doc)}, nil
}

func (s *MemoryStore) Query(_ context.Context, pk string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []Item
	for key, doc := range s.items {
		if key.PK == pk {
			items = append(items, Item{PK: key.PK, SK: key.SK, Doc: cloneDoc(doc)})
		}
	}
	sortItems(items)
	return items, nil
}

func (s *MemoryStore) QueryPrefix(_ context.Context, prefix string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []Item
	for key, doc := range s.items {
		if strings.HasPrefix(key.PK, prefix) {
			items = append(items, Item{PK: key.PK, SK: key.SK, Doc: cloneDoc(doc)})
		}
	}
	sortItems(items)
	return items, nil
}

func (s *MemoryStore) Put(_ context.Context, op PutOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(op)
}

func (s *MemoryStore) Update(_ context.Context, op UpdateOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(op)
}

func (s *MemoryStore) TransactWrite(_ context.Context, ops []WriteOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Evaluate every precondition before touching any item so a failure
	// leaves the store untouched.
	for _, op := range ops {
		key := opKey(op)
		current, exists := s.items[key]
		var cond Condition
		switch {
		case op.Put != nil:
			cond = op.Put.Condition
		case op.Update != nil:
			cond = op.Update.Condition
		case op.Check != nil:
			cond = op.Check.Condition
		default:
			return fmt.Errorf("recordstore: empty write op")
		}
		if err := checkCondition(current, exists, cond); err != nil {
			return ErrTransactionCanceled
		}
	}

	for _, op := range ops {
		switch {
		case op.Put != nil:
			if err := s.put(*op.Put); err != nil {
				return ErrTransactionCanceled
			}
		case op.Update != nil:
			if err := s.update(*op.Update); err != nil {
				return ErrTransactionCanceled
			}
		}
	}
	return nil
}

func (s *MemoryStore) put(op PutOp) error {
	key := Key{PK: op.Item.PK, SK: op.Item.SK}
	current, exists := s.items[key]
	if err := checkCondition(current, exists, op.Condition); err != nil {
		return err
	}
	next := cloneDoc(op.Item.Doc)
	s.items[key] = next
	s.appendChange(key, current, next, exists)
	return nil
}

func (s *MemoryStore) update(op UpdateOp) error {
	current, exists := s.items[op.Key]
	if err := checkCondition(current, exists, op.Condition); err != nil {
		return err
	}
	next := cloneDoc(current)
	if next == nil {
		next = make(Doc, len(op.Set))
	}
	for k, v := range op.Set {
		next[k] = v
	}
	s.items[op.Key] = next
	s.appendChange(op.Key, current, next, exists)
	return nil
}

func (s *MemoryStore) appendChange(key Key, old, new Doc, existed bool) {
	kind := EventInsert
	var oldCopy Doc
	if existed {
		kind = EventModify
		oldCopy = cloneDoc(old)
	}
	s.changes = append(s.changes, Change{
		Seq:  s.nextSeq,
		PK:   key.PK,
		SK:   key.SK,
		Kind: kind,
		Old:  oldCopy,
		New:  cloneDoc(new),
	})
	s.nextSeq++
}

// MemoryFeed exposes the MemoryStore change log as a Feed.
type MemoryFeed struct {
	Store    *MemoryStore
	Consumer string
}

func (s *MemoryStore) Feed(consumer string) *MemoryFeed {
	return &MemoryFeed{Store: s, Consumer: consumer}
}

func (f *MemoryFeed) Next(_ context.Context, limit int) ([]Change, error) {
	f.Store.mu.Lock()
	defer f.Store.mu.Unlock()
	last := f.Store.offsets[f.Consumer]
	var batch []Change
	for _, c := range f.Store.changes {
		if c.Seq <= last {
			continue
		}
		batch = append(batch, c)
		if len(batch) == limit {
			break
		}
	}
	return batch, nil
}

func (f *MemoryFeed) Commit(_ context.Context, seq int64) error {
	f.Store.mu.Lock()
	defer f.Store.mu.Unlock()
	f.Store.offsets[f.Consumer] = seq
	return nil
}

func opKey(op WriteOp) Key {
	switch {
	case op.Put != nil:
		return Key{PK: op.Put.Item.PK, SK: op.Put.Item.SK}
	case op.Update != nil:
		return op.Update.Key
	case op.Check != nil:
		return op.Check.Key
	}
	return Key{}
}

func cloneDoc(doc Doc) Doc {
	if doc == nil {
		return nil
	}
	out := make(Doc, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func sortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].PK == items[j].PK {
			return items[i].SK < items[j].SK
		}
		return items[i].PK < items[j].PK
	})
}
