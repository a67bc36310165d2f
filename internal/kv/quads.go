package kv

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	badger "github.com/dgraph-io/badger/v2"

	"github.com/roach88/distill/internal/rdf"
)

// Insert adds quads in order, skipping quads already stored. Returns the
// number of quads actually added.
//
// Every quad is validated before anything is written. Batches too large
// for one Badger transaction are committed in several.
func (d *DB) Insert(ctx context.Context, quads ...rdf.Quad) (int, error) {
	for i, q := range quads {
		if err := q.Validate(); err != nil {
			return 0, fmt.Errorf("insert quads: quad %d: %w", i, err)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	w := &writer{d: d, txn: d.db.NewTransaction(true)}
	defer func() { w.txn.Discard() }()

	added := 0
	for i, q := range quads {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("insert quads: %w", err)
		}
		ok, err := w.insert(q)
		if err != nil {
			return 0, fmt.Errorf("insert quads: quad %d: %w", i, err)
		}
		if ok {
			added++
		}
	}
	if err := w.txn.Commit(); err != nil {
		return 0, fmt.Errorf("insert quads: commit: %w", err)
	}
	d.logger.Debug("inserted quads", "added", added, "skipped", len(quads)-added)
	return added, nil
}

type writer struct {
	d   *DB
	txn *badger.Txn
}

func (w *writer) insert(q rdf.Quad) (bool, error) {
	var ids [4]uint64
	for pos, t := range [4]rdf.Term{q.Subject, q.Predicate, q.Object, q.Graph} {
		id, err := w.termID(t)
		if err != nil {
			return false, err
		}
		ids[pos] = id
	}

	_, err := w.txn.Get(indexes[0].key(ids))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return false, err
	}

	seq, err := w.d.seqs.Next()
	if err != nil {
		return false, fmt.Errorf("next sequence: %w", err)
	}
	val := uint64Bytes(seq)
	for _, ix := range indexes {
		if err := w.set(ix.key(ids), val); err != nil {
			return false, err
		}
	}
	return true, w.set(seqKey(seq), encodeIDs(ids))
}

// termID interns t, allocating an id on first sight.
func (w *writer) termID(t rdf.Term) (uint64, error) {
	key := termKey(t)
	item, err := w.txn.Get(key)
	if err == nil {
		buf, err := item.ValueCopy(nil)
		if err != nil {
			return 0, err
		}
		if len(buf) != idWidth {
			return 0, fmt.Errorf("term id has length %d", len(buf))
		}
		return bytesUint64(buf), nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return 0, err
	}

	id, err := w.d.ids.Next()
	if err != nil {
		return 0, fmt.Errorf("next term id: %w", err)
	}
	if err := w.set(key, uint64Bytes(id)); err != nil {
		return 0, err
	}
	return id, w.set(idKey(id), key[1:])
}

// set writes the entry, committing and starting a new transaction when
// the current one is full.
func (w *writer) set(key, val []byte) error {
	err := w.txn.Set(key, val)
	if !errors.Is(err, badger.ErrTxnTooBig) {
		return err
	}
	if err := w.txn.Commit(); err != nil {
		return err
	}
	w.txn = w.d.db.NewTransaction(true)
	return w.txn.Set(key, val)
}

// Match implements rdf.Dataset. Results are in insertion order.
func (d *DB) Match(m rdf.QuadMatch) ([]rdf.Quad, error) {
	quads := []rdf.Quad{}
	err := d.db.View(func(txn *badger.Txn) error {
		r := reader{txn: txn, terms: make(map[uint64]rdf.Term)}

		var (
			ids   [4]uint64
			bound [4]bool
		)
		for pos, t := range [4]*rdf.Term{m.Subject, m.Predicate, m.Object, m.Graph} {
			if t == nil {
				continue
			}
			id, ok, err := r.lookupID(*t)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			ids[pos], bound[pos] = id, true
		}

		entries, err := r.scan(ids, bound)
		if err != nil {
			return err
		}
		for _, e := range entries {
			q, err := r.quad(e.ids)
			if err != nil {
				return err
			}
			quads = append(quads, q)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("match quads: %w", err)
	}
	return quads, nil
}

var _ rdf.Dataset = (*DB)(nil)

// Quads returns every stored quad in insertion order.
func (d *DB) Quads() ([]rdf.Quad, error) {
	return d.Match(rdf.QuadMatch{})
}

// Load copies the database into an in-memory dataset.
func (d *DB) Load() (*rdf.Memory, error) {
	quads, err := d.Quads()
	if err != nil {
		return nil, err
	}
	return rdf.NewMemory(quads...), nil
}

// Len returns the number of stored quads.
func (d *DB) Len() (int, error) {
	n := 0
	err := d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte{seqPrefix}})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count quads: %w", err)
	}
	return n, nil
}

type entry struct {
	seq uint64
	ids [4]uint64
}

type reader struct {
	txn   *badger.Txn
	terms map[uint64]rdf.Term
}

func (r *reader) lookupID(t rdf.Term) (uint64, bool, error) {
	item, err := r.txn.Get(termKey(t))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	buf, err := item.ValueCopy(nil)
	if err != nil {
		return 0, false, err
	}
	return bytesUint64(buf), true, nil
}

// scan collects the entries matching the bound ids, sorted by sequence.
func (r *reader) scan(ids [4]uint64, bound [4]bool) ([]entry, error) {
	if bound == [4]bool{} {
		return r.scanAll()
	}

	ix := chooseIndex(bound)
	prefix := ix.prefixFor(ids, bound)
	it := r.txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()

	var entries []entry
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		got, err := ix.ids(item.Key())
		if err != nil {
			return nil, err
		}
		if !matches(got, ids, bound) {
			continue
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{seq: bytesUint64(val), ids: got})
	}
	slices.SortFunc(entries, func(a, b entry) int { return cmp.Compare(a.seq, b.seq) })
	return entries, nil
}

// scanAll walks the sequence entries, which are already in order.
func (r *reader) scanAll() ([]entry, error) {
	prefix := []byte{seqPrefix}
	it := r.txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()

	var entries []entry
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		ids, err := decodeIDs(val)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{seq: bytesUint64(item.Key()[1:]), ids: ids})
	}
	return entries, nil
}

func matches(got, want [4]uint64, bound [4]bool) bool {
	for pos := range got {
		if bound[pos] && got[pos] != want[pos] {
			return false
		}
	}
	return true
}

func (r *reader) quad(ids [4]uint64) (rdf.Quad, error) {
	var terms [4]rdf.Term
	for pos, id := range ids {
		t, err := r.term(id)
		if err != nil {
			return rdf.Quad{}, err
		}
		terms[pos] = t
	}
	return rdf.NewQuad(terms[posS], terms[posP], terms[posO], terms[posG]), nil
}

func (r *reader) term(id uint64) (rdf.Term, error) {
	if t, ok := r.terms[id]; ok {
		return t, nil
	}
	item, err := r.txn.Get(idKey(id))
	if err != nil {
		return rdf.Term{}, fmt.Errorf("term %d: %w", id, err)
	}
	buf, err := item.ValueCopy(nil)
	if err != nil {
		return rdf.Term{}, err
	}
	t, err := decodeTerm(buf)
	if err != nil {
		return rdf.Term{}, fmt.Errorf("term %d: %w", id, err)
	}
	r.terms[id] = t
	return t, nil
}
