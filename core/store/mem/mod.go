// Package mem implements an in-memory staging layer over a readable store.
//
// A trie only keeps the updates made on top of its parent. Reads fall back to
// the parent when a key has not been touched. The updates are applied to a
// writable store with Commit, which is how a transaction is either fully
// applied or discarded.
package mem

import (
	"sort"

	"go.dedis.ch/jellybean/core/store"
	"golang.org/x/xerrors"
)

type item struct {
	value   []byte
	deleted bool
}

// Trie is an in-memory implementation of a staged store.
//
// - implements store.Snapshot
type Trie struct {
	parent store.Readable
	store  map[string]item
}

// NewTrie creates a new empty trie without parent.
func NewTrie() *Trie {
	return NewTrieOver(nil)
}

// NewTrieOver creates a new empty trie that reads through the parent for the
// keys it does not know about.
func NewTrieOver(parent store.Readable) *Trie {
	return &Trie{
		parent: parent,
		store:  make(map[string]item),
	}
}

// Get implements store.Readable. It returns nil if the key does not exist.
func (t *Trie) Get(key []byte) ([]byte, error) {
	it, found := t.store[string(key)]
	if found {
		if it.deleted {
			return nil, nil
		}

		return it.value, nil
	}

	if t.parent == nil {
		return nil, nil
	}

	value, err := t.parent.Get(key)
	if err != nil {
		return nil, xerrors.Errorf("parent: %v", err)
	}

	return value, nil
}

// Set implements store.Writable.
func (t *Trie) Set(key, value []byte) error {
	buffer := make([]byte, len(value))
	copy(buffer, value)

	t.store[string(key)] = item{value: buffer}

	return nil
}

// Delete implements store.Writable.
func (t *Trie) Delete(key []byte) error {
	t.store[string(key)] = item{deleted: true}

	return nil
}

// Len returns the number of keys touched by the trie.
func (t *Trie) Len() int {
	return len(t.store)
}

// Stage creates a child of the trie and executes the callback with it. The
// trie is left untouched whatever the callback does. The child is returned
// only when the callback succeeds.
func (t *Trie) Stage(fn func(store.Snapshot) error) (*Trie, error) {
	child := NewTrieOver(t)

	err := fn(child)
	if err != nil {
		return nil, err
	}

	return child, nil
}

// Commit applies the updates of the trie to the writable store in the order of
// the keys.
func (t *Trie) Commit(w store.Writable) error {
	keys := make([]string, 0, len(t.store))
	for key := range t.store {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		it := t.store[key]

		var err error
		if it.deleted {
			err = w.Delete([]byte(key))
		} else {
			err = w.Set([]byte(key), it.value)
		}

		if err != nil {
			return xerrors.Errorf("failed to apply key %#x: %v", key, err)
		}
	}

	return nil
}
