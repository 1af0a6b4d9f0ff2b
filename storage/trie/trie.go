// Package trie adapts go-ethereum's Merkle-Patricia trie to the small
// read, write and commit surface the state manager needs.
package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/trie/trienode"
	"github.com/ethereum/go-ethereum/triedb"
)

// Trie is a reusable handle on a committed root plus pending writes. It is
// not safe for concurrent use.
type Trie struct {
	nodes     *triedb.Database
	current   *gethtrie.Trie
	committed common.Hash
	commits   uint64
}

// NewMemoryTrie opens an empty trie over an in-memory node database.
func NewMemoryTrie() (*Trie, error) {
	return Open(rawdb.NewDatabase(memorydb.New()), common.Hash{})
}

// Open loads the trie committed at root in db. The zero hash opens the empty
// trie.
func Open(db ethdb.Database, root common.Hash) (*Trie, error) {
	if root == (common.Hash{}) {
		root = gethtypes.EmptyRootHash
	}
	t := &Trie{nodes: triedb.NewDatabase(db, triedb.HashDefaults)}
	if err := t.load(root); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Trie) load(root common.Hash) error {
	tr, err := gethtrie.New(gethtrie.TrieID(root), t.nodes)
	if err != nil {
		return fmt.Errorf("trie: open %s: %w", root.Hex(), err)
	}
	t.current = tr
	t.committed = root
	return nil
}

// Get returns the value under key, nil when absent.
func (t *Trie) Get(key []byte) ([]byte, error) { return t.current.Get(key) }

// Update writes value under key. An empty value deletes the key.
func (t *Trie) Update(key, value []byte) error { return t.current.Update(key, value) }

// Delete removes key.
func (t *Trie) Delete(key []byte) error { return t.current.Delete(key) }

// Hash is the root including pending writes.
func (t *Trie) Hash() common.Hash { return t.current.Hash() }

// Root is the last committed root.
func (t *Trie) Root() common.Hash { return t.committed }

// Reset drops pending writes and reopens the trie at root.
func (t *Trie) Reset(root common.Hash) error { return t.load(root) }

// Copy returns an independent handle sharing the node database.
func (t *Trie) Copy() *Trie {
	return &Trie{nodes: t.nodes, current: t.current.Copy(), committed: t.committed, commits: t.commits}
}

// Commit flushes pending writes to the node database and reopens the trie at
// the new root.
func (t *Trie) Commit() (common.Hash, error) {
	root, set := t.current.Commit(false)
	if set != nil {
		if err := t.nodes.Update(root, t.committed, t.commits+1, trienode.NewWithNodeSet(set), nil); err != nil {
			return common.Hash{}, fmt.Errorf("trie: update node database: %w", err)
		}
		if err := t.nodes.Commit(root, false); err != nil {
			return common.Hash{}, fmt.Errorf("trie: commit %s: %w", root.Hex(), err)
		}
	}
	t.commits++
	return root, t.load(root)
}
