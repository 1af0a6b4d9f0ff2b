package state

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"rcavault/storage/trie"
)

var paramPrefix = []byte("params:")

// Manager provides RLP-encoded key/value access to the protocol state held in
// a Merkle-Patricia trie. It also journals trie copies so a failed entry point
// can be rolled back to the state it started from.
//
// Manager is not safe for concurrent use; entry points are serialised by the
// caller the same way a block executes transactions one at a time.
type Manager struct {
	trie      *trie.Trie
	snapshots []*trie.Trie
}

// NewManager creates a state manager operating on the provided trie.
func NewManager(tr *trie.Trie) *Manager {
	return &Manager{trie: tr}
}

// NewMemoryManager creates a state manager over a fresh in-memory trie.
func NewMemoryManager() (*Manager, error) {
	tr, err := trie.NewMemoryTrie()
	if err != nil {
		return nil, err
	}
	return NewManager(tr), nil
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// Root returns the state root reflecting all uncommitted mutations.
func (m *Manager) Root() common.Hash {
	return m.trie.Hash()
}

// Commit flushes the trie to its node database. Outstanding snapshots are
// discarded because they can no longer be reverted to safely.
func (m *Manager) Commit() (common.Hash, error) {
	m.snapshots = nil
	return m.trie.Commit()
}

// Snapshot records the current state and returns an identifier that can be
// passed to RevertToSnapshot or ReleaseSnapshot.
func (m *Manager) Snapshot() int {
	m.snapshots = append(m.snapshots, m.trie.Copy())
	return len(m.snapshots) - 1
}

// RevertToSnapshot restores the state captured by Snapshot(id) and drops it
// together with every later snapshot.
func (m *Manager) RevertToSnapshot(id int) {
	if id < 0 || id >= len(m.snapshots) {
		return
	}
	m.trie = m.snapshots[id]
	m.snapshots = m.snapshots[:id]
}

// ReleaseSnapshot drops Snapshot(id) and every later snapshot, keeping the
// current state.
func (m *Manager) ReleaseSnapshot(id int) {
	if id < 0 || id >= len(m.snapshots) {
		return
	}
	m.snapshots = m.snapshots[:id]
}

// KVPut stores the RLP encoding of value under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.trie.Update(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.trie.Get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes key from state.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.trie.Delete(kvKey(key))
}

// KVAppend appends the provided value to the RLP-encoded byte slice list stored
// under the supplied key. Duplicate values are ignored to keep the index
// deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	var list [][]byte
	if _, err := m.KVGet(key, &list); err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return m.KVPut(key, list)
}

// KVRemove deletes value from the byte slice list stored under key.
func (m *Manager) KVRemove(key []byte, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	var list [][]byte
	if _, err := m.KVGet(key, &list); err != nil {
		return err
	}
	filtered := list[:0]
	for _, existing := range list {
		if !bytes.Equal(existing, value) {
			filtered = append(filtered, existing)
		}
	}
	if len(filtered) == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, filtered)
}

// KVGetList decodes the list stored under key into out, which must point to a
// slice. Missing keys yield an empty slice.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.trie.Get(kvKey(key))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		val := reflect.ValueOf(out)
		if val.Kind() != reflect.Ptr || val.IsNil() {
			return fmt.Errorf("kv: destination must be a non-nil pointer")
		}
		elem := val.Elem()
		if elem.Kind() != reflect.Slice {
			return fmt.Errorf("kv: destination must point to a slice")
		}
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
		return nil
	}
	return rlp.DecodeBytes(data, out)
}

// ParamStoreSet stores a raw governance parameter.
func (m *Manager) ParamStoreSet(name string, value []byte) error {
	return m.KVPut(append(append([]byte(nil), paramPrefix...), name...), value)
}

// ParamStoreGet loads a raw governance parameter.
func (m *Manager) ParamStoreGet(name string) ([]byte, bool, error) {
	var value []byte
	ok, err := m.KVGet(append(append([]byte(nil), paramPrefix...), name...), &value)
	if err != nil || !ok {
		return nil, ok, err
	}
	return value, true, nil
}
