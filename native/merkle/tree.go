package merkle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Tree is a sorted-pair Merkle tree over a fixed list of leaves. An odd node at
// the end of a level is promoted unchanged to the next level.
type Tree struct {
	levels [][]common.Hash
}

// NewTree builds the tree. At least one leaf is required.
func NewTree(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("merkle: at least one leaf required")
	}
	level := append([]common.Hash(nil), leaves...)
	levels := [][]common.Hash{level}
	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, HashPair(level[i], level[i+1]))
		}
		levels = append(levels, next)
		level = next
	}
	return &Tree{levels: levels}, nil
}

// Root returns the committed root.
func (t *Tree) Root() common.Hash {
	if t == nil || len(t.levels) == 0 {
		return common.Hash{}
	}
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	if t == nil || len(t.levels) == 0 {
		return 0
	}
	return len(t.levels[0])
}

// Proof returns the sibling path for the leaf at index.
func (t *Tree) Proof(index int) ([]common.Hash, error) {
	if index < 0 || index >= t.Len() {
		return nil, fmt.Errorf("merkle: leaf index %d out of range", index)
	}
	proof := make([]common.Hash, 0, len(t.levels)-1)
	pos := index
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := pos ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		pos /= 2
	}
	return proof, nil
}

// IndexOf locates a leaf, returning -1 when absent.
func (t *Tree) IndexOf(leaf common.Hash) int {
	if t == nil || len(t.levels) == 0 {
		return -1
	}
	for i, candidate := range t.levels[0] {
		if candidate == leaf {
			return i
		}
	}
	return -1
}
