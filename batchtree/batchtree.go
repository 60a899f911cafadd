// Package batchtree commits to an ordered batch of message digests with a
// lean incremental Merkle tree:
//   - dynamic depth (ceil(log2(size)))
//   - no zero nodes; if a right child is missing, parent = left child
//   - proofs omit missing siblings and encode the path as an index integer.
package batchtree

import (
	"errors"
	"strconv"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	msghash "github.com/vocdoni/starkex-msghash-go"
)

// Tree is a lean incremental Merkle tree of field elements. It is safe for
// concurrent use by multiple goroutines.
type Tree struct {
	mu    sync.RWMutex // protects nodes
	nodes [][]fp.Element
	hash  msghash.Hasher
}

// New creates an empty tree using hash for internal nodes.
func New(hash msghash.Hasher) (*Tree, error) {
	if hash == nil {
		return nil, errors.New("parameter 'hash' is not defined")
	}
	return &Tree{
		nodes: [][]fp.Element{make([]fp.Element, 0)}, // level 0 = leaves
		hash:  hash,
	}, nil
}

// NewPedersen creates an empty tree hashed with Pedersen.
func NewPedersen() *Tree {
	t, _ := New(msghash.PedersenHasher)
	return t
}

// Depth returns the current dynamic depth (levels - 1).
func (t *Tree) Depth() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes) - 1
}

// Size returns the number of leaves.
func (t *Tree) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes[0])
}

// Leaves returns a copy of the leaves.
func (t *Tree) Leaves() []fp.Element {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cp := make([]fp.Element, len(t.nodes[0]))
	copy(cp, t.nodes[0])
	return cp
}

// Root returns the root and whether the tree has one.
func (t *Tree) Root() (fp.Element, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rootUnsafe()
}

func (t *Tree) rootUnsafe() (fp.Element, bool) {
	top := t.nodes[len(t.nodes)-1]
	if len(top) == 0 {
		return fp.Element{}, false
	}
	return top[0], true
}

// IndexOf returns the index of leaf, or -1 if it is not present.
func (t *Tree) IndexOf(leaf fp.Element) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := range t.nodes[0] {
		if t.nodes[0][i].Equal(&leaf) {
			return i
		}
	}
	return -1
}

// Insert appends a leaf and updates its path to the root.
func (t *Tree) Insert(leaf fp.Element) {
	t.mu.Lock()
	defer t.mu.Unlock()

	nextSize := len(t.nodes[0]) + 1
	if len(t.nodes)-1 < ceilLog2(nextSize) {
		t.nodes = append(t.nodes, make([]fp.Element, 0))
	}

	node := leaf
	index := len(t.nodes[0])
	t.nodes[0] = append(t.nodes[0], node)

	depth := len(t.nodes) - 1
	for level := range depth {
		if level > 0 {
			setAt(&t.nodes[level], index, node)
		}
		if index&1 == 1 {
			sibling := t.nodes[level][index-1]
			node = t.hash(&sibling, &node)
		}
		index >>= 1
	}
	t.nodes[depth] = append(t.nodes[depth][:0], node)
}

// InsertMany appends leaves in one pass, hashing each touched parent once.
func (t *Tree) InsertMany(leaves []fp.Element) error {
	if len(leaves) == 0 {
		return errors.New("there are no leaves to add")
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	startIndex := len(t.nodes[0]) >> 1
	t.nodes[0] = append(t.nodes[0], leaves...)

	for range ceilLog2(len(t.nodes[0])) - (len(t.nodes) - 1) {
		t.nodes = append(t.nodes, make([]fp.Element, 0))
	}

	for level := 0; level < len(t.nodes)-1; level++ {
		numNodes := (len(t.nodes[level]) + 1) / 2
		for index := startIndex; index < numNodes; index++ {
			li, ri := index*2, index*2+1
			parent := t.nodes[level][li]
			if ri < len(t.nodes[level]) {
				parent = t.hash(&t.nodes[level][li], &t.nodes[level][ri])
			}
			setAt(&t.nodes[level+1], index, parent)
		}
		startIndex >>= 1
	}
	return nil
}

// ceilLog2 returns minimal d >= 0 such that 2^d >= n.
func ceilLog2(n int) int {
	d := 0
	for x := n - 1; x > 0; x >>= 1 {
		d++
	}
	return d
}

// setAt grows s so that s[index] is addressable and stores v there.
func setAt(s *[]fp.Element, index int, v fp.Element) {
	if index >= len(*s) {
		*s = append(*s, make([]fp.Element, index+1-len(*s))...)
	}
	(*s)[index] = v
}

func errLeafOutOfRange(index int) error {
	return errors.New("leaf index " + strconv.Itoa(index) + " is out of range")
}
