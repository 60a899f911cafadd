package batchtree

import (
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	msghash "github.com/vocdoni/starkex-msghash-go"
)

// Proof contains the fields needed to verify membership:
// - Root: root at the time of proof
// - Leaf: the leaf value
// - Index: packed path bits (LSB is first sibling combined)
// - Siblings: the sibling nodes included (missing siblings are omitted)
type Proof struct {
	Root     fp.Element
	Leaf     fp.Element
	Index    uint64
	Siblings []fp.Element
}

// GenerateProof builds a proof for the leaf at index.
func (t *Tree) GenerateProof(index int) (Proof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if index < 0 || index >= len(t.nodes[0]) {
		return Proof{}, errLeafOutOfRange(index)
	}

	depth := len(t.nodes) - 1
	leaf := t.nodes[0][index]
	siblings := make([]fp.Element, 0, depth)
	var packed uint64

	for level := range depth {
		if index&1 == 1 {
			// a right node always has its left sibling
			packed |= 1 << uint(len(siblings))
			siblings = append(siblings, t.nodes[level][index-1])
		} else if ri := index + 1; ri < len(t.nodes[level]) {
			siblings = append(siblings, t.nodes[level][ri])
		}
		index >>= 1
	}

	root, _ := t.rootUnsafe()
	return Proof{
		Root:     root,
		Leaf:     leaf,
		Index:    packed,
		Siblings: siblings,
	}, nil
}

// VerifyProof verifies a proof with the tree's hash function.
func (t *Tree) VerifyProof(proof Proof) bool {
	return Verify(proof, t.hash)
}

// Verify recomputes the root from the proof path and compares it with
// proof.Root.
func Verify(proof Proof, hash msghash.Hasher) bool {
	if hash == nil {
		return false
	}
	node := proof.Leaf
	for i := range proof.Siblings {
		if (proof.Index>>uint(i))&1 == 1 {
			node = hash(&proof.Siblings[i], &node)
		} else {
			node = hash(&node, &proof.Siblings[i])
		}
	}
	return node.Equal(&proof.Root)
}
