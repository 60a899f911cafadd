// Package registry keeps signed StarkEx messages keyed by their message
// hash. Every accepted digest is appended to a Pedersen batch tree, so the
// registry root commits to the whole ordered batch.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/davinci-node/db"
	"github.com/vocdoni/davinci-node/db/metadb"
	msghash "github.com/vocdoni/starkex-msghash-go"
	"github.com/vocdoni/starkex-msghash-go/batchtree"
)

// Kind tells which message an entry holds.
type Kind string

const (
	KindTransfer   Kind = "transfer"
	KindLimitOrder Kind = "limit_order"
)

// Entry is a registered, signature-checked message.
type Entry struct {
	Index      uint64                     `json:"index"`
	Digest     common.Hash                `json:"digest"`
	Kind       Kind                       `json:"kind"`
	StarkKey   string                     `json:"stark_key"`
	Signature  msghash.Signature          `json:"signature"`
	Transfer   *msghash.TransferRequest   `json:"transfer,omitempty"`
	LimitOrder *msghash.LimitOrderRequest `json:"limit_order,omitempty"`
}

// Proof shows that a digest belongs to the batch committed by Root.
type Proof struct {
	Root     common.Hash   `json:"root"`
	Digest   common.Hash   `json:"digest"`
	Index    uint64        `json:"index"`
	Siblings []common.Hash `json:"siblings"`
}

// Dump is a full export of the registry.
type Dump struct {
	Root         common.Hash `json:"root"`
	Timestamp    time.Time   `json:"timestamp"`
	TotalEntries int         `json:"totalEntries"`
	Entries      []Entry     `json:"entries"`
}

// Errors
var (
	ErrAlreadyRegistered = errors.New("message already registered")
	ErrNotFound          = errors.New("message not found in registry")
	ErrInvalidSignature  = errors.New("signature does not match stark key")
	ErrEmptyRegistry     = errors.New("registry is empty")
	ErrNotEmptyRegistry  = errors.New("registry is not empty")
	ErrBadDump           = errors.New("invalid registry dump")
	ErrDataCorruption    = errors.New("registry data corruption detected")
)

// Registry stores signed messages, optionally persisted in a db.Database.
type Registry struct {
	tree    *batchtree.Tree
	entries map[common.Hash]*Entry
	digests []common.Hash // by index
	db      db.Database   // nil for in-memory only
	log     *slog.Logger
	mu      sync.RWMutex
}

// New creates a registry on top of database, loading any stored entries.
// A nil database keeps everything in memory; a nil log discards output.
func New(database db.Database, log *slog.Logger) (*Registry, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Registry{
		tree:    batchtree.NewPedersen(),
		entries: make(map[common.Hash]*Entry),
		db:      database,
		log:     log,
	}
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewWithPebble creates a registry backed by a Pebble database in datadir.
func NewWithPebble(datadir string, log *slog.Logger) (*Registry, error) {
	database, err := metadb.New(db.TypePebble, datadir)
	if err != nil {
		return nil, err
	}
	return New(database, log)
}

// AddTransfer hashes req, checks sig against the sender's stark key and
// registers the transfer. It returns the message hash.
func (r *Registry) AddTransfer(req msghash.TransferRequest, starkKey string, sig msghash.Signature) (common.Hash, error) {
	digest, err := req.Hash()
	if err != nil {
		return common.Hash{}, err
	}
	return r.add(&Entry{
		Kind:      KindTransfer,
		StarkKey:  starkKey,
		Signature: sig,
		Transfer:  &req,
	}, digest)
}

// AddLimitOrder hashes req, checks sig against the owner's stark key and
// registers the order. It returns the message hash.
func (r *Registry) AddLimitOrder(req msghash.LimitOrderRequest, starkKey string, sig msghash.Signature) (common.Hash, error) {
	digest, err := req.Hash()
	if err != nil {
		return common.Hash{}, err
	}
	return r.add(&Entry{
		Kind:       KindLimitOrder,
		StarkKey:   starkKey,
		Signature:  sig,
		LimitOrder: &req,
	}, digest)
}

func (r *Registry) add(entry *Entry, digest fp.Element) (common.Hash, error) {
	if err := checkSignature(entry, &digest); err != nil {
		return common.Hash{}, err
	}
	entry.Digest = msghash.FeltToHash(&digest)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.Digest]; exists {
		return common.Hash{}, ErrAlreadyRegistered
	}
	entry.Index = uint64(len(r.digests))
	if r.db != nil {
		if err := r.persistEntries([]*Entry{entry}); err != nil {
			return common.Hash{}, err
		}
	}
	r.tree.Insert(digest)
	r.entries[entry.Digest] = entry
	r.digests = append(r.digests, entry.Digest)

	r.log.Debug("Registered message",
		"kind", entry.Kind,
		"digest", entry.Digest.Hex(),
		"index", entry.Index,
	)
	return entry.Digest, nil
}

// addBulk registers entries in order within a single transaction.
func (r *Registry) addBulk(entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}
	leaves := make([]fp.Element, len(entries))
	seen := make(map[common.Hash]struct{}, len(entries))
	for i, entry := range entries {
		digest, err := entryDigest(entry)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if err := checkSignature(entry, &digest); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		computed := msghash.FeltToHash(&digest)
		if entry.Digest != (common.Hash{}) && entry.Digest != computed {
			return fmt.Errorf("%w: entry %d digest mismatch", ErrBadDump, i)
		}
		entry.Digest = computed
		if _, dup := seen[entry.Digest]; dup {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, entry.Digest.Hex())
		}
		seen[entry.Digest] = struct{}{}
		leaves[i] = digest
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	start := len(r.digests)
	for i, entry := range entries {
		if _, exists := r.entries[entry.Digest]; exists {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, entry.Digest.Hex())
		}
		entry.Index = uint64(start + i)
	}
	if r.db != nil {
		if err := r.persistEntries(entries); err != nil {
			return fmt.Errorf("failed to persist bulk entries: %w", err)
		}
	}
	if err := r.tree.InsertMany(leaves); err != nil {
		return err
	}
	for _, entry := range entries {
		r.entries[entry.Digest] = entry
		r.digests = append(r.digests, entry.Digest)
	}
	return nil
}

// Get returns a copy of the entry registered under digest.
func (r *Registry) Get(digest common.Hash) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[digest]
	if !ok {
		return nil, false
	}
	cp := *entry
	return &cp, true
}

// Has reports whether digest is registered.
func (r *Registry) Has(digest common.Hash) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[digest]
	return ok
}

// Root returns the batch tree root.
func (r *Registry) Root() (common.Hash, bool) {
	root, ok := r.tree.Root()
	if !ok {
		return common.Hash{}, false
	}
	return msghash.FeltToHash(&root), true
}

// Size returns the number of registered messages.
func (r *Registry) Size() int {
	return r.tree.Size()
}

// GenerateProof returns the batch membership proof for digest.
func (r *Registry) GenerateProof(digest common.Hash) (*Proof, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[digest]
	if !ok {
		return nil, ErrNotFound
	}
	tp, err := r.tree.GenerateProof(int(entry.Index))
	if err != nil {
		return nil, err
	}
	if msghash.FeltToHash(&tp.Leaf) != digest {
		return nil, ErrDataCorruption
	}
	siblings := make([]common.Hash, len(tp.Siblings))
	for i := range tp.Siblings {
		siblings[i] = msghash.FeltToHash(&tp.Siblings[i])
	}
	return &Proof{
		Root:     msghash.FeltToHash(&tp.Root),
		Digest:   digest,
		Index:    tp.Index,
		Siblings: siblings,
	}, nil
}

// VerifyProof checks a registry proof with the Pedersen hash.
func VerifyProof(p *Proof) bool {
	leaf, err := msghash.HashToFelt(p.Digest)
	if err != nil {
		return false
	}
	root, err := msghash.HashToFelt(p.Root)
	if err != nil {
		return false
	}
	tp := batchtree.Proof{Root: root, Leaf: leaf, Index: p.Index}
	for _, s := range p.Siblings {
		e, err := msghash.HashToFelt(s)
		if err != nil {
			return false
		}
		tp.Siblings = append(tp.Siblings, e)
	}
	return batchtree.Verify(tp, msghash.PedersenHasher)
}

// Dump exports every entry in registration order.
func (r *Registry) Dump() (*Dump, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	root, ok := r.Root()
	if !ok {
		return nil, ErrEmptyRegistry
	}
	entries := make([]Entry, 0, len(r.digests))
	for _, d := range r.digests {
		entries = append(entries, *r.entries[d])
	}
	return &Dump{
		Root:         root,
		Timestamp:    time.Now(),
		TotalEntries: len(entries),
		Entries:      entries,
	}, nil
}

// Import loads a dump into an empty registry, re-checking every hash and
// signature, and verifies the resulting root.
func (r *Registry) Import(dump *Dump) error {
	if r.Size() != 0 {
		return ErrNotEmptyRegistry
	}
	if dump == nil || len(dump.Entries) == 0 {
		return fmt.Errorf("%w: no entries", ErrBadDump)
	}
	sorted := make([]Entry, len(dump.Entries))
	copy(sorted, dump.Entries)
	slices.SortFunc(sorted, func(a, b Entry) int {
		switch {
		case a.Index < b.Index:
			return -1
		case a.Index > b.Index:
			return 1
		}
		return 0
	})
	entries := make([]*Entry, len(sorted))
	for i := range sorted {
		entries[i] = &sorted[i]
	}
	if err := r.addBulk(entries); err != nil {
		return err
	}
	root, _ := r.Root()
	if root != dump.Root {
		return fmt.Errorf("%w: imported root does not match", ErrBadDump)
	}
	r.log.Info("Imported registry dump", "entries", len(entries), "root", root.Hex())
	return nil
}

// persistEntries saves entries and the new size atomically.
func (r *Registry) persistEntries(entries []*Entry) error {
	tx := r.db.WriteTx()
	defer tx.Discard()

	for _, entry := range entries {
		value, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := tx.Set(entryKey(entry.Digest), value); err != nil {
			return err
		}
		if err := tx.Set(indexKey(int(entry.Index)), entry.Digest.Bytes()); err != nil {
			return err
		}
	}
	size := len(r.digests) + len(entries)
	if err := tx.Set([]byte("meta:size"), []byte(strconv.Itoa(size))); err != nil {
		return err
	}
	return tx.Commit()
}

// Load restores the registry from the database and rebuilds the batch tree.
func (r *Registry) Load() error {
	if r.db == nil {
		return nil
	}
	sizeBytes, err := r.db.Get([]byte("meta:size"))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil
		}
		return err
	}
	size, err := strconv.Atoi(string(sizeBytes))
	if err != nil {
		return fmt.Errorf("%w: bad size %q", ErrDataCorruption, sizeBytes)
	}
	if size == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	leaves := make([]fp.Element, size)
	for i := range size {
		digestBytes, err := r.db.Get(indexKey(i))
		if err != nil {
			return fmt.Errorf("corrupted index %d: %w", i, err)
		}
		digest := common.BytesToHash(digestBytes)
		value, err := r.db.Get(entryKey(digest))
		if err != nil {
			return fmt.Errorf("missing entry for %s: %w", digest.Hex(), err)
		}
		var entry Entry
		if err := json.Unmarshal(value, &entry); err != nil {
			return fmt.Errorf("%w: %v", ErrDataCorruption, err)
		}
		if leaves[i], err = msghash.HashToFelt(digest); err != nil {
			return fmt.Errorf("%w: digest %s", ErrDataCorruption, digest.Hex())
		}
		r.entries[digest] = &entry
		r.digests = append(r.digests, digest)
	}
	if err := r.tree.InsertMany(leaves); err != nil {
		return err
	}
	r.log.Info("Loaded registry", "entries", size)
	return nil
}

// Close releases the database.
func (r *Registry) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func entryKey(digest common.Hash) []byte {
	return []byte("entry:" + digest.Hex())
}

func indexKey(index int) []byte {
	return []byte("idx:rev:" + strconv.Itoa(index))
}

// entryDigest recomputes the message hash of an imported entry.
func entryDigest(entry *Entry) (fp.Element, error) {
	switch entry.Kind {
	case KindTransfer:
		if entry.Transfer == nil {
			return fp.Element{}, fmt.Errorf("%w: transfer entry without message", ErrBadDump)
		}
		return entry.Transfer.Hash()
	case KindLimitOrder:
		if entry.LimitOrder == nil {
			return fp.Element{}, fmt.Errorf("%w: limit order entry without message", ErrBadDump)
		}
		return entry.LimitOrder.Hash()
	}
	return fp.Element{}, fmt.Errorf("%w: unknown kind %q", ErrBadDump, entry.Kind)
}

func checkSignature(entry *Entry, digest *fp.Element) error {
	key, err := msghash.ParseHex(entry.StarkKey)
	if err != nil {
		return fmt.Errorf("stark key: %w", err)
	}
	ok, err := msghash.Verify(msghash.FeltToBig(&key), msghash.FeltToBig(digest), entry.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !ok {
		return ErrInvalidSignature
	}
	return nil
}
