package message

import (
	"strings"
	"sync"
)

// Callsign hash widths carried by the different message types
const (
	Hash10 = 10
	Hash12 = 12
	Hash22 = 22
)

const hashMultiplier = 47055833459

// HashLookup resolves callsign hashes seen in messages
type HashLookup interface {
	Lookup(bits int, hash uint32) (string, bool)
}

// HashCallsign returns the 22-bit hash of a callsign. The 12- and 10-bit
// hashes are its top bits.
func HashCallsign(call string) (uint32, bool) {
	call = strings.ToUpper(strings.TrimSpace(call))
	if call == "" || len(call) > 11 || !validChars(charsCallsign, call) {
		return 0, false
	}

	var n58 uint64
	for i := 0; i < 11; i++ {
		idx := 0
		if i < len(call) {
			idx = charIndex(charsCallsign, call[i])
		}
		n58 = n58*38 + uint64(idx)
	}

	return uint32((hashMultiplier*n58)>>(64-Hash22)) & 0x3FFFFF, true
}

// truncateHash narrows a 22-bit hash to the requested width
func truncateHash(h22 uint32, bits int) uint32 {
	return h22 >> (Hash22 - bits)
}

// HashTable remembers full callsigns so later hashed references can be shown.
// It is safe for concurrent use.
type HashTable struct {
	mu      sync.RWMutex
	entries map[int]map[uint32]string
}

// NewHashTable creates an empty table
func NewHashTable() *HashTable {
	return &HashTable{
		entries: map[int]map[uint32]string{
			Hash10: {},
			Hash12: {},
			Hash22: {},
		},
	}
}

// Save records a callsign under all three hash widths. Tokens, hashes and
// empty strings are ignored.
func (t *HashTable) Save(call string) {
	call = strings.ToUpper(strings.TrimSpace(call))
	call = strings.TrimSuffix(strings.TrimSuffix(call, "/R"), "/P")
	if strings.HasPrefix(call, "<") || strings.HasPrefix(call, "CQ") || call == "DE" || call == "QRZ" {
		return
	}

	h22, ok := HashCallsign(call)
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for bits, table := range t.entries {
		table[truncateHash(h22, bits)] = call
	}
}

// Lookup returns the callsign saved under a hash of the given width
func (t *HashTable) Lookup(bits int, hash uint32) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	table, ok := t.entries[bits]
	if !ok {
		return "", false
	}
	call, ok := table[hash]
	return call, ok
}

// Len returns the number of distinct 22-bit entries
func (t *HashTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries[Hash22])
}
