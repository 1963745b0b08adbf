package contentid

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

// ID is a 32-byte BLAKE3 digest of an asset's source bytes.
type ID [32]byte

// HexLength is the length of the hex form of an ID.
const HexLength = 64

// domainKey is the fixed BLAKE3 key for asset identities: ASCII, zero padded.
// Changing it changes every asset id and therefore every variant path.
var domainKey = [32]byte{
	'p', 'r', 'i', 's', 'm', '.', 'a', 's', 's', 'e', 't', '.',
	's', 'o', 'u', 'r', 'c', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Sum returns the identity of data. Equal bytes always produce equal ids.
func Sum(data []byte) ID {
	hasher := newHasher()
	hasher.Write(data)
	var id ID
	copy(id[:], hasher.Sum(nil))
	return id
}

// SumReader hashes everything read from r and reports the byte count.
func SumReader(r io.Reader) (ID, int64, error) {
	hasher := newHasher()
	n, err := io.Copy(hasher, r)
	if err != nil {
		return ID{}, n, fmt.Errorf("hash stream: %w", err)
	}
	var id ID
	copy(id[:], hasher.Sum(nil))
	return id, n, nil
}

// SumFile hashes the file at path without loading it into memory.
func SumFile(path string) (ID, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return ID{}, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return SumReader(file)
}

// Parse decodes a 64-character hex id. Upper-case input is accepted.
func Parse(value string) (ID, error) {
	var id ID
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if len(trimmed) != HexLength {
		return id, fmt.Errorf("content id %q: want %d hex characters, got %d", value, HexLength, len(trimmed))
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return id, fmt.Errorf("content id %q: %w", value, err)
	}
	copy(id[:], decoded)
	return id, nil
}

// Valid reports whether value parses as an id.
func Valid(value string) bool {
	_, err := Parse(value)
	return err == nil
}

// String returns the canonical lower-case hex form used in paths and the catalog.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the first 12 hex characters for log lines and tables.
func (id ID) Short() string {
	return hex.EncodeToString(id[:6])
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool {
	return id == ID{}
}

func newHasher() *blake3.Hasher {
	// NewKeyed only fails on a key that is not 32 bytes.
	hasher, err := blake3.NewKeyed(domainKey[:])
	if err != nil {
		panic("contentid: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}
