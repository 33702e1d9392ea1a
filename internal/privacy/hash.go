package privacy

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"

	"golang.org/x/crypto/blake2b"
)

// HashLength is the length of every identifier hash (hex BLAKE2b-256).
const HashLength = blake2b.Size256 * 2

// identifierKey holds the MAC key. It starts as a random per-process key,
// so hashes only survive a restart once SetIdentifierKey installs a stable
// one.
var identifierKey atomic.Pointer[[]byte]

func init() {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("privacy: seed identifier key: %v", err))
	}
	identifierKey.Store(&key)
}

// SetIdentifierKey installs the key used by HashIdentifier. It is called
// once at startup; an empty key keeps the random per-process key.
func SetIdentifierKey(key []byte) error {
	if len(key) == 0 {
		return nil
	}
	if len(key) > blake2b.Size {
		return fmt.Errorf("identifier key longer than %d bytes", blake2b.Size)
	}
	k := append([]byte(nil), key...)
	identifierKey.Store(&k)
	return nil
}

// HashIdentifier returns the keyed BLAKE2b-256 of raw in hex. The digest is
// deterministic so repeat submissions from one address can be correlated
// and rate limited, and keyed so that low-entropy inputs such as IPs and
// feedback codes cannot be recovered by enumeration. Empty input hashes to
// "".
func HashIdentifier(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	h, err := blake2b.New256(*identifierKey.Load())
	if err != nil {
		// SetIdentifierKey bounds the key length.
		panic(err)
	}
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}

// FeedbackAlphabet excludes I, O, 0 and 1, which are easily confused when a
// code is read aloud or copied by hand.
const FeedbackAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// FeedbackCodeLength is the number of characters in a feedback code.
const FeedbackCodeLength = 8

// FeedbackCode generates a random code an anonymous submitter can use to
// follow a submission.
func FeedbackCode() (string, error) {
	max := big.NewInt(int64(len(FeedbackAlphabet)))
	var b strings.Builder
	b.Grow(FeedbackCodeLength)
	for i := 0; i < FeedbackCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate feedback code: %w", err)
		}
		b.WriteByte(FeedbackAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// ValidFeedbackCode reports whether code has the right length and alphabet.
func ValidFeedbackCode(code string) bool {
	if len(code) != FeedbackCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(FeedbackAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// NormalizeFeedbackCode upper-cases and trims user input before lookup.
func NormalizeFeedbackCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
