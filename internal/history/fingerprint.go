package history

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/zeebo/blake3"
)

// FingerprintFile returns the blake3 hash of a file's contents, hex encoded.
// A missing file yields an empty fingerprint without error, since some
// formats legitimately produce nothing.
func FingerprintFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
