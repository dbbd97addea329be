package dist

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// FileDigest returns the hex SHA-256 checksum and the size of the given
// file.
func FileDigest(path string) (string, int64, error) {
	handle, err := os.Open(path)
	if err != nil {
		return "", 0, eris.Wrapf(err, "Failed to open %s", path)
	}
	defer handle.Close()

	hash := sha256.New()
	size := int64(0)
	buf := make([]byte, 4096)
	for {
		n, err := handle.Read(buf)
		if err != nil && n < 1 {
			if err == io.EOF {
				break
			}
			return "", 0, eris.Wrapf(err, "Failed to read %s", path)
		}

		_, err = hash.Write(buf[:n])
		if err != nil {
			return "", 0, eris.Wrapf(err, "Failed to calculate the checksum for %s", path)
		}
		size += int64(n)
	}

	return hex.EncodeToString(hash.Sum(nil)), size, nil
}
