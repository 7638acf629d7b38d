package alarm

import (
	"crypto/rand"
	"math/big"

	"github.com/m-mizutani/goerr/v2"
)

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// GenerateCode returns n characters drawn uniformly from [0-9A-Za-z].
func GenerateCode(n int) (string, error) {
	if n <= 0 {
		return "", Errorf(ErrInvalid, "code length must be positive, got %d", n)
	}
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", goerr.Wrap(err, "failed to read random source")
		}
		buf[i] = codeAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
