package shared

import (
	"crypto/rand"
	"math/big"
)

const tokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RandomToken returns a short human-readable token used as the random
// suffix of transaction and batch numbers. Ambiguous characters (0/O, 1/I)
// are excluded.
func RandomToken(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			b[i] = tokenAlphabet[0]
			continue
		}
		b[i] = tokenAlphabet[idx.Int64()]
	}
	return string(b)
}
