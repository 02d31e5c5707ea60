package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderCode generates a human-readable order code of the form
// ORD-XXXX-NNNNN. Codes are generated once and never change; collisions are
// accepted as negligible rather than guaranteed absent.
func NewOrderCode() string {
	buf := make([]byte, 4)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken.
			panic(fmt.Sprintf("order code generation: %v", err))
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	num, err := rand.Int(rand.Reader, big.NewInt(100000))
	if err != nil {
		panic(fmt.Sprintf("order code generation: %v", err))
	}
	return fmt.Sprintf("ORD-%s-%05d", buf, num.Int64())
}
