package order

import (
	"crypto/rand"
	"fmt"
	"time"
)

const orderNoAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// generateOrderNo builds a business order number: "TX" + timestamp + a random
// base36 suffix. Uniqueness is ultimately enforced by the storage constraint;
// the random suffix keeps collisions rare enough that the create retry loop
// almost never runs twice.
func generateOrderNo(now time.Time) (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("could not read random bytes: %w", err)
	}

	suffix := make([]byte, len(buf))
	for i, b := range buf {
		suffix[i] = orderNoAlphabet[int(b)%len(orderNoAlphabet)]
	}

	return fmt.Sprintf("TX%s%s", now.Format("20060102150405"), suffix), nil
}
