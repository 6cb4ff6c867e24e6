package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// GenerateOrderCode returns a 10-character uppercase order code.
func GenerateOrderCode() string {
	return randomHexUpper(10)
}

// GenerateReference returns a 12-character synthetic payment reference,
// used for zero-due review requests where the customer never transfers money.
func GenerateReference() string {
	return randomHexUpper(12)
}

// GenerateDeliveryCode returns a 6-digit code handed to the customer and
// verified in person before an order can be marked delivered.
func GenerateDeliveryCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		// fallback: time-based entropy
		n = big.NewInt(time.Now().UnixNano() % 1000000)
	}
	return fmt.Sprintf("%06d", n.Int64())
}

func randomHexUpper(length int) string {
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		for i := range buf {
			buf[i] = byte(time.Now().UnixNano() >> (uint(i) * 8))
		}
	}
	return strings.ToUpper(hex.EncodeToString(buf))[:length]
}
