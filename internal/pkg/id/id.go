package id

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs are lexicographically sortable
// by creation time and safe for use as DynamoDB partition keys.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

const suffixAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewOrderID returns a human-readable order number such as
// "ORD-20261015143000-K7Q2XM". There is no retry on collision; the random
// suffix gives ~1e9 values per second.
func NewOrderID(now time.Time) string {
	b := make([]byte, 6)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(suffixAlphabet))))
		if err != nil {
			panic("crypto/rand unavailable: " + err.Error())
		}
		b[i] = suffixAlphabet[n.Int64()]
	}
	return "ORD-" + now.UTC().Format("20060102150405") + "-" + string(b)
}
