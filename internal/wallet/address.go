// Package wallet signs portal login messages with a local secp256k1 key,
// producing the same address and personal_sign signature format a browser
// wallet would.
package wallet

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"
)

var ErrInvalidAddress = errors.New("invalid wallet address")

func keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// PubkeyToAddress derives the checksummed 0x address of pub.
func PubkeyToAddress(pub *secp256k1.PublicKey) string {
	raw := pub.SerializeUncompressed()
	sum := keccak256(raw[1:])
	return checksum(hex.EncodeToString(sum[12:]))
}

// checksum applies EIP-55 mixed-case encoding to 40 lowercase hex digits.
func checksum(lowerHex string) string {
	hash := hex.EncodeToString(keccak256([]byte(lowerHex)))
	out := make([]byte, 0, 42)
	out = append(out, '0', 'x')
	for i := 0; i < len(lowerHex); i++ {
		c := lowerHex[i]
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// NormalizeAddress validates addr and returns it in checksummed form.
// All-lowercase and all-uppercase inputs are accepted as is; mixed case must
// carry a valid checksum.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return "", ErrInvalidAddress
	}
	body := addr[2:]
	if len(body) != 40 {
		return "", ErrInvalidAddress
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", ErrInvalidAddress
	}

	lower := strings.ToLower(body)
	sum := checksum(lower)
	if body != lower && body != strings.ToUpper(body) && sum[2:] != body {
		return "", ErrInvalidAddress
	}
	return sum, nil
}

// SameAddress reports whether a and b name the same account.
func SameAddress(a, b string) bool {
	na, err := NormalizeAddress(a)
	if err != nil {
		return false
	}
	nb, err := NormalizeAddress(b)
	if err != nil {
		return false
	}
	return na == nb
}
