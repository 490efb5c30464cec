package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

const (
	ChainMainnet int64 = 1
	ChainSepolia int64 = 11155111
)

var (
	ErrUnsupportedNetwork = errors.New("unsupported network, switch to Ethereum mainnet or Sepolia")
	ErrInvalidSignature   = errors.New("invalid signature")
)

var supportedChains = map[int64]string{
	ChainMainnet: "mainnet",
	ChainSepolia: "sepolia",
}

// ChainName returns the network name of id, or "chain <id>".
func ChainName(id int64) string {
	if name, ok := supportedChains[id]; ok {
		return name
	}
	return "chain " + strconv.FormatInt(id, 10)
}

// CheckChain returns ErrUnsupportedNetwork for anything but mainnet and Sepolia.
func CheckChain(id int64) error {
	if _, ok := supportedChains[id]; !ok {
		return fmt.Errorf("%w (got %s)", ErrUnsupportedNetwork, ChainName(id))
	}
	return nil
}

// LoginMessage is the text a wallet signs to log in as address.
func LoginMessage(address string) string {
	return "Sign in to the learning portal with wallet " + address
}

// HashMessage returns the EIP-191 personal_sign digest of msg.
func HashMessage(msg []byte) []byte {
	prefix := "\x19Ethereum Signed Message:\n" + strconv.Itoa(len(msg))
	return keccak256([]byte(prefix), msg)
}

// RecoverAddress returns the address that produced sig over msg. sig is the
// 0x-prefixed r||s||v hex produced by SignMessage or a browser wallet.
func RecoverAddress(msg []byte, sig string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	if err != nil || len(raw) != 65 {
		return "", ErrInvalidSignature
	}

	v := raw[64]
	if v < 27 {
		v += 27
	}
	compact := make([]byte, 65)
	compact[0] = v
	copy(compact[1:], raw[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, HashMessage(msg))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return PubkeyToAddress(pub), nil
}

// Verify reports whether sig over msg was produced by address.
func Verify(address string, msg []byte, sig string) bool {
	got, err := RecoverAddress(msg, sig)
	if err != nil {
		return false
	}
	return SameAddress(got, address)
}
