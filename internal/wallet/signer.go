package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

var ErrInvalidKey = errors.New("invalid private key")

// Signer is a connected wallet: one account on one chain.
type Signer interface {
	Address() string
	ChainID() int64
	// SignMessage returns the personal_sign signature of msg as 0x-prefixed hex.
	SignMessage(ctx context.Context, msg []byte) (string, error)
}

// KeySigner signs with an in-memory secp256k1 key.
type KeySigner struct {
	key     *secp256k1.PrivateKey
	address string
	chainID int64
}

// NewKeySigner builds a signer from a 32-byte key in hex, with or without 0x.
func NewKeySigner(hexKey string, chainID int64) (*KeySigner, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil || len(b) != secp256k1.PrivKeyBytesLen {
		return nil, ErrInvalidKey
	}
	return newKeySigner(secp256k1.PrivKeyFromBytes(b), chainID)
}

// LoadKeyFile reads a hex key from path.
func LoadKeyFile(path string, chainID int64) (*KeySigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallet key: %w", err)
	}
	return NewKeySigner(string(data), chainID)
}

// GenerateKey creates a signer with a fresh random key.
func GenerateKey(chainID int64) (*KeySigner, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return newKeySigner(key, chainID)
}

func newKeySigner(key *secp256k1.PrivateKey, chainID int64) (*KeySigner, error) {
	if key.Key.IsZero() {
		return nil, ErrInvalidKey
	}
	return &KeySigner{
		key:     key,
		address: PubkeyToAddress(key.PubKey()),
		chainID: chainID,
	}, nil
}

func (s *KeySigner) Address() string { return s.address }

func (s *KeySigner) ChainID() int64 { return s.chainID }

// HexKey returns the private key as 0x-prefixed hex, for writing key files.
func (s *KeySigner) HexKey() string {
	return "0x" + hex.EncodeToString(s.key.Serialize())
}

func (s *KeySigner) SignMessage(ctx context.Context, msg []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// SignCompact yields v||r||s with v = 27+recid for uncompressed keys;
	// wallets expect r||s||v.
	compact := ecdsa.SignCompact(s.key, HashMessage(msg), false)
	sig := make([]byte, 65)
	copy(sig, compact[1:])
	sig[64] = compact[0]

	return "0x" + hex.EncodeToString(sig), nil
}
