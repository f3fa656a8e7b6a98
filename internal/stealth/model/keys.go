// Package model defines domain models for stealth address scanning.
package model

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	// PublicKeyLength is the size of a compressed secp256k1 point.
	PublicKeyLength = 33
	// PrivateKeyLength is the size of a serialized secp256k1 scalar.
	PrivateKeyLength = 32
)

// PublicKey is a compressed secp256k1 point.
type PublicKey [PublicKeyLength]byte

// KeyPair holds a private scalar and exposes its public point.
type KeyPair struct {
	PrivateKey *secp256k1.PrivateKey
}

// NewKeyPair wraps a private key.
func NewKeyPair(priv *secp256k1.PrivateKey) KeyPair {
	return KeyPair{PrivateKey: priv}
}

// PublicKey returns the compressed public point of the pair.
func (k KeyPair) PublicKey() PublicKey {
	var pub PublicKey
	copy(pub[:], k.PrivateKey.PubKey().SerializeCompressed())
	return pub
}

// MetaAddress is the shareable identifier combining spending and viewing keys.
type MetaAddress struct {
	SpendingPubKey PublicKey
	ViewingPubKey  PublicKey
	Encoded        string
}

// StealthKeys owns both key pairs of a receiver and the derived meta-address.
type StealthKeys struct {
	Spending KeyPair
	Viewing  KeyPair
	Meta     MetaAddress
}
