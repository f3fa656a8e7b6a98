// Package derivation implements the secp256k1 stealth address scheme with view tags.
//
// All functions are pure: they hold no state and perform no I/O. Scalar
// multiplication is delegated to the decred secp256k1 implementation.
package derivation

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/address"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/model"
)

var (
	// ErrCollision reports a view tag match whose full derivation yields a
	// different address. It is the expected outcome for roughly 1/256 of
	// unrelated announcements and means "not mine".
	ErrCollision = errors.New("derived address does not match announcement")
	// ErrInvalidPoint reports a public key that is not a usable curve point.
	ErrInvalidPoint = errors.New("invalid curve point")
	// ErrZeroKey reports a derived private scalar equal to zero.
	ErrZeroKey = errors.New("derived private key is zero")
)

// SenderResult is the triple a sender publishes on chain.
type SenderResult struct {
	StealthAddress  common.Address
	EphemeralPubKey model.PublicKey
	ViewTag         byte
}

// Metadata returns the announcement metadata carrying the view tag in its first byte.
func (r SenderResult) Metadata() []byte {
	return EncodeAnnouncementMetadata(r.ViewTag)
}

// EncodeAnnouncementMetadata returns the metadata a sender publishes next to
// the ephemeral key. The first byte is the view tag.
func EncodeAnnouncementMetadata(viewTag byte) []byte {
	return []byte{viewTag}
}

// Announcement builds the announcement a receiver would decode for this result.
func (r SenderResult) Announcement(blockNumber uint64, txHash common.Hash) model.Announcement {
	return model.Announcement{
		BlockNumber:     blockNumber,
		TxHash:          txHash,
		StealthAddress:  r.StealthAddress,
		EphemeralPubKey: r.EphemeralPubKey,
		ViewTag:         r.ViewTag,
		HasViewTag:      true,
		Metadata:        r.Metadata(),
	}
}

// Derived is a confirmed stealth address together with its spending key.
type Derived struct {
	PrivateKey *secp256k1.PrivateKey
	Address    common.Address
}

// DeriveSenderAddress generates a one-time stealth address for a meta-address
// using a fresh ephemeral key.
func DeriveSenderAddress(metaAddress string) (SenderResult, error) {
	ephemeral, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return SenderResult{}, fmt.Errorf("generate ephemeral key: %w", err)
	}
	return DeriveSenderAddressWithEphemeral(metaAddress, ephemeral)
}

// DeriveSenderAddressWithEphemeral is DeriveSenderAddress with a caller supplied ephemeral key.
func DeriveSenderAddressWithEphemeral(metaAddress string, ephemeral *secp256k1.PrivateKey) (SenderResult, error) {
	spendingBytes, viewingBytes, err := address.DecodeMetaAddress(metaAddress)
	if err != nil {
		return SenderResult{}, err
	}
	spending, err := secp256k1.ParsePubKey(spendingBytes[:])
	if err != nil {
		return SenderResult{}, fmt.Errorf("%w: spending key: %v", ErrInvalidPoint, err)
	}
	viewing, err := secp256k1.ParsePubKey(viewingBytes[:])
	if err != nil {
		return SenderResult{}, fmt.Errorf("%w: viewing key: %v", ErrInvalidPoint, err)
	}

	h := sharedSecretHash(&ephemeral.Key, viewing)
	stealthPub, err := stealthPublicKey(spending, h)
	if err != nil {
		return SenderResult{}, err
	}

	var ephemeralPub model.PublicKey
	copy(ephemeralPub[:], ephemeral.PubKey().SerializeCompressed())

	return SenderResult{
		StealthAddress:  AddressFromPublicKey(stealthPub),
		EphemeralPubKey: ephemeralPub,
		ViewTag:         h[0],
	}, nil
}

// MatchesViewTag is the receiver's quick filter. A true result only marks a
// candidate: about 1/256 of unrelated announcements pass as well.
// Announcements published without a view tag always pass.
func MatchesViewTag(ann model.Announcement, viewingPriv *secp256k1.PrivateKey) bool {
	ephemeral, err := secp256k1.ParsePubKey(ann.EphemeralPubKey[:])
	if err != nil {
		return false
	}
	if !ann.HasViewTag {
		return true
	}
	h := sharedSecretHash(&viewingPriv.Key, ephemeral)
	return h[0] == ann.ViewTag
}

// DeriveStealthPrivateKey recovers the private key of the announced stealth
// address and confirms the address matches.
func DeriveStealthPrivateKey(ann model.Announcement, spendingPriv, viewingPriv *secp256k1.PrivateKey) (Derived, error) {
	ephemeral, err := secp256k1.ParsePubKey(ann.EphemeralPubKey[:])
	if err != nil {
		return Derived{}, fmt.Errorf("%w: ephemeral key: %v", ErrInvalidPoint, err)
	}
	h := sharedSecretHash(&viewingPriv.Key, ephemeral)

	var tweak, key secp256k1.ModNScalar
	tweak.SetBytes(&h)
	key.Add2(&spendingPriv.Key, &tweak)
	if key.IsZero() {
		return Derived{}, ErrZeroKey
	}

	priv := secp256k1.NewPrivateKey(&key)
	derived := AddressFromPublicKey(priv.PubKey())
	if derived != ann.StealthAddress {
		return Derived{}, ErrCollision
	}
	return Derived{PrivateKey: priv, Address: derived}, nil
}

// AddressFromPublicKey returns the last 20 bytes of Keccak256 over the uncompressed point.
func AddressFromPublicKey(pub *secp256k1.PublicKey) common.Address {
	return common.BytesToAddress(crypto.Keccak256(pub.SerializeUncompressed()[1:])[12:])
}

// AddressFromPrivateKey derives the account address controlled by priv.
func AddressFromPrivateKey(priv *secp256k1.PrivateKey) common.Address {
	return AddressFromPublicKey(priv.PubKey())
}

// sharedSecretHash returns SHA256 of the compressed shared point k·P.
func sharedSecretHash(k *secp256k1.ModNScalar, pub *secp256k1.PublicKey) [32]byte {
	var point, shared secp256k1.JacobianPoint
	pub.AsJacobian(&point)
	secp256k1.ScalarMultNonConst(k, &point, &shared)
	shared.ToAffine()
	return sha256.Sum256(secp256k1.NewPublicKey(&shared.X, &shared.Y).SerializeCompressed())
}

// stealthPublicKey computes M + (h mod n)·G.
func stealthPublicKey(spending *secp256k1.PublicKey, h [32]byte) (*secp256k1.PublicKey, error) {
	var tweak secp256k1.ModNScalar
	tweak.SetBytes(&h)

	var spendPoint, tweakPoint, sum secp256k1.JacobianPoint
	spending.AsJacobian(&spendPoint)
	secp256k1.ScalarBaseMultNonConst(&tweak, &tweakPoint)
	secp256k1.AddNonConst(&spendPoint, &tweakPoint, &sum)
	if (sum.X.IsZero() && sum.Y.IsZero()) || sum.Z.IsZero() {
		return nil, fmt.Errorf("%w: stealth point at infinity", ErrInvalidPoint)
	}
	sum.ToAffine()
	return secp256k1.NewPublicKey(&sum.X, &sum.Y), nil
}
