// Package announcement decodes ERC-5564 Announcement logs.
package announcement

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/model"
)

// EventSignature is the canonical signature of the announcer event.
const EventSignature = "Announcement(uint256,address,address,bytes,bytes)"

// SchemeSecp256k1 is the scheme id of secp256k1 stealth addresses with view tags.
const SchemeSecp256k1 = 1

const (
	wordSize    = 32
	topicsCount = 4
)

var (
	// Topic is the keccak256 hash of EventSignature.
	Topic = crypto.Keccak256Hash([]byte(EventSignature))

	// DefaultAnnouncer is the singleton ERC-5564 announcer deployment.
	DefaultAnnouncer = common.HexToAddress("0x55649E01B5Df198D18D95b5cc5051630cfD45564")

	// ErrDecode reports a log entry that is not a well formed announcement.
	ErrDecode = errors.New("malformed announcement log")
	// ErrUnsupportedScheme reports an announcement for a scheme other than secp256k1.
	ErrUnsupportedScheme = errors.New("unsupported announcement scheme")
)

// Decode turns a raw announcer log into an Announcement.
//
// Topics are [signature, schemeId, stealthAddress, caller]; data holds the
// ABI encoded (bytes ephemeralPubKey, bytes metadata) pair. The view tag is
// lifted from metadata[0] as published by the sender; it is never derived
// from the ephemeral key itself.
func Decode(log types.Log) (model.Announcement, error) {
	if len(log.Topics) != topicsCount {
		return model.Announcement{}, fmt.Errorf("%w: got %d topics, want %d", ErrDecode, len(log.Topics), topicsCount)
	}
	if log.Topics[0] != Topic {
		return model.Announcement{}, fmt.Errorf("%w: unexpected event topic %s", ErrDecode, log.Topics[0])
	}
	scheme := new(big.Int).SetBytes(log.Topics[1].Bytes())
	if !scheme.IsInt64() || scheme.Int64() != SchemeSecp256k1 {
		return model.Announcement{}, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}

	ephemeral, err := readBytes(log.Data, 0)
	if err != nil {
		return model.Announcement{}, fmt.Errorf("%w: ephemeral key: %v", ErrDecode, err)
	}
	if len(ephemeral) != model.PublicKeyLength {
		return model.Announcement{}, fmt.Errorf("%w: ephemeral key is %d bytes, want %d", ErrDecode, len(ephemeral), model.PublicKeyLength)
	}
	if _, err = secp256k1.ParsePubKey(ephemeral); err != nil {
		return model.Announcement{}, fmt.Errorf("%w: ephemeral key: %v", ErrDecode, err)
	}

	var metadata []byte
	if headWords(log.Data) >= 2 {
		if metadata, err = readBytes(log.Data, 1); err != nil {
			return model.Announcement{}, fmt.Errorf("%w: metadata: %v", ErrDecode, err)
		}
	}

	ann := model.Announcement{
		BlockNumber:    log.BlockNumber,
		TxHash:         log.TxHash,
		StealthAddress: common.BytesToAddress(log.Topics[2].Bytes()[12:]),
		Metadata:       metadata,
	}
	copy(ann.EphemeralPubKey[:], ephemeral)
	if len(metadata) > 0 {
		ann.ViewTag = metadata[0]
		ann.HasViewTag = true
	}
	return ann, nil
}

// headWords returns how many head words precede the first dynamic value.
// The first offset marks where the head ends.
func headWords(data []byte) uint64 {
	if len(data) < wordSize {
		return 0
	}
	offset, err := readWord(data[:wordSize])
	if err != nil {
		return 0
	}
	return offset / wordSize
}

// readBytes reads the dynamic bytes value whose offset sits in head word index.
func readBytes(data []byte, index int) ([]byte, error) {
	headEnd := (index + 1) * wordSize
	if len(data) < headEnd {
		return nil, fmt.Errorf("payload of %d bytes has no head word %d", len(data), index)
	}
	offset, err := readWord(data[index*wordSize : headEnd])
	if err != nil {
		return nil, fmt.Errorf("offset: %w", err)
	}
	remaining := uint64(len(data))
	if offset > remaining || remaining-offset < wordSize {
		return nil, fmt.Errorf("offset %d leaves no room for a length word in %d bytes", offset, remaining)
	}
	length, err := readWord(data[offset : offset+wordSize])
	if err != nil {
		return nil, fmt.Errorf("length: %w", err)
	}
	start := offset + wordSize
	if length > remaining-start {
		return nil, fmt.Errorf("declared length %d exceeds remaining %d bytes", length, remaining-start)
	}
	out := make([]byte, length)
	copy(out, data[start:start+length])
	return out, nil
}

// readWord interprets a 32-byte big-endian word, rejecting values above MaxInt64.
func readWord(word []byte) (uint64, error) {
	v := new(big.Int).SetBytes(word)
	if !v.IsUint64() || v.Uint64() > math.MaxInt64 {
		return 0, fmt.Errorf("word %s out of range", v)
	}
	return v.Uint64(), nil
}
