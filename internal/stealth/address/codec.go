// Package address generates stealth key pairs and encodes meta-addresses.
package address

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/model"
)

// MetaAddressPrefix precedes the hex payload of every encoded meta-address.
const MetaAddressPrefix = "st:eth:0x"

const payloadLength = 2 * model.PublicKeyLength

var (
	// ErrFormat reports a meta-address that is not prefix + hex of two points.
	ErrFormat = errors.New("invalid meta-address format")
	// ErrLength reports a meta-address payload that is not exactly two compressed points.
	ErrLength = errors.New("invalid meta-address length")
)

// GenerateKeys draws independent spending and viewing keys and encodes their meta-address.
func GenerateKeys() (model.StealthKeys, error) {
	spending, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return model.StealthKeys{}, fmt.Errorf("generate spending key: %w", err)
	}
	viewing, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return model.StealthKeys{}, fmt.Errorf("generate viewing key: %w", err)
	}
	return NewStealthKeys(spending, viewing), nil
}

// NewStealthKeys builds StealthKeys from existing private keys.
func NewStealthKeys(spending, viewing *secp256k1.PrivateKey) model.StealthKeys {
	keys := model.StealthKeys{
		Spending: model.NewKeyPair(spending),
		Viewing:  model.NewKeyPair(viewing),
	}
	spendingPub := keys.Spending.PublicKey()
	viewingPub := keys.Viewing.PublicKey()
	keys.Meta = model.MetaAddress{
		SpendingPubKey: spendingPub,
		ViewingPubKey:  viewingPub,
		Encoded:        EncodeMetaAddress(spendingPub, viewingPub),
	}
	return keys
}

// EncodeMetaAddress concatenates both compressed keys behind the fixed prefix.
func EncodeMetaAddress(spending, viewing model.PublicKey) string {
	payload := make([]byte, 0, payloadLength)
	payload = append(payload, spending[:]...)
	payload = append(payload, viewing[:]...)
	return MetaAddressPrefix + hex.EncodeToString(payload)
}

// DecodeMetaAddress is the left inverse of EncodeMetaAddress.
func DecodeMetaAddress(s string) (spending, viewing model.PublicKey, err error) {
	if !strings.HasPrefix(s, MetaAddressPrefix) {
		return spending, viewing, fmt.Errorf("%w: missing %q prefix", ErrFormat, MetaAddressPrefix)
	}

	payload, err := hexutil.Decode("0x" + s[len(MetaAddressPrefix):])
	if err != nil {
		return spending, viewing, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if len(payload) != payloadLength {
		return spending, viewing, fmt.Errorf("%w: got %d bytes, want %d", ErrLength, len(payload), payloadLength)
	}

	copy(spending[:], payload[:model.PublicKeyLength])
	copy(viewing[:], payload[model.PublicKeyLength:])

	if _, err = secp256k1.ParsePubKey(spending[:]); err != nil {
		return model.PublicKey{}, model.PublicKey{}, fmt.Errorf("%w: spending key: %v", ErrFormat, err)
	}
	if _, err = secp256k1.ParsePubKey(viewing[:]); err != nil {
		return model.PublicKey{}, model.PublicKey{}, fmt.Errorf("%w: viewing key: %v", ErrFormat, err)
	}
	return spending, viewing, nil
}

// ParseMetaAddress decodes s into a MetaAddress value.
func ParseMetaAddress(s string) (model.MetaAddress, error) {
	spending, viewing, err := DecodeMetaAddress(s)
	if err != nil {
		return model.MetaAddress{}, err
	}
	return model.MetaAddress{
		SpendingPubKey: spending,
		ViewingPubKey:  viewing,
		Encoded:        EncodeMetaAddress(spending, viewing),
	}, nil
}
