package announcement

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var dataArguments = func() abi.Arguments {
	bytesType, err := abi.NewType("bytes", "", nil)
	if err != nil {
		panic(fmt.Sprintf("announcement: bytes abi type: %v", err))
	}
	return abi.Arguments{{Name: "ephemeralPubKey", Type: bytesType}, {Name: "metadata", Type: bytesType}}
}()

// EncodeData ABI encodes the non-indexed announcement fields.
func EncodeData(ephemeralPubKey, metadata []byte) ([]byte, error) {
	if metadata == nil {
		metadata = []byte{}
	}
	data, err := dataArguments.Pack(ephemeralPubKey, metadata)
	if err != nil {
		return nil, fmt.Errorf("pack announcement data: %w", err)
	}
	return data, nil
}

// Topics builds the indexed topics of an announcement log.
func Topics(schemeID int64, stealthAddress, caller common.Address) []common.Hash {
	return []common.Hash{
		Topic,
		common.BigToHash(big.NewInt(schemeID)),
		common.BytesToHash(stealthAddress.Bytes()),
		common.BytesToHash(caller.Bytes()),
	}
}
