package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/announcement"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/derivation"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
)

type config struct {
	MetaAddress string `long:"meta-address" env:"STEALTH_DERIVE_META_ADDRESS" description:"receiver meta-address (st:eth:0x...)" required:"true"`
	Ephemeral   string `long:"ephemeral" env:"STEALTH_DERIVE_EPHEMERAL" description:"hex ephemeral private key, random when empty"`
	Caller      string `long:"caller" env:"STEALTH_DERIVE_CALLER" description:"address announcing the payment"`
}

func main() {
	cfg := config{}

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(os.Stdout, cfg); err != nil {
		logger.Fatal("derive failed", zap.Error(err))
	}
}

func run(out io.Writer, cfg config) error {
	var (
		res derivation.SenderResult
		err error
	)
	if cfg.Ephemeral == "" {
		res, err = derivation.DeriveSenderAddress(cfg.MetaAddress)
	} else {
		ephemeral, parseErr := parseEphemeral(cfg.Ephemeral)
		if parseErr != nil {
			return parseErr
		}
		res, err = derivation.DeriveSenderAddressWithEphemeral(cfg.MetaAddress, ephemeral)
	}
	if err != nil {
		return fmt.Errorf("derive stealth address: %w", err)
	}

	caller := common.Address{}
	if cfg.Caller != "" {
		if !common.IsHexAddress(cfg.Caller) {
			return fmt.Errorf("invalid caller address %q", cfg.Caller)
		}
		caller = common.HexToAddress(cfg.Caller)
	}

	metadata := res.Metadata()
	data, err := announcement.EncodeData(res.EphemeralPubKey[:], metadata)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "stealth address:  %s\n", res.StealthAddress.Hex())
	fmt.Fprintf(out, "ephemeral key:    %s\n", hexutil.Encode(res.EphemeralPubKey[:]))
	fmt.Fprintf(out, "view tag:         0x%02x\n", res.ViewTag)
	fmt.Fprintf(out, "metadata:         %s\n", hexutil.Encode(metadata))
	fmt.Fprintf(out, "announcer:        %s\n", announcement.DefaultAnnouncer.Hex())
	for i, topic := range announcement.Topics(announcement.SchemeSecp256k1, res.StealthAddress, caller) {
		fmt.Fprintf(out, "topic[%d]:         %s\n", i, topic.Hex())
	}
	fmt.Fprintf(out, "data:             %s\n", hexutil.Encode(data))
	return nil
}

func parseEphemeral(s string) (*secp256k1.PrivateKey, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode ephemeral key: %w", err)
	}
	defer clear(raw)
	if len(raw) != 32 {
		return nil, fmt.Errorf("ephemeral key has %d bytes, want 32", len(raw))
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow || scalar.IsZero() {
		return nil, errors.New("ephemeral key out of range")
	}
	return secp256k1.NewPrivateKey(&scalar), nil
}
