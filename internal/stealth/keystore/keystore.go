// Package keystore stores stealth keys in a password-encrypted JSON file.
//
// The scrypt-derived key seals both private scalars with AES-GCM. The
// meta-address and owner stay readable so a file can be identified without
// the password.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/address"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/model"
	"golang.org/x/crypto/scrypt"
)

const (
	version      = 1
	scryptKeyLen = 32
	saltLen      = 32
	nonceLen     = 12
)

var (
	// ErrInvalidPassword is returned when the ciphertext does not open with the password.
	ErrInvalidPassword = errors.New("invalid keystore password")
	// ErrMetaMismatch is returned when decrypted keys do not produce the stored meta-address.
	ErrMetaMismatch = errors.New("keystore meta-address does not match keys")
	// ErrKDFParams is returned when a file asks for scrypt costs outside the accepted range.
	ErrKDFParams = errors.New("keystore kdf parameters out of range")
)

// Params are the scrypt cost parameters recorded in every file.
type Params struct {
	N int `json:"n"`
	R int `json:"r"`
	P int `json:"p"`
}

var (
	// DefaultParams cost roughly 256MB of memory per derivation.
	DefaultParams = Params{N: 1 << 18, R: 8, P: 1}
	// LightParams are for short-lived keys and tests.
	LightParams = Params{N: 1 << 12, R: 8, P: 1}
)

// File is the on-disk representation of a keystore.
type File struct {
	Version     int    `json:"version"`
	Owner       string `json:"owner"`
	MetaAddress string `json:"metaAddress"`
	KDF         Params `json:"kdf"`
	Salt        string `json:"salt"`
	Nonce       string `json:"nonce"`
	CipherText  string `json:"cipherText"`
}

type secrets struct {
	Spending string `json:"spending"`
	Viewing  string `json:"viewing"`
}

// Encrypt seals keys for owner under password.
func Encrypt(owner string, keys model.StealthKeys, password []byte, params Params) (File, error) {
	if len(password) == 0 {
		return File{}, errors.New("password cannot be empty")
	}
	if owner == "" {
		return File{}, errors.New("owner is required")
	}
	if err := checkParams(params); err != nil {
		return File{}, err
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return File{}, fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return File{}, fmt.Errorf("generate nonce: %w", err)
	}

	aead, err := newAEAD(password, salt, params)
	if err != nil {
		return File{}, err
	}

	plaintext, err := json.Marshal(secrets{
		Spending: hexutil.Encode(keys.Spending.PrivateKey.Serialize()),
		Viewing:  hexutil.Encode(keys.Viewing.PrivateKey.Serialize()),
	})
	if err != nil {
		return File{}, fmt.Errorf("marshal secrets: %w", err)
	}
	defer clear(plaintext)

	return File{
		Version:     version,
		Owner:       owner,
		MetaAddress: keys.Meta.Encoded,
		KDF:         params,
		Salt:        base64.StdEncoding.EncodeToString(salt),
		Nonce:       base64.StdEncoding.EncodeToString(nonce),
		CipherText:  base64.StdEncoding.EncodeToString(aead.Seal(nil, nonce, plaintext, nil)),
	}, nil
}

// Decrypt opens f with password and rebuilds the stealth keys.
func Decrypt(f File, password []byte) (model.StealthKeys, error) {
	if f.Version != version {
		return model.StealthKeys{}, fmt.Errorf("unsupported keystore version %d", f.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(f.Salt)
	if err != nil {
		return model.StealthKeys{}, fmt.Errorf("decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(f.Nonce)
	if err != nil {
		return model.StealthKeys{}, fmt.Errorf("decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(f.CipherText)
	if err != nil {
		return model.StealthKeys{}, fmt.Errorf("decode ciphertext: %w", err)
	}

	if err := checkParams(f.KDF); err != nil {
		return model.StealthKeys{}, err
	}
	aead, err := newAEAD(password, salt, f.KDF)
	if err != nil {
		return model.StealthKeys{}, err
	}
	if len(nonce) != aead.NonceSize() {
		return model.StealthKeys{}, fmt.Errorf("nonce has %d bytes, want %d", len(nonce), aead.NonceSize())
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return model.StealthKeys{}, ErrInvalidPassword
	}
	defer clear(plaintext)

	var s secrets
	if err := json.Unmarshal(plaintext, &s); err != nil {
		return model.StealthKeys{}, fmt.Errorf("unmarshal secrets: %w", err)
	}
	spending, err := parseScalar(s.Spending)
	if err != nil {
		return model.StealthKeys{}, fmt.Errorf("spending key: %w", err)
	}
	viewing, err := parseScalar(s.Viewing)
	if err != nil {
		return model.StealthKeys{}, fmt.Errorf("viewing key: %w", err)
	}

	keys := address.NewStealthKeys(spending, viewing)
	if f.MetaAddress != "" && keys.Meta.Encoded != f.MetaAddress {
		return model.StealthKeys{}, ErrMetaMismatch
	}
	return keys, nil
}

// Write creates f at path. An existing file is never overwritten.
func Write(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal keystore: %w", err)
	}
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create keystore %s: %w", path, err)
	}
	if _, err := fh.Write(data); err != nil {
		_ = fh.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write keystore %s: %w", path, err)
	}
	if err := fh.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close keystore %s: %w", path, err)
	}
	return nil
}

// checkParams bounds scrypt costs to DefaultParams.
func checkParams(p Params) error {
	switch {
	case p.N <= 1 || p.N&(p.N-1) != 0 || p.N > DefaultParams.N:
		return fmt.Errorf("%w: n=%d", ErrKDFParams, p.N)
	case p.R <= 0 || p.R > DefaultParams.R:
		return fmt.Errorf("%w: r=%d", ErrKDFParams, p.R)
	case p.P <= 0 || p.P > DefaultParams.P:
		return fmt.Errorf("%w: p=%d", ErrKDFParams, p.P)
	}
	return nil
}

// Read loads the keystore at path without decrypting it.
func Read(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read keystore %s: %w", path, err)
	}
	if len(data) == 0 {
		return File{}, fmt.Errorf("keystore %s is empty", path)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("unmarshal keystore %s: %w", path, err)
	}
	return f, nil
}

// Load reads and decrypts the keystore at path.
func Load(path string, password []byte) (File, model.StealthKeys, error) {
	f, err := Read(path)
	if err != nil {
		return File{}, model.StealthKeys{}, err
	}
	keys, err := Decrypt(f, password)
	if err != nil {
		return File{}, model.StealthKeys{}, fmt.Errorf("decrypt keystore %s: %w", path, err)
	}
	return f, keys, nil
}

func newAEAD(password, salt []byte, params Params) (cipher.AEAD, error) {
	key, err := scrypt.Key(password, salt, params.N, params.R, params.P, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return aead, nil
}

func parseScalar(s string) (*secp256k1.PrivateKey, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return nil, err
	}
	defer clear(raw)
	if len(raw) != model.PrivateKeyLength {
		return nil, fmt.Errorf("scalar has %d bytes, want %d", len(raw), model.PrivateKeyLength)
	}

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow || scalar.IsZero() {
		return nil, errors.New("scalar out of range")
	}
	return secp256k1.NewPrivateKey(&scalar), nil
}
