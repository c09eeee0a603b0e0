package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

const (
	// Deterministic deployment proxy used by `forge script`
	Create2DeployerProxy = "0x4e59b44847b379578588920cA78FbF26c0B4956C"

	// CREATE2 input layout: 0xff (1) + deployer (20) + salt (32) + initcodeHash (32) = 85
	Create2PrefixLen = 1 + common.AddressLength
	Create2SaltLen   = 32
	Create2SuffixLen = 32
	Create2InputLen  = Create2PrefixLen + Create2SaltLen + Create2SuffixLen

	// Offsets into the CREATE2 input
	Create2SaltOffset   = Create2PrefixLen
	Create2SuffixOffset = Create2PrefixLen + Create2SaltLen
)

// Errors
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrMalformedHex   = errors.New("malformed hex")
	ErrInvalidSalt    = errors.New("invalid salt")
)

// NewKeccak returns a legacy Keccak-256 hasher.
func NewKeccak() hash.Hash {
	return sha3.NewLegacyKeccak256()
}

// Keccak256 calculates the keccak256 hash of the input bytes
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		_, _ = h.Write(b)
	}
	return h.Sum(nil)
}

// Create2Input builds the 85 byte CREATE2 preimage for deployer, salt and
// the keccak256 digest of the creation payload.
func Create2Input(deployer common.Address, salt *uint256.Int, initcodeHash []byte) [Create2InputLen]byte {
	var in [Create2InputLen]byte
	in[0] = 0xff
	copy(in[1:Create2PrefixLen], deployer[:])
	PutSalt(in[:], salt)
	copy(in[Create2SuffixOffset:], initcodeHash)
	return in
}

// PutSalt writes salt big-endian into the salt slot of a CREATE2 input buffer.
func PutSalt(inputBuf []byte, salt *uint256.Int) {
	b := salt.Bytes32()
	copy(inputBuf[Create2SaltOffset:Create2SuffixOffset], b[:])
}

// Create2AddressInto hashes CREATE2 input and writes the 20-byte address into addrBuf.
// Reuses the provided hasher to avoid allocations. inputBuf must be Create2InputLen (85),
// hashBuf must be at least 32 bytes, addrBuf must be 20 bytes.
func Create2AddressInto(hasher hash.Hash, inputBuf, hashBuf, addrBuf []byte) {
	hasher.Reset()
	hasher.Write(inputBuf)
	sum := hasher.Sum(hashBuf[:0])
	copy(addrBuf, sum[12:32])
}

// ComputeAddress returns the address a CREATE2 deployment from deployer with
// the given salt and creation payload (creation code followed by the encoded
// constructor arguments) would produce.
func ComputeAddress(deployer common.Address, salt *uint256.Int, payload []byte) common.Address {
	in := Create2Input(deployer, salt, Keccak256(payload))
	return common.BytesToAddress(Keccak256(in[:])[12:])
}

// DecodeHex strips an optional 0x prefix and decodes the remaining hex digits.
func DecodeHex(s string) ([]byte, error) {
	h := strip0x(strings.TrimSpace(s))
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHex, err)
	}
	return b, nil
}

// ParseAddress decodes a hex address, which must be exactly 20 bytes.
func ParseAddress(s string) (common.Address, error) {
	b, err := DecodeHex(s)
	if err != nil {
		return common.Address{}, err
	}
	if len(b) != common.AddressLength {
		return common.Address{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidAddress, len(b), common.AddressLength)
	}
	return common.BytesToAddress(b), nil
}

// ParseSalt reads a salt given in decimal or 0x-prefixed hex.
func ParseSalt(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(uint256.Int), nil
	}
	if has0x(s) {
		b, err := DecodeHex(evenHex(s))
		if err != nil {
			return nil, err
		}
		if len(b) > 32 {
			return nil, fmt.Errorf("%w: %d bytes exceeds 32", ErrInvalidSalt, len(b))
		}
		return new(uint256.Int).SetBytes(b), nil
	}
	salt, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSalt, err)
	}
	return salt, nil
}

// SaltHex renders a salt the way deployment tooling expects it as a minimal
// 0x-prefixed hex quantity.
func SaltHex(salt *uint256.Int) string {
	return salt.Hex()
}

// SaltBytes32Hex renders a salt as a full 32 byte word.
func SaltBytes32Hex(salt *uint256.Int) string {
	b := salt.Bytes32()
	return "0x" + hex.EncodeToString(b[:])
}

// ---- helpers ----

func has0x(s string) bool {
	return len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X")
}

func strip0x(s string) string {
	if has0x(s) {
		return s[2:]
	}
	return s
}

// evenHex left pads an odd length hex quantity so it decodes as bytes.
func evenHex(s string) string {
	h := strip0x(s)
	if len(h)%2 != 0 {
		h = "0" + h
	}
	return h
}
