// Package abiargs encodes constructor arguments given as type and value
// strings on the command line.
package abiargs

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/screa/hook-address-miner/internal/crypto"
)

var (
	ErrCountMismatch   = errors.New("constructor types and values differ in count")
	ErrUnsupportedType = errors.New("unsupported constructor argument type")
	ErrInvalidValue    = errors.New("invalid constructor argument value")
)

// Encode ABI-encodes values according to types, as abi.encode(...) would.
func Encode(types []string, values []string) ([]byte, error) {
	if len(types) != len(values) {
		return nil, fmt.Errorf("%w: %d types, %d values", ErrCountMismatch, len(types), len(values))
	}

	args := make(abi.Arguments, 0, len(types))
	vals := make([]interface{}, 0, len(values))
	for i, typ := range types {
		t, err := abi.NewType(typ, "", nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedType, typ, err)
		}
		v, err := convert(t, strings.TrimSpace(values[i]))
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, typ, err)
		}
		args = append(args, abi.Argument{Type: t})
		vals = append(vals, v)
	}
	return args.Pack(vals...)
}

// convert turns a string into the Go value go-ethereum packs for t.
func convert(t abi.Type, s string) (interface{}, error) {
	switch t.T {
	case abi.AddressTy:
		return crypto.ParseAddress(s)
	case abi.BoolTy:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return b, nil
	case abi.StringTy:
		return s, nil
	case abi.BytesTy:
		return crypto.DecodeHex(s)
	case abi.FixedBytesTy:
		if t.Size != 32 {
			return nil, fmt.Errorf("%w: bytes%d", ErrUnsupportedType, t.Size)
		}
		b, err := crypto.DecodeHex(s)
		if err != nil {
			return nil, err
		}
		if len(b) > 32 {
			return nil, fmt.Errorf("%w: %d bytes for bytes32", ErrInvalidValue, len(b))
		}
		return common.BytesToHash(b), nil
	case abi.UintTy, abi.IntTy:
		return convertInt(t, s)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t.String())
}

func convertInt(t abi.Type, s string) (interface{}, error) {
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, s)
	}
	if t.T == abi.UintTy && n.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value for %s", ErrInvalidValue, t.String())
	}
	signed := t.T == abi.IntTy
	bits := t.Size
	if signed {
		bits--
	}
	if n.BitLen() > bits {
		return nil, fmt.Errorf("%w: %s overflows %s", ErrInvalidValue, s, t.String())
	}
	// go-ethereum packs 8, 16, 32 and 64 bit integers from the matching Go
	// kinds and every other width from *big.Int
	switch {
	case t.Size == 8 && signed:
		return int8(n.Int64()), nil
	case t.Size == 8:
		return uint8(n.Uint64()), nil
	case t.Size == 16 && signed:
		return int16(n.Int64()), nil
	case t.Size == 16:
		return uint16(n.Uint64()), nil
	case t.Size == 32 && signed:
		return int32(n.Int64()), nil
	case t.Size == 32:
		return uint32(n.Uint64()), nil
	case t.Size == 64 && signed:
		return n.Int64(), nil
	case t.Size == 64:
		return n.Uint64(), nil
	}
	return n, nil
}
