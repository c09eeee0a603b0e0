package abiargs

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func word(hexValue string) string {
	return strings.Repeat("0", 64-len(hexValue)) + hexValue
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		types    []string
		values   []string
		expected string
	}{
		{
			name:     "pool manager address",
			types:    []string{"address"},
			values:   []string{"0x000000000004444c5dc75cB358380D2e3dE08A90"},
			expected: word("000000000004444c5dc75cb358380d2e3de08a90"),
		},
		{
			name:     "address and uint256",
			types:    []string{"address", "uint256"},
			values:   []string{"0x0000000000000000000000000000000000000001", "1000"},
			expected: word("1") + word("3e8"),
		},
		{
			name:     "hex integer and bool",
			types:    []string{"uint24", "bool"},
			values:   []string{"0xbb8", "true"},
			expected: word("bb8") + word("1"),
		},
		{
			name:     "small widths",
			types:    []string{"uint8", "uint64", "int256"},
			values:   []string{"255", "1", "-1"},
			expected: word("ff") + word("1") + strings.Repeat("f", 64),
		},
		{
			name:     "bytes32",
			types:    []string{"bytes32"},
			values:   []string{"0x01"},
			expected: word("1"),
		},
		{
			name:     "empty",
			types:    nil,
			values:   nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.types, tt.values)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if hex.EncodeToString(got) != tt.expected {
				t.Errorf("Encode() = %x, want %s", got, tt.expected)
			}
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		types   []string
		values  []string
		wantErr error
	}{
		{name: "count mismatch", types: []string{"address"}, values: nil, wantErr: ErrCountMismatch},
		{name: "array type", types: []string{"uint256[]"}, values: []string{"1"}, wantErr: ErrUnsupportedType},
		{name: "short fixed bytes", types: []string{"bytes16"}, values: []string{"0x01"}, wantErr: ErrUnsupportedType},
		{name: "invalid type", types: []string{"float"}, values: []string{"1"}, wantErr: ErrUnsupportedType},
		{name: "bad integer", types: []string{"uint256"}, values: []string{"lots"}, wantErr: ErrInvalidValue},
		{name: "negative uint", types: []string{"uint256"}, values: []string{"-1"}, wantErr: ErrInvalidValue},
		{name: "overflow", types: []string{"uint8"}, values: []string{"256"}, wantErr: ErrInvalidValue},
		{name: "signed overflow", types: []string{"int8"}, values: []string{"128"}, wantErr: ErrInvalidValue},
		{name: "bad bool", types: []string{"bool"}, values: []string{"yes"}, wantErr: ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.types, tt.values)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Encode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
