package miner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/screa/hook-address-miner/internal/config"
	"github.com/screa/hook-address-miner/internal/crypto"
	"github.com/screa/hook-address-miner/internal/logger"
	"github.com/screa/hook-address-miner/pkg/flags"
)

const testBytecode = "608060405234801561001057600080fd5b50600436106100365760003560e01c8063"

var (
	testDeployer = common.HexToAddress(crypto.Create2DeployerProxy)
	testArgs     = common.LeftPadBytes(common.HexToAddress("0x000000000004444c5dc75cB358380D2e3dE08A90").Bytes(), 32)
)

func testCode(t *testing.T) []byte {
	t.Helper()
	code, err := crypto.DecodeHex(testBytecode)
	if err != nil {
		t.Fatalf("DecodeHex() error = %v", err)
	}
	return code
}

// lowBits brute forces the permission bits of the first n salts from seed.
func lowBits(code []byte, seed uint64, n int) []uint16 {
	payload := append(append([]byte{}, code...), testArgs...)
	out := make([]uint16, n)
	for i := range out {
		addr := crypto.ComputeAddress(testDeployer, uint256.NewInt(seed+uint64(i)), payload)
		out[i] = flags.FromAddress(addr)
	}
	return out
}

// firstIndex returns the first index holding target, or -1.
func firstIndex(bits []uint16, target uint16) int {
	for i, b := range bits {
		if b == target {
			return i
		}
	}
	return -1
}

// absentTarget returns a flag mask that none of bits carries.
func absentTarget(bits []uint16) uint16 {
	seen := make(map[uint16]bool, len(bits))
	for _, b := range bits {
		seen[b] = true
	}
	for target := uint16(0); ; target++ {
		if !seen[target] {
			return target
		}
	}
}

func TestFindReturnsSmallestSalt(t *testing.T) {
	code := testCode(t)
	bits := lowBits(code, 0, 500)

	for _, pick := range []int{0, 37, 499} {
		target := bits[pick]
		want := firstIndex(bits, target)

		addr, salt, err := Find(testDeployer, target, uint256.NewInt(0), code, testArgs)
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if salt.Uint64() != uint64(want) {
			t.Errorf("Find() salt = %d, want %d", salt.Uint64(), want)
		}
		if flags.FromAddress(addr) != target {
			t.Errorf("Find() address %s carries %#x, want %#x", addr.Hex(), flags.FromAddress(addr), target)
		}
		payload := append(append([]byte{}, code...), testArgs...)
		if expected := crypto.ComputeAddress(testDeployer, salt, payload); expected != addr {
			t.Errorf("Find() address = %s, want %s", addr.Hex(), expected.Hex())
		}
	}
}

func TestFindFromSeed(t *testing.T) {
	code := testCode(t)
	const seed = 1000
	bits := lowBits(code, seed, 300)
	target := bits[150]
	want := seed + uint64(firstIndex(bits, target))

	_, salt, err := Find(testDeployer, target, uint256.NewInt(seed), code, testArgs)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if salt.Uint64() != want {
		t.Errorf("Find() salt = %d, want %d", salt.Uint64(), want)
	}
}

func TestFindExhausted(t *testing.T) {
	code := testCode(t)
	const bound = 100
	target := absentTarget(lowBits(code, 0, bound))

	_, _, err := FindWithin(testDeployer, target, uint256.NewInt(0), code, testArgs, bound)
	if !errors.Is(err, ErrSearchExhausted) {
		t.Errorf("FindWithin() error = %v, want ErrSearchExhausted", err)
	}

	_, _, err = FindWithin(testDeployer, 0, uint256.NewInt(0), code, testArgs, 0)
	if !errors.Is(err, ErrSearchExhausted) {
		t.Errorf("FindWithin() with zero bound error = %v, want ErrSearchExhausted", err)
	}
}

func TestFindInvalidInput(t *testing.T) {
	code := testCode(t)

	_, _, err := Find(testDeployer, flags.Mask+1, uint256.NewInt(0), code, nil)
	if !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("Find() error = %v, want ErrInvalidTarget", err)
	}

	seed := new(uint256.Int).SetAllOne()
	_, _, err = FindWithin(testDeployer, 0, seed, code, nil, 2)
	if !errors.Is(err, ErrSeedOverflow) {
		t.Errorf("FindWithin() error = %v, want ErrSeedOverflow", err)
	}
}

func newTestMiner(t *testing.T, target uint16, workers int, bound uint64) *Miner {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Mask = fmt.Sprintf("%#x", target)
	cfg.Bytecode = testBytecode
	cfg.ConstructorArgs = common.Bytes2Hex(testArgs)
	cfg.Workers = workers
	cfg.MaxLoop = bound
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	m, err := NewMiner(cfg, logger.Discard())
	if err != nil {
		t.Fatalf("NewMiner() error = %v", err)
	}
	if m.TargetFlags() != target {
		t.Fatalf("TargetFlags() = %#x, want %#x", m.TargetFlags(), target)
	}
	return m
}

func TestMinerMatchesSequential(t *testing.T) {
	code := testCode(t)
	bits := lowBits(code, 0, 5000)

	for _, pick := range []int{3, 1500, 4096} {
		target := bits[pick]
		_, wantSalt, err := Find(testDeployer, target, uint256.NewInt(0), code, testArgs)
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}

		for _, workers := range []int{1, 4, 16} {
			m := newTestMiner(t, target, workers, config.MaxLoop)
			result, err := m.Mine(context.Background())
			if err != nil {
				t.Fatalf("Mine() with %d workers error = %v", workers, err)
			}
			if result.SaltInt.Cmp(wantSalt) != 0 {
				t.Errorf("Mine() with %d workers salt = %s, want %s", workers, result.SaltInt.Dec(), wantSalt.Dec())
			}
			if result.Salt != crypto.SaltHex(wantSalt) {
				t.Errorf("Mine() salt hex = %s, want %s", result.Salt, crypto.SaltHex(wantSalt))
			}
			if result.Flags != target {
				t.Errorf("Mine() flags = %#x, want %#x", result.Flags, target)
			}
			if m.GetBestResult() != result {
				t.Error("GetBestResult() does not return the mined result")
			}
		}
	}
}

func TestMinerExhausted(t *testing.T) {
	code := testCode(t)
	const bound = 3000
	target := absentTarget(lowBits(code, 0, bound))

	m := newTestMiner(t, target, 4, bound)
	result, err := m.Mine(context.Background())
	if !errors.Is(err, ErrSearchExhausted) {
		t.Fatalf("Mine() error = %v, want ErrSearchExhausted", err)
	}
	if result != nil {
		t.Errorf("Mine() result = %+v, want nil", result)
	}
	if m.Attempts() != bound {
		t.Errorf("Attempts() = %d, want %d", m.Attempts(), bound)
	}
}

func TestMinerStop(t *testing.T) {
	code := testCode(t)
	target := absentTarget(lowBits(code, 0, 100))

	m := newTestMiner(t, target, 2, 1<<40)
	m.Stop()
	m.Stop()
	if _, err := m.Mine(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Mine() error = %v, want ErrStopped", err)
	}
}

func TestMinerCancelled(t *testing.T) {
	code := testCode(t)
	target := absentTarget(lowBits(code, 0, 100))

	m := newTestMiner(t, target, 2, 1<<40)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Mine(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Mine() error = %v, want context.Canceled", err)
	}
}
