package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Result represents a mining result
type Result struct {
	Salt     string       // minimal 0x-prefixed hex, ready for `new Hook{salt: ...}`
	SaltInt  *uint256.Int // numeric salt
	Address  string       // EIP-55 checksummed
	Flags    uint16       // permission bits carried by Address
	Attempts int64
	Duration time.Duration
}

// WorkerConfig contains the per-run constants shared by all workers
type WorkerConfig struct {
	Deployer    common.Address
	TargetFlags uint16
	Seed        *uint256.Int

	// Create2Prefix is 0xff + deployer (21 bytes) and Create2Suffix the
	// keccak256 of creation code + constructor args (32 bytes).
	Create2Prefix []byte
	Create2Suffix []byte
}
