package worker

import (
	"hash"
	"sync/atomic"

	"github.com/holiman/uint256"

	"github.com/screa/hook-address-miner/internal/crypto"
	"github.com/screa/hook-address-miner/pkg/flags"
	"github.com/screa/hook-address-miner/pkg/types"
)

// Worker scans salt offsets relative to the run seed and checks the
// permission bits of each resulting address.
type Worker struct {
	config   *types.WorkerConfig
	attempts *int64
	hasher   hash.Hash

	// Pre-allocated buffers for performance
	inputBuf [crypto.Create2InputLen]byte
	hashBuf  [32]byte
	addrBuf  [20]byte
	salt     uint256.Int
}

// NewWorker creates a new worker instance
func NewWorker(config *types.WorkerConfig, attempts *int64) *Worker {
	w := &Worker{
		config:   config,
		attempts: attempts,
		hasher:   crypto.NewKeccak(),
	}
	copy(w.inputBuf[:crypto.Create2PrefixLen], config.Create2Prefix)
	copy(w.inputBuf[crypto.Create2SuffixOffset:], config.Create2Suffix)
	return w
}

// ScanChunk checks the offsets in [start, end) in ascending order and returns
// the first one whose address carries the target flags. limit is consulted
// between attempts; the scan gives up once the offset reaches it, since a
// lower match is already known.
func (w *Worker) ScanChunk(start, end uint64, limit func() uint64) (uint64, bool) {
	w.salt.AddUint64(w.config.Seed, start)
	var scanned int64
	defer func() { atomic.AddInt64(w.attempts, scanned) }()

	for off := start; off < end; off++ {
		if off >= limit() {
			return 0, false
		}
		scanned++
		if w.matches() {
			return off, true
		}
		w.salt.AddUint64(&w.salt, 1)
	}
	return 0, false
}

// matches computes the address for the current salt into addrBuf.
func (w *Worker) matches() bool {
	crypto.PutSalt(w.inputBuf[:], &w.salt)
	crypto.Create2AddressInto(w.hasher, w.inputBuf[:], w.hashBuf[:], w.addrBuf[:])
	return flags.FromAddress(w.addrBuf) == w.config.TargetFlags
}

// Address returns the address computed by the last attempt.
func (w *Worker) Address() [20]byte {
	return w.addrBuf
}
