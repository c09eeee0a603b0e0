package miner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/screa/hook-address-miner/internal/config"
	"github.com/screa/hook-address-miner/internal/crypto"
	"github.com/screa/hook-address-miner/internal/logger"
	"github.com/screa/hook-address-miner/pkg/flags"
	"github.com/screa/hook-address-miner/pkg/types"
	"github.com/screa/hook-address-miner/pkg/worker"
)

// ChunkSize is the number of consecutive salts a worker claims at a time.
const ChunkSize = 1024

// Errors
var (
	ErrSearchExhausted = errors.New("could not find salt")
	ErrSeedOverflow    = errors.New("seed plus search bound exceeds 256 bits")
	ErrInvalidTarget   = errors.New("target flags outside permission mask")
	ErrStopped         = errors.New("mining stopped")
)

// noMatch marks the absence of a matching offset.
const noMatch = math.MaxUint64

// Find searches salts in [seed, seed+config.MaxLoop) in order and returns the
// first hook address whose low 14 bits equal targetFlags, with its salt.
func Find(deployer common.Address, targetFlags uint16, seed *uint256.Int, creationCode, constructorArgs []byte) (common.Address, *uint256.Int, error) {
	return FindWithin(deployer, targetFlags, seed, creationCode, constructorArgs, config.MaxLoop)
}

// FindWithin is Find with an explicit search bound.
func FindWithin(deployer common.Address, targetFlags uint16, seed *uint256.Int, creationCode, constructorArgs []byte, bound uint64) (common.Address, *uint256.Int, error) {
	wc, err := newWorkerConfig(deployer, targetFlags, seed, creationCode, constructorArgs, bound)
	if err != nil {
		return common.Address{}, nil, err
	}

	var attempts int64
	w := worker.NewWorker(wc, &attempts)
	off, ok := w.ScanChunk(0, bound, func() uint64 { return bound })
	if !ok {
		return common.Address{}, nil, fmt.Errorf("%w: tried %d salts from %s", ErrSearchExhausted, bound, wc.Seed.Dec())
	}
	return common.Address(w.Address()), new(uint256.Int).AddUint64(wc.Seed, off), nil
}

// Miner searches the salt range with several workers
type Miner struct {
	workers      int
	bound        uint64
	logInterval  time.Duration
	logger       *logger.Logger
	workerConfig *types.WorkerConfig

	attempts   int64
	best       atomic.Uint64
	bestResult *types.Result
	mu         sync.RWMutex
	done       chan struct{}
	once       sync.Once
}

// NewMiner creates a new miner instance from the application configuration
func NewMiner(cfg *config.Config, log *logger.Logger) (*Miner, error) {
	deployer, err := cfg.GetDeployer()
	if err != nil {
		return nil, fmt.Errorf("deployer: %w", err)
	}
	target, err := cfg.GetTargetFlags()
	if err != nil {
		return nil, fmt.Errorf("target flags: %w", err)
	}
	seed, err := cfg.GetSeed()
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	initcode, err := cfg.GetBytecode()
	if err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}
	args, err := cfg.GetConstructorArgs()
	if err != nil {
		return nil, fmt.Errorf("constructor args: %w", err)
	}

	wc, err := newWorkerConfig(deployer, target, seed, initcode, args, cfg.MaxLoop)
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if cfg.Sequential {
		workers = 1
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = logger.Discard()
	}

	return &Miner{
		workers:      workers,
		bound:        cfg.MaxLoop,
		logInterval:  time.Duration(cfg.LogInterval) * time.Second,
		logger:       log,
		workerConfig: wc,
		done:         make(chan struct{}),
	}, nil
}

// TargetFlags returns the permission bits being mined for
func (m *Miner) TargetFlags() uint16 {
	return m.workerConfig.TargetFlags
}

// Mine runs the search and returns the lowest matching salt from the seed.
// Workers claim chunks in ascending order and keep a shared minimum of the
// matching offsets, so the answer matches a sequential scan.
func (m *Miner) Mine(ctx context.Context) (*types.Result, error) {
	start := time.Now()
	m.best.Store(noMatch)

	var stopped atomic.Bool
	if ctx.Err() != nil || isStopped(m.done) {
		stopped.Store(true)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
		case <-m.done:
		}
		stopped.Store(true)
	}()

	limit := func() uint64 {
		if stopped.Load() {
			return 0
		}
		return min(m.best.Load(), m.bound)
	}

	// Start periodic logging if verbose mode is enabled
	if m.logger.Verbose() && m.logInterval > 0 {
		ticker := time.NewTicker(m.logInterval)
		logDone := make(chan struct{})
		defer func() {
			ticker.Stop()
			close(logDone)
		}()
		go m.periodicLogger(ticker, logDone, start)
		m.logger.Printf("Mining started with %d workers, logging every %v...", m.workers, m.logInterval)
	}

	var next atomic.Uint64
	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.worker(&next, limit)
		}()
	}
	wg.Wait()

	off := m.best.Load()
	var result *types.Result
	if off != noMatch {
		result = m.result(off, start)
		m.mu.Lock()
		m.bestResult = result
		m.mu.Unlock()
	}

	// an interrupted scan may have skipped lower salts
	if stopped.Load() {
		if isStopped(m.done) {
			return nil, ErrStopped
		}
		return nil, ctx.Err()
	}
	if result == nil {
		return nil, fmt.Errorf("%w: tried %d salts from %s", ErrSearchExhausted, m.bound, m.workerConfig.Seed.Dec())
	}
	return result, nil
}

// worker claims chunks until the range is exhausted or a lower match exists
func (m *Miner) worker(next *atomic.Uint64, limit func() uint64) {
	w := worker.NewWorker(m.workerConfig, &m.attempts)
	for {
		start := (next.Add(1) - 1) * ChunkSize
		if start >= limit() {
			return
		}
		end := min(start+ChunkSize, m.bound)
		if off, ok := w.ScanChunk(start, end, limit); ok {
			m.lower(off)
			m.logger.Debugf("Worker matched salt offset %d", off)
		}
	}
}

// lower records off as the best match if it is below the current one
func (m *Miner) lower(off uint64) {
	for {
		cur := m.best.Load()
		if off >= cur || m.best.CompareAndSwap(cur, off) {
			return
		}
	}
}

// result rebuilds the full result for a matching offset
func (m *Miner) result(off uint64, start time.Time) *types.Result {
	wc := m.workerConfig
	salt := new(uint256.Int).AddUint64(wc.Seed, off)
	in := crypto.Create2Input(wc.Deployer, salt, wc.Create2Suffix)
	addr := common.BytesToAddress(crypto.Keccak256(in[:])[12:])
	return &types.Result{
		Salt:     crypto.SaltHex(salt),
		SaltInt:  salt,
		Address:  addr.Hex(),
		Flags:    flags.FromAddress(addr),
		Attempts: atomic.LoadInt64(&m.attempts),
		Duration: time.Since(start),
	}
}

// Stop stops the mining process
func (m *Miner) Stop() {
	m.once.Do(func() { close(m.done) })
}

// GetBestResult returns the lowest match found so far. After an interrupted
// run it is not guaranteed to be the lowest salt in the range.
func (m *Miner) GetBestResult() *types.Result {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bestResult
}

// Attempts returns the number of salts hashed so far
func (m *Miner) Attempts() int64 {
	return atomic.LoadInt64(&m.attempts)
}

// periodicLogger logs mining progress at regular intervals
func (m *Miner) periodicLogger(ticker *time.Ticker, done chan struct{}, start time.Time) {
	for {
		select {
		case <-ticker.C:
			attempts := atomic.LoadInt64(&m.attempts)
			elapsed := time.Since(start)

			// Calculate rate safely
			rate := 0.0
			if elapsed.Seconds() > 0 {
				rate = float64(attempts) / elapsed.Seconds()
			}

			if off := m.best.Load(); off != noMatch {
				m.logger.Printf("Progress: %d/%d attempts, %.2f hashes/sec, Best offset so far: %d",
					attempts, m.bound, rate, off)
			} else {
				m.logger.Printf("Progress: %d/%d attempts, %.2f hashes/sec, No match yet",
					attempts, m.bound, rate)
			}
		case <-done:
			return
		}
	}
}

func newWorkerConfig(deployer common.Address, targetFlags uint16, seed *uint256.Int, creationCode, constructorArgs []byte, bound uint64) (*types.WorkerConfig, error) {
	if targetFlags&^flags.Mask != 0 {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidTarget, targetFlags)
	}
	if seed == nil {
		seed = new(uint256.Int)
	}
	if bound > 0 {
		if _, overflow := new(uint256.Int).AddOverflow(seed, uint256.NewInt(bound-1)); overflow {
			return nil, ErrSeedOverflow
		}
	}

	// creation code and constructor args are hashed as one payload
	initcodeHash := crypto.Keccak256(creationCode, constructorArgs)
	prefix := make([]byte, crypto.Create2PrefixLen)
	prefix[0] = 0xff
	copy(prefix[1:], deployer[:])

	return &types.WorkerConfig{
		Deployer:      deployer,
		TargetFlags:   targetFlags,
		Seed:          seed.Clone(),
		Create2Prefix: prefix,
		Create2Suffix: initcodeHash,
	}, nil
}

func isStopped(done chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}
