package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/screa/hook-address-miner/internal/crypto"
	"github.com/screa/hook-address-miner/pkg/abiargs"
	"github.com/screa/hook-address-miner/pkg/flags"
)

// MaxLoop is the default number of salts tried before giving up.
const MaxLoop = 200000

// Errors
var (
	ErrNoTargetSpecified    = errors.New("must specify one of --flags, --mask or --source")
	ErrManyTargetsSpecified = errors.New("--flags, --mask and --source are mutually exclusive")
	ErrNoBytecodeSpecified  = errors.New("must specify either --bytecode or --bytecode-file")
	ErrArgsMismatch         = errors.New("--constructor-args cannot be combined with --constructor-types")
	ErrInvalidMask          = errors.New("invalid flag mask")
)

// Config holds the application configuration
type Config struct {
	Workers     int
	Sequential  bool
	Verbose     bool
	LogFile     string
	LogInterval int // Logging interval in seconds

	Deployer string
	Seed     string
	MaxLoop  uint64

	// Target flags, exactly one of these is set
	Flags      string // comma separated flag names
	Mask       string // numeric mask, decimal or 0x hex
	SourceFile string // Solidity source carrying a Hooks.Permissions literal

	Bytecode          string
	BytecodeFile      string
	ConstructorArgs   string   // ABI-encoded, hex
	ConstructorTypes  string   // comma separated ABI types
	ConstructorValues []string // one per type
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Workers:     runtime.NumCPU(),
		LogInterval: 5, // Default 5 seconds
		Deployer:    crypto.Create2DeployerProxy,
		MaxLoop:     MaxLoop,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	targets := 0
	for _, s := range []string{c.Flags, c.Mask, c.SourceFile} {
		if s != "" {
			targets++
		}
	}
	if targets == 0 {
		return ErrNoTargetSpecified
	}
	if targets > 1 {
		return ErrManyTargetsSpecified
	}
	if c.Bytecode == "" && c.BytecodeFile == "" {
		return ErrNoBytecodeSpecified
	}
	if c.ConstructorArgs != "" && c.ConstructorTypes != "" {
		return ErrArgsMismatch
	}
	if _, err := c.GetDeployer(); err != nil {
		return err
	}
	if _, err := c.GetSeed(); err != nil {
		return err
	}
	return nil
}

// GetTargetDescription returns a human-readable description of the target
func (c *Config) GetTargetDescription() string {
	switch {
	case c.Flags != "":
		return "flags: " + c.Flags
	case c.Mask != "":
		return "mask: " + c.Mask
	case c.SourceFile != "":
		return "permissions in " + c.SourceFile
	}
	return "unknown"
}

// GetDeployer returns the CREATE2 deployer address
func (c *Config) GetDeployer() (common.Address, error) {
	return crypto.ParseAddress(c.Deployer)
}

// GetSeed returns the first salt to try
func (c *Config) GetSeed() (*uint256.Int, error) {
	return crypto.ParseSalt(c.Seed)
}

// GetTargetFlags resolves the permission bits the mined address must carry
func (c *Config) GetTargetFlags() (uint16, error) {
	switch {
	case c.Flags != "":
		return flags.Parse(c.Flags)
	case c.Mask != "":
		return parseMask(c.Mask)
	case c.SourceFile != "":
		src, err := os.ReadFile(c.SourceFile)
		if err != nil {
			return 0, err
		}
		return flags.FromSource(string(src)), nil
	}
	return 0, ErrNoTargetSpecified
}

// GetBytecode returns the contract creation code
func (c *Config) GetBytecode() ([]byte, error) {
	// Check if bytecode file is specified
	if c.BytecodeFile != "" {
		return readBytecodeFromFile(c.BytecodeFile)
	}

	if c.Bytecode != "" {
		return crypto.DecodeHex(c.Bytecode)
	}

	// This should not happen if validation passes
	return nil, ErrNoBytecodeSpecified
}

// GetConstructorArgs returns the ABI-encoded constructor arguments, which may be empty
func (c *Config) GetConstructorArgs() ([]byte, error) {
	if c.ConstructorTypes != "" {
		return abiargs.Encode(splitList(c.ConstructorTypes), c.ConstructorValues)
	}
	if c.ConstructorArgs != "" {
		return crypto.DecodeHex(c.ConstructorArgs)
	}
	return nil, nil
}

// readBytecodeFromFile reads bytecode from a file. Both a raw hex dump and a
// compiler artifact JSON (bytecode.object) are accepted.
func readBytecodeFromFile(filename string) ([]byte, error) {
	// Read file content
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	code := strings.TrimSpace(string(content))
	if strings.HasPrefix(code, "{") {
		code, err = artifactBytecode(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	}
	return crypto.DecodeHex(code)
}

func parseMask(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidMask, err)
	}
	if uint16(v)&^flags.Mask != 0 {
		return 0, fmt.Errorf("%w: %#x has bits outside %#x", ErrInvalidMask, v, flags.Mask)
	}
	return uint16(v), nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
