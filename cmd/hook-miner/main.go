package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/screa/hook-address-miner/internal/config"
	"github.com/screa/hook-address-miner/internal/crypto"
	logpkg "github.com/screa/hook-address-miner/internal/logger"
	"github.com/screa/hook-address-miner/pkg/flags"
	minerpkg "github.com/screa/hook-address-miner/pkg/miner"
	"github.com/screa/hook-address-miner/pkg/types"
)

var (
	cfg    = config.NewConfig()
	logger *logpkg.Logger
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "hook-miner",
		Short: "CREATE2 salt miner for Uniswap v4 hooks",
		Long: `Mines CREATE2 salts for Uniswap v4 hook contracts.
The pool manager reads a hook's permissions from the lowest 14 bits of its
address, so the hook must be deployed at an address carrying exactly the
permission flags it implements.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVarP(&cfg.LogFile, "log-file", "l", "", "Log file for progress tracking (default: stdout)")

	rootCmd.AddCommand(newMineCmd(), newAddressCmd(), newFlagsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newMineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Find the lowest salt whose hook address carries the target flags",
		RunE:  runMiner,
	}

	f := cmd.Flags()
	f.IntVarP(&cfg.Workers, "workers", "w", runtime.NumCPU(), "Number of worker goroutines")
	f.BoolVar(&cfg.Sequential, "sequential", false, "Scan salts on a single goroutine")
	f.StringVarP(&cfg.Deployer, "deployer", "d", crypto.Create2DeployerProxy, "Address deploying the hook via CREATE2")
	f.StringVar(&cfg.Seed, "seed", "0", "First salt to try (decimal or 0x hex)")
	f.Uint64Var(&cfg.MaxLoop, "max-loop", config.MaxLoop, "Number of salts to try before giving up")
	f.StringVarP(&cfg.Flags, "flags", "f", "", "Comma separated hook flags, e.g. beforeSwap,afterSwap")
	f.StringVarP(&cfg.Mask, "mask", "m", "", "Hook flag bitmask (decimal or 0x hex)")
	f.StringVarP(&cfg.SourceFile, "source", "S", "", "Solidity source to read Hooks.Permissions from")
	addBytecodeFlags(cmd)
	f.IntVarP(&cfg.LogInterval, "log-interval", "i", 5, "Logging interval in seconds (default: 5)")
	return cmd
}

func newAddressCmd() *cobra.Command {
	var salt string
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Compute the CREATE2 address for one salt",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Bytecode == "" && cfg.BytecodeFile == "" {
				return config.ErrNoBytecodeSpecified
			}
			deployer, err := cfg.GetDeployer()
			if err != nil {
				return err
			}
			s, err := crypto.ParseSalt(salt)
			if err != nil {
				return err
			}
			payload, err := creationPayload()
			if err != nil {
				return err
			}
			addr := crypto.ComputeAddress(deployer, s, payload)
			mask := flags.FromAddress(addr)
			fmt.Fprintf(cmd.OutOrStdout(), "Address: %s\n", addr.Hex())
			fmt.Fprintf(cmd.OutOrStdout(), "Flags: %#06x %s\n", mask, strings.Join(flags.Names(mask), ","))
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfg.Deployer, "deployer", "d", crypto.Create2DeployerProxy, "Address deploying the hook via CREATE2")
	cmd.Flags().StringVar(&salt, "salt", "0", "Salt (decimal or 0x hex)")
	addBytecodeFlags(cmd)
	return cmd
}

func newFlagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flags [source.sol]",
		Short: "Print the flag bitmask declared in a hook's Hooks.Permissions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mask uint16
			switch {
			case len(args) == 1:
				src, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				mask = flags.FromSource(string(src))
			case cfg.Flags != "":
				var err error
				if mask, err = flags.Parse(cfg.Flags); err != nil {
					return err
				}
			default:
				return errors.New("pass a source file or --flags")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Mask: %#06x (%d)\n", mask, mask)
			fmt.Fprintf(cmd.OutOrStdout(), "Flags: %s\n", strings.Join(flags.Names(mask), ","))
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfg.Flags, "flags", "f", "", "Comma separated hook flags")
	return cmd
}

func addBytecodeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&cfg.Bytecode, "bytecode", "B", "", "Contract creation code (hex)")
	f.StringVarP(&cfg.BytecodeFile, "bytecode-file", "F", "", "File containing creation code (hex or compiler artifact JSON)")
	f.StringVarP(&cfg.ConstructorArgs, "constructor-args", "a", "", "ABI-encoded constructor arguments (hex)")
	f.StringVar(&cfg.ConstructorTypes, "constructor-types", "", "Constructor argument types to encode, e.g. address,uint24")
	f.StringSliceVar(&cfg.ConstructorValues, "constructor-values", nil, "Constructor argument values, one per type")
}

func creationPayload() ([]byte, error) {
	code, err := cfg.GetBytecode()
	if err != nil {
		return nil, err
	}
	args, err := cfg.GetConstructorArgs()
	if err != nil {
		return nil, err
	}
	return append(code, args...), nil
}

func runMiner(cmd *cobra.Command, args []string) error {
	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Setup logging
	if err := setupLogging(); err != nil {
		return err
	}

	miner, err := minerpkg.NewMiner(cfg, logger)
	if err != nil {
		return err
	}

	workers := cfg.Workers
	if cfg.Sequential {
		workers = 1
	}
	logger.Printf("Starting hook address miner with %d workers...", workers)
	logger.Printf("Target: %s", cfg.GetTargetDescription())
	logger.Printf("Flags: %#06x %s", miner.TargetFlags(), strings.Join(flags.Names(miner.TargetFlags()), ","))
	logger.Printf("Deployer: %s", cfg.Deployer)
	if cfg.BytecodeFile != "" {
		logger.Printf("Bytecode file: %s", cfg.BytecodeFile)
	} else {
		logger.Printf("Bytecode: %s...", cfg.Bytecode[:min(20, len(cfg.Bytecode))])
	}

	// Ctrl+C cancels the search
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := miner.Mine(ctx)
	switch {
	case err == nil:
		logger.Printf("🎉 Found match!")
		printResult(result)
		return nil
	case errors.Is(err, context.Canceled):
		logger.Println("\nReceived interrupt signal (Ctrl+C). Mining stopped.")
		if best := miner.GetBestResult(); best != nil {
			logger.Printf("Lowest match before interrupt (lower salts may be unscanned):")
			printResult(best)
		}
		return nil
	case errors.Is(err, minerpkg.ErrSearchExhausted):
		logger.Printf("No match found after %d attempts.", miner.Attempts())
		return err
	default:
		return err
	}
}

func printResult(result *types.Result) {
	logger.Printf("Salt: %s", result.Salt)
	logger.Printf("Salt (bytes32): %s", crypto.SaltBytes32Hex(result.SaltInt))
	logger.Printf("Address: %s", result.Address)
	logger.Printf("Flags: %#06x %s", result.Flags, strings.Join(flags.Names(result.Flags), ","))
	logger.Printf("Attempts: %d", result.Attempts)
	logger.Printf("Duration: %v", result.Duration)

	// Calculate rate safely
	rate := 0.0
	if result.Duration.Seconds() > 0 {
		rate = float64(result.Attempts) / result.Duration.Seconds()
	}
	logger.Printf("Rate: %.2f hashes/sec", rate)
}

func setupLogging() error {
	if cfg.LogFile != "" {
		// Log to file
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logger = logpkg.NewWriter(file)
		logger.SetFlags(log.LstdFlags | log.Lmicroseconds)
	} else {
		// Log to stdout
		logger = logpkg.New()
		logger.SetFlags(log.LstdFlags)
	}
	logger.SetVerbose(cfg.Verbose)
	return nil
}
