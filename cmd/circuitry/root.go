package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/circuitry/internal/cli"
	"github.com/aretw0/circuitry/internal/logging"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:   "circuitry",
	Short: "Circuitry simulates combinational logic circuits",
	Long: `Circuitry wires inputs, gates and outputs into a graph, propagates boolean
values through it, and lets you save sub-graphs as reusable circuits.

Circuits are described in YAML, JSON or HCL files.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", envOr("CIRCUITRY_LOG_LEVEL", "warn"), "Log level: debug, info, warn or error (env CIRCUITRY_LOG_LEVEL)")
	flags.String("store", string(cli.StoreMemory), "Where saved circuits and snapshots live: memory, file or redis")
	flags.String("store-dir", envOr("CIRCUITRY_STORE_DIR", ".circuitry"), "Directory for --store file")
	flags.String("redis-addr", envOr("CIRCUITRY_REDIS_ADDR", "localhost:6379"), "Redis address for --store redis (env CIRCUITRY_REDIS_ADDR)")
	flags.String("redis-prefix", "", "Key prefix for --store redis")
	flags.Int("max-depth", 0, "Maximum circuit nesting depth (0 keeps the default)")
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	raw, _ := cmd.Flags().GetString("log-level")
	level, err := logging.ParseLevel(raw)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

// setupOptions collects the persistent flags. file may be empty.
func setupOptions(cmd *cobra.Command, file string) cli.Options {
	store, _ := cmd.Flags().GetString("store")
	dir, _ := cmd.Flags().GetString("store-dir")
	addr, _ := cmd.Flags().GetString("redis-addr")
	prefix, _ := cmd.Flags().GetString("redis-prefix")
	depth, _ := cmd.Flags().GetInt("max-depth")
	return cli.Options{
		File:        file,
		Store:       cli.StoreKind(store),
		StoreDir:    dir,
		RedisAddr:   addr,
		RedisPrefix: prefix,
		MaxDepth:    depth,
	}
}

func isTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
