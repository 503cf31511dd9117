// Command calypsocli is the terminal-core library's own reference harness
// (spec.md §1's explicit non-goal "a reader/CLI wrapper" still gets one
// here, the same way 1ph-sim_reader ships alongside its own sim library):
// it wires config, transceiver, crypto provider, and transaction together
// the way an integrator's own terminal application would, and renders the
// result with the pack's table output convention instead of the teacher's
// own EMV-only main.go.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"

	configPath  string
	cardReader  string
	samReader   string
	aidHex      string
	sfi         uint8
	recordNum   uint8
	withSession bool
	keyLevel    string
)

var rootCmd = &cobra.Command{
	Use:     "calypsocli",
	Short:   "Calypso contactless terminal-core reference harness",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "terminal config YAML (required)")
	rootCmd.PersistentFlags().StringVar(&cardReader, "reader", "", "card reader name override (defaults to config.card_reader)")
	rootCmd.PersistentFlags().StringVar(&samReader, "sam-reader", "", "SAM reader name override (defaults to config.sam_reader)")

	runCmd.Flags().StringVar(&aidHex, "aid", "315449432E4943414C54", "application AID to select, hex")
	runCmd.Flags().Uint8Var(&sfi, "sfi", 7, "SFI of the EF to read")
	runCmd.Flags().Uint8Var(&recordNum, "record", 1, "record number to read")
	runCmd.Flags().BoolVar(&withSession, "session", false, "wrap the read in a secure session")
	runCmd.Flags().StringVar(&keyLevel, "level", "personalization", "session key level: personalization|load|debit")

	rootCmd.AddCommand(readersCmd)
	rootCmd.AddCommand(runCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func requireConfig() error {
	if configPath == "" {
		return fmt.Errorf("--config is required")
	}
	return nil
}
