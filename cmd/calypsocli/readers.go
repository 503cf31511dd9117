package main

import (
	"github.com/spf13/cobra"

	"github.com/gregclo/calypso-core/transceiver/pcsc"
)

var readersCmd = &cobra.Command{
	Use:   "readers",
	Short: "List PC/SC reader slots visible to this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := pcsc.ListReaders()
		if err != nil {
			return err
		}
		printReaderList(names)
		return nil
	},
}
