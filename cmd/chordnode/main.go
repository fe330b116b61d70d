package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "chordnode",
	Short: "Run a Chord ring-membership and routing node",
	Long:  `chordnode runs a single Chord DHT participant: ring lookup, finger-table maintenance, and the inbound wire-protocol dispatcher.`,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/node.yaml", "path to configuration file")
	rootCmd.AddCommand(createCmd, joinCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
