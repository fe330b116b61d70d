package main

import (
	"context"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Start a new ring, anchored at this node",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := buildApp(ctx)
		if err != nil {
			fatal(nil, "failed to initialize node", err)
		}

		a.node.Create(a.ln)
		a.lgr.Info("ring created")

		a.runUntilSignal(ctx)
	},
}
