package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storefront-payments",
	Short: "Storefront payments service",
	Long:  "Payment gateway core of the storefront: signed PayFast payment forms, ITN settlement and signature tooling.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
