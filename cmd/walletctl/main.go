package main

import (
	"fmt"
	"os"

	"github.com/social-recovery/recovery_wallet/cmd/walletctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
