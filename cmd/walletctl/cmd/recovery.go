package cmd

import (
	"net/http"

	"github.com/spf13/cobra"
)

var guardianCmd = &cobra.Command{
	Use:   "guardian",
	Short: "Manage the guardians of a wallet (owner only)",
}

var guardianAddCmd = &cobra.Command{
	Use:   "add <wallet> <account>",
	Short: "Register a guardian",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return walletAction(http.MethodPost, "/api/v1/wallets/"+args[0]+"/guardians", map[string]string{"account": args[1]})
	},
}

var guardianRemoveCmd = &cobra.Command{
	Use:   "remove <wallet> <account>",
	Short: "Deregister a guardian",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return walletAction(http.MethodDelete, "/api/v1/wallets/"+args[0]+"/guardians/"+args[1], nil)
	},
}

var recoveryCmd = &cobra.Command{
	Use:   "recovery",
	Short: "Nominate, claim or cancel an ownership recovery",
}

var recoveryNominateCmd = &cobra.Command{
	Use:   "nominate <wallet> <candidate>",
	Short: "Nominate a new owner (guardian only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return walletAction(http.MethodPost, "/api/v1/wallets/"+args[0]+"/recovery/nominate", map[string]string{"candidate": args[1]})
	},
}

var recoveryClaimCmd = &cobra.Command{
	Use:   "claim <wallet>",
	Short: "Take ownership as the pending recoverer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return walletAction(http.MethodPost, "/api/v1/wallets/"+args[0]+"/recovery/claim", nil)
	},
}

var recoveryCancelCmd = &cobra.Command{
	Use:   "cancel <wallet>",
	Short: "Drop a pending recovery (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return walletAction(http.MethodDelete, "/api/v1/wallets/"+args[0]+"/recovery", nil)
	},
}

func walletAction(method, path string, body any) error {
	var w walletView
	if err := newClient().Do(method, path, body, &w); err != nil {
		return err
	}
	return printWallet(w)
}

func init() {
	guardianCmd.AddCommand(guardianAddCmd, guardianRemoveCmd)
	recoveryCmd.AddCommand(recoveryNominateCmd, recoveryClaimCmd, recoveryCancelCmd)
	rootCmd.AddCommand(guardianCmd, recoveryCmd)
}
