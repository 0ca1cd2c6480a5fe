package cmd

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Deploy and operate recovery wallets",
}

var walletDeployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a wallet owned by the logged in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var w walletView
		if err := newClient().Do(http.MethodPost, "/api/v1/wallets", nil, &w); err != nil {
			return err
		}
		return printWallet(w)
	},
}

var walletShowCmd = &cobra.Command{
	Use:   "show <wallet>",
	Short: "Show owner, guardians and recovery state of a wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var w walletView
		if err := newClient().Do(http.MethodGet, "/api/v1/wallets/"+args[0], nil, &w); err != nil {
			return err
		}
		return printWallet(w)
	},
}

var listOwner string

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wallets owned by an address (default: the logged in account)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/v1/wallets"
		if listOwner != "" {
			path += "?owner=" + listOwner
		}
		var res struct {
			Wallets []walletView `json:"wallets"`
		}
		if err := newClient().Do(http.MethodGet, path, nil, &res); err != nil {
			return err
		}
		return printWallets(res.Wallets)
	},
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance <wallet>",
	Short: "Show the balance held by a wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var b balanceView
		if err := newClient().Do(http.MethodGet, "/api/v1/wallets/"+args[0]+"/balance", nil, &b); err != nil {
			return err
		}
		return printBalance(b)
	},
}

var depositAmount int64

var walletDepositCmd = &cobra.Command{
	Use:   "deposit <wallet>",
	Short: "Move value from the logged in account into a wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var b balanceView
		if err := newClient().Do(http.MethodPost, "/api/v1/wallets/"+args[0]+"/deposit", map[string]int64{"amount": depositAmount}, &b); err != nil {
			return err
		}
		return printBalance(b)
	},
}

var (
	execTarget string
	execData   string
	execValue  int64
)

var walletExecuteCmd = &cobra.Command{
	Use:   "execute <wallet>",
	Short: "Forward a call with value from a wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := hexutil.Decode(execData)
		if err != nil {
			return fmt.Errorf("invalid --data: %w", err)
		}
		body := map[string]any{
			"target": execTarget,
			"data":   hexutil.Bytes(data),
			"value":  execValue,
		}
		var res struct {
			TransactionID string `json:"transaction_id"`
			WalletBalance int64  `json:"wallet_balance"`
			TargetBalance int64  `json:"target_balance"`
			Replayed      bool   `json:"replayed"`
		}
		if err := newClient().Do(http.MethodPost, "/api/v1/wallets/"+args[0]+"/execute", body, &res); err != nil {
			return err
		}
		if IsJSONOutput() {
			return printJSON(res)
		}
		if res.Replayed {
			fmt.Println("Already executed, showing the stored result")
		}
		fmt.Printf("Transaction %s\nWallet balance: %d\nTarget balance: %d\n", res.TransactionID, res.WalletBalance, res.TargetBalance)
		return nil
	},
}

func init() {
	walletListCmd.Flags().StringVar(&listOwner, "owner", "", "owner address")

	walletDepositCmd.Flags().Int64Var(&depositAmount, "amount", 0, "amount to deposit")
	walletDepositCmd.MarkFlagRequired("amount")

	walletExecuteCmd.Flags().StringVar(&execTarget, "target", "", "call target address")
	walletExecuteCmd.Flags().StringVar(&execData, "data", "0x", "call payload as 0x-prefixed hex")
	walletExecuteCmd.Flags().Int64Var(&execValue, "value", 0, "value to send")
	walletExecuteCmd.MarkFlagRequired("target")

	walletCmd.AddCommand(walletDeployCmd, walletShowCmd, walletListCmd, walletBalanceCmd, walletDepositCmd, walletExecuteCmd)
	rootCmd.AddCommand(walletCmd)
}
