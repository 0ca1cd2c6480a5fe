package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var pin string

var registerCmd = &cobra.Command{
	Use:   "register <address>",
	Short: "Register an account address with a PIN",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]string{"address": args[0], "pin": pin}
		if err := newClient().Do(http.MethodPost, "/api/v1/accounts/register", body, nil); err != nil {
			return err
		}
		fmt.Printf("Registered %s\n", args[0])
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <address>",
	Short: "Log in and store the session token in the config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res struct {
			Address      string `json:"address"`
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		}
		body := map[string]string{"address": args[0], "pin": pin}
		if err := newClient().Do(http.MethodPost, "/api/v1/auth/login", body, &res); err != nil {
			return err
		}
		if err := saveSession(res.Address, res.AccessToken, res.RefreshToken); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		fmt.Printf("Logged in as %s\n", res.Address)
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Show the balance of any account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var b balanceView
		if err := newClient().Do(http.MethodGet, "/api/v1/accounts/"+args[0]+"/balance", nil, &b); err != nil {
			return err
		}
		return printBalance(b)
	},
}

var fundAmount int64

var fundCmd = &cobra.Command{
	Use:   "fund <address>",
	Short: "Credit an account from the development faucet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res struct {
			Balance int64 `json:"balance"`
		}
		if err := newClient().Do(http.MethodPost, "/api/v1/accounts/"+args[0]+"/fund", map[string]int64{"amount": fundAmount}, &res); err != nil {
			return err
		}
		return printBalance(balanceView{Address: args[0], Balance: res.Balance})
	},
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVar(&pin, "pin", "", "account PIN")
		c.MarkFlagRequired("pin")
	}
	fundCmd.Flags().Int64Var(&fundAmount, "amount", 0, "amount to credit")
	fundCmd.MarkFlagRequired("amount")

	rootCmd.AddCommand(registerCmd, loginCmd, balanceCmd, fundCmd)
}
