package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
)

type walletView struct {
	Address          string   `json:"address"`
	Deployer         string   `json:"deployer"`
	Owner            string   `json:"owner"`
	Guardians        []string `json:"guardians"`
	PendingRecoverer *string  `json:"pending_recoverer"`
	Phase            string   `json:"phase"`
}

type balanceView struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

func printWallet(w walletView) error {
	if IsJSONOutput() {
		return printJSON(w)
	}
	pending := "-"
	if w.PendingRecoverer != nil {
		pending = *w.PendingRecoverer
	}
	guardians := "-"
	if len(w.Guardians) > 0 {
		guardians = strings.Join(w.Guardians, "\n")
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")
	table.Append([]string{"Address", w.Address})
	table.Append([]string{"Owner", w.Owner})
	table.Append([]string{"Deployer", w.Deployer})
	table.Append([]string{"Phase", w.Phase})
	table.Append([]string{"Pending Recoverer", pending})
	table.Append([]string{"Guardians", guardians})
	return table.Render()
}

func printWallets(wallets []walletView) error {
	if IsJSONOutput() {
		return printJSON(wallets)
	}
	if len(wallets) == 0 {
		fmt.Println("No wallets found")
		return nil
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Address", "Owner", "Guardians", "Phase")
	for _, w := range wallets {
		table.Append([]string{w.Address, w.Owner, fmt.Sprintf("%d", len(w.Guardians)), w.Phase})
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Printf("\nTotal wallets: %d\n", len(wallets))
	return nil
}

func printBalance(b balanceView) error {
	if IsJSONOutput() {
		return printJSON(b)
	}
	fmt.Printf("%s: %d\n", b.Address, b.Balance)
	return nil
}
