package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultAPIURL = "http://localhost:8080"

var (
	apiURL       string
	outputFormat string
	cfgFile      string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:           "walletctl",
	Short:         "CLI for the social recovery wallet service",
	Long:          `walletctl deploys recovery wallets, forwards calls through them and drives guardian based ownership recovery.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.walletctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "wallet API URL (default from config or "+defaultAPIURL+")")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigFile(defaultConfigPath())
	}
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("walletctl")
	viper.AutomaticEnv()
	viper.BindEnv("api_url", "WALLETCTL_API_URL")
	viper.BindEnv("token", "WALLETCTL_TOKEN")
	viper.SetDefault("api_url", defaultAPIURL)

	// A missing config file is fine; login creates it.
	_ = viper.ReadInConfig()

	if apiURL == "" {
		apiURL = viper.GetString("api_url")
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".walletctl", "config.yaml")
	}
	return filepath.Join(home, ".walletctl", "config.yaml")
}

// saveSession persists the login result so later commands are authenticated.
func saveSession(address, token, refresh string) error {
	path := viper.ConfigFileUsed()
	if path == "" {
		path = defaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	viper.Set("api_url", GetAPIURL())
	viper.Set("address", address)
	viper.Set("token", token)
	viper.Set("refresh_token", refresh)
	return viper.WriteConfigAs(path)
}

// GetAPIURL returns the configured API URL with trailing slashes removed
func GetAPIURL() string {
	return strings.TrimRight(apiURL, "/")
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}

func newClient() *Client {
	return NewClient(GetAPIURL(), viper.GetString("token"))
}
