package cmd

import (
	"fmt"
	"log"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hardcorefi/hardcore-client/cmd/version"
	"github.com/hardcorefi/hardcore-client/config"
	utils "github.com/hardcorefi/hardcore-client/utils/viper"
	"github.com/hardcorefi/hardcore-client/vault"
)

var RootCmd = &cobra.Command{
	Use:   "hardcore-client",
	Short: "HardCore liquid vault client",
	Long:  `Client for the HardCore token ecosystem: taxed transfers, locked LP purchases, fee distribution and flash rescue.`,
	Run: func(cmd *cobra.Command, args []string) {
		// If no arguments are provided, print usage information
		if len(args) == 0 {
			if err := cmd.Usage(); err != nil {
				log.Fatalf("Error printing usage: %v", err)
			}
		}
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the vault client",
	Long:  `Initialize the vault client by generating a config file with default values.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Config{}
		if err := viper.Unmarshal(&cfg); err != nil {
			log.Fatalf("failed to unmarshal config: %v", err)
		}

		if err := viper.WriteConfigAs(config.CfgFile); err != nil {
			log.Fatalf("failed to write config file: %v", err)
		}

		fmt.Printf("Config file created: %s\n", config.CfgFile)
		fmt.Println()
		fmt.Println("Edit the config file to set the correct values for your environment.")
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the vault client",
	Long:  `Start the vault client: seeds the components and runs the fee distribution and event loops.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		opts, err := routerOpts(cfg)
		if err != nil {
			log.Fatalf("failed to build router signer: %v", err)
		}

		vc, err := vault.NewVaultClient(cmd.Context(), cfg, opts)
		if err != nil {
			log.Fatalf("failed to create vault client: %v", err)
		}

		if err := vc.Bootstrap(cmd.Context(), cfg); err != nil {
			log.Fatalf("failed to bootstrap vault client: %v", err)
		}

		if err := vc.Start(cmd.Context()); err != nil {
			log.Fatalf("failed to start vault client: %v", err)
		}
	},
}

var rescueCmd = &cobra.Command{
	Use:   "rescue",
	Short: "Run the flash rescue sequence",
	Long:  `Drive the flash rescue state machine one step per interval until it completes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		opts, err := routerOpts(cfg)
		if err != nil {
			log.Fatalf("failed to build router signer: %v", err)
		}

		vc, err := vault.NewVaultClient(cmd.Context(), cfg, opts)
		if err != nil {
			log.Fatalf("failed to create vault client: %v", err)
		}

		if err := vc.BootstrapRescue(cmd.Context(), cfg); err != nil {
			log.Fatalf("failed to bootstrap rescue: %v", err)
		}

		if err := vc.RunRescueSequence(cmd.Context()); err != nil {
			log.Fatalf("rescue sequence failed: %v", err)
		}

		fmt.Println("rescue sequence complete")
	},
}

var setCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "set a config value",
	Long:  `Set a value in the config file in place, e.g. 'set vault.exit_fee_percent 5'.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		home, err := homedir.Dir()
		if err != nil {
			log.Fatalf("failed to get home directory: %v", err)
		}

		defaultHomeDir := home + "/.hardcore-client"
		config.CfgFile = defaultHomeDir + "/config.yaml"

		viper.SetConfigFile(config.CfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return
		}

		var value interface{} = args[1]
		if n, err := strconv.Atoi(args[1]); err == nil {
			value = n
		}

		if err := utils.UpdateViperConfig(args[0], value, viper.ConfigFileUsed()); err != nil {
			log.Fatalf("failed to update config: %v", err)
		}

		fmt.Printf("%s set to %v, please restart the client if it's running\n", args[0], value)
	},
}

// routerOpts builds the router signer when key material is configured.
// Without it the client runs storefront-only, with LP purchases blocked.
func routerOpts(cfg config.Config) (*bind.TransactOpts, error) {
	if cfg.Router.NodeAddress == "" || cfg.Router.PrivateKey == "" {
		return nil, nil
	}
	return vault.NewTransactOpts(cfg.Router.PrivateKey, cfg.Router.ChainID)
}

func loadConfig() config.Config {
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	cfg := config.Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}
	return cfg
}

func init() {
	RootCmd.CompletionOptions.DisableDefaultCmd = true
	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(startCmd)
	RootCmd.AddCommand(rescueCmd)
	RootCmd.AddCommand(setCmd)

	RootCmd.AddCommand(version.Cmd())

	cobra.OnInitialize(config.InitConfig)

	RootCmd.PersistentFlags().StringVar(&config.CfgFile, "config", "", "config file")
}
