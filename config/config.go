package config

import (
	"log"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

type Config struct {
	DBPath string `mapstructure:"db_path"`

	Token       TokenConfig       `mapstructure:"token"`
	FeeApprover FeeApproverConfig `mapstructure:"fee_approver"`
	Distributor DistributorConfig `mapstructure:"distributor"`
	Vault       VaultConfig       `mapstructure:"vault"`
	Rescue      RescueConfig      `mapstructure:"rescue"`
	Router      RouterConfig      `mapstructure:"router"`

	LogLevel string `mapstructure:"log_level"`
}

type TokenConfig struct {
	Address       string `mapstructure:"address"`
	Owner         string `mapstructure:"owner"`
	InitialSupply string `mapstructure:"initial_supply"`
}

type FeeApproverConfig struct {
	FeePercentX100 int64 `mapstructure:"fee_percent_x100"`
}

type DistributorConfig struct {
	Address          string        `mapstructure:"address"`
	NFTFund          string        `mapstructure:"nft_fund"`
	LiquidVaultShare int64         `mapstructure:"liquid_vault_share"`
	BurnPercentage   int64         `mapstructure:"burn_percentage"`
	Interval         time.Duration `mapstructure:"interval"`
}

type VaultConfig struct {
	Address            string `mapstructure:"address"`
	LockDurationDays   int64  `mapstructure:"lock_duration_days"`
	PurchaseFeePercent int64  `mapstructure:"purchase_fee_percent"`
	ExitFeePercent     int64  `mapstructure:"exit_fee_percent"`
	EthFeeReceiver     string `mapstructure:"eth_fee_receiver"`
	PriceTolerance     int64  `mapstructure:"price_tolerance_percent"`
}

type RescueConfig struct {
	Address  string        `mapstructure:"address"`
	Funding  string        `mapstructure:"funding"`
	Interval time.Duration `mapstructure:"interval"`
}

// RouterConfig points at a Uniswap-V2 compatible router on an EVM node.
// An empty node address leaves the client without an AMM adapter, which is
// fine for fee distribution but blocks LP purchases. The private key signs
// router transactions.
type RouterConfig struct {
	NodeAddress string `mapstructure:"node_address"`
	Router      string `mapstructure:"router"`
	Pair        string `mapstructure:"pair"`
	WETH        string `mapstructure:"weth"`
	PrivateKey  string `mapstructure:"private_key"`
	ChainID     int64  `mapstructure:"chain_id"`
}

const (
	defaultDBPath   = "mongodb://localhost:27017"
	defaultLogLevel = "info"

	defaultFeePercentX100      = 10
	defaultLockDurationDays    = 2
	defaultPurchaseFeePercent  = 10
	defaultExitFeePercent      = 10
	defaultLiquidVaultShare    = 40
	defaultBurnPercentage      = 1
	defaultDistributeInterval  = 30 * time.Second
	defaultRescueStepInterval  = 5 * time.Second
	defaultRescueFunding       = "1000000000000000000" // 1 eth
	defaultPriceTolerance      = 10
	defaultInitialSupply       = "10000000000000000000000" // 10k tokens, 18 decimals
	EventBufferSize            = 100
)

func InitConfig() {
	// Set default values
	// Find home directory.
	home, err := homedir.Dir()
	if err != nil {
		log.Fatalf("failed to get home directory: %v", err)
	}
	defaultHomeDir := home + "/.hardcore-client"

	viper.SetDefault("log_level", defaultLogLevel)
	viper.SetDefault("db_path", defaultDBPath)

	viper.SetDefault("token.initial_supply", defaultInitialSupply)

	viper.SetDefault("fee_approver.fee_percent_x100", defaultFeePercentX100)

	viper.SetDefault("distributor.liquid_vault_share", defaultLiquidVaultShare)
	viper.SetDefault("distributor.burn_percentage", defaultBurnPercentage)
	viper.SetDefault("distributor.interval", defaultDistributeInterval)

	viper.SetDefault("vault.lock_duration_days", defaultLockDurationDays)
	viper.SetDefault("vault.purchase_fee_percent", defaultPurchaseFeePercent)
	viper.SetDefault("vault.exit_fee_percent", defaultExitFeePercent)
	viper.SetDefault("vault.price_tolerance_percent", defaultPriceTolerance)

	viper.SetDefault("rescue.interval", defaultRescueStepInterval)
	viper.SetDefault("rescue.funding", defaultRescueFunding)

	viper.SetConfigType("yaml")
	if CfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(CfgFile)
	} else {
		CfgFile = defaultHomeDir + "/config.yaml"
		viper.AddConfigPath(defaultHomeDir)
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}
}

var CfgFile string
