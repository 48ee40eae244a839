package vault

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/hardcorefi/hardcore-client/config"
	"github.com/hardcorefi/hardcore-client/store"
)

// VaultClient wires the token, fee approver, distributor, vault and rescue
// into one runnable unit and owns the background loops.
type VaultClient struct {
	logger *zap.Logger

	owner common.Address

	bank     *bank
	lpLedger *bank

	token       *HardCoreToken
	approver    *FeeApprover
	distributor *FeeDistributor
	vault       *LiquidVault
	rescue      *FlashRescue
	oracle      PriceOracle
	router      Router

	mongoClient *mongo.Client
	events      chan Event

	distributeInterval time.Duration
	rescueInterval     time.Duration
}

type ClientOption func(*VaultClient)

// WithRouter injects a pre-built AMM adapter, bypassing the JSON-RPC one.
func WithRouter(r Router) ClientOption {
	return func(c *VaultClient) { c.router = r }
}

func NewVaultClient(ctx context.Context, cfg config.Config, transactOpts *bind.TransactOpts, opts ...ClientOption) (*VaultClient, error) {
	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	owner := common.HexToAddress(cfg.Token.Owner)
	if isZeroAddress(owner) {
		return nil, fmt.Errorf("config: token owner address is required")
	}

	initialSupply, ok := sdkmath.NewIntFromString(cfg.Token.InitialSupply)
	if !ok {
		return nil, fmt.Errorf("config: invalid initial supply %q", cfg.Token.InitialSupply)
	}

	c := &VaultClient{
		logger:             logger,
		owner:              owner,
		bank:               newBank(),
		lpLedger:           newBank(),
		events:             make(chan Event, config.EventBufferSize),
		distributeInterval: cfg.Distributor.Interval,
		rescueInterval:     cfg.Rescue.Interval,
	}
	for _, opt := range opts {
		opt(c)
	}

	var st Store
	if cfg.DBPath != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DBPath))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		c.mongoClient = mongoClient
		st = store.NewVaultStore(mongoClient)
	}

	if c.router == nil && cfg.Router.NodeAddress != "" {
		if transactOpts == nil {
			return nil, fmt.Errorf("config: router node set but no signing key configured")
		}
		c.router, err = NewEthRouter(ctx,
			cfg.Router.NodeAddress,
			common.HexToAddress(cfg.Router.Router),
			common.HexToAddress(cfg.Router.Pair),
			common.HexToAddress(cfg.Token.Address),
			transactOpts,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create router: %w", err)
		}
	}
	if c.router != nil {
		c.oracle = NewTWAPOracle(c.router)
	}

	vaultAddr := common.HexToAddress(cfg.Vault.Address)
	distAddr := common.HexToAddress(cfg.Distributor.Address)

	c.token = NewHardCoreToken(common.HexToAddress(cfg.Token.Address), owner, initialSupply, logger)
	c.approver = NewFeeApprover(owner, cfg.FeeApprover.FeePercentX100, logger)
	c.distributor = NewFeeDistributor(distAddr, owner, c.events, logger)
	c.vault = NewLiquidVault(vaultAddr, owner, c.lpLedger, c.router, c.bank, c.events, st, logger)
	c.rescue = NewFlashRescue(common.HexToAddress(cfg.Rescue.Address), owner, c.bank, c.events, st, logger)
	c.rescue.Bind(c.vault, c.token)

	c.token.InitialSetup(c.approver, distAddr, c.vault)

	return c, nil
}

// Bootstrap seeds every component from the config, in dependency order.
// Idempotent; safe to run again after a restart.
func (c *VaultClient) Bootstrap(ctx context.Context, cfg config.Config) error {
	if err := c.vault.LoadState(ctx); err != nil {
		return err
	}
	if err := c.rescue.LoadState(ctx); err != nil {
		return err
	}

	err := c.vault.Seed(c.owner,
		cfg.Vault.LockDurationDays,
		c.token,
		c.distributor.Address(),
		common.HexToAddress(cfg.Vault.EthFeeReceiver),
		cfg.Vault.PurchaseFeePercent,
		cfg.Vault.ExitFeePercent,
		c.oracle,
	)
	if err != nil {
		return fmt.Errorf("failed to seed vault: %w", err)
	}
	if err := c.vault.SetPriceTolerance(c.owner, cfg.Vault.PriceTolerance); err != nil {
		return err
	}

	err = c.distributor.Seed(c.owner,
		c.token,
		c.vault.Address(),
		common.HexToAddress(cfg.Distributor.NFTFund),
		cfg.Distributor.LiquidVaultShare,
		cfg.Distributor.BurnPercentage,
	)
	if err != nil {
		return fmt.Errorf("failed to seed distributor: %w", err)
	}

	pair := common.Address{}
	if c.router != nil {
		pair = c.router.Pair()
	}
	if err := c.approver.Initialize(c.owner, pair, c.vault.Address(), c.distributor.Address()); err != nil {
		return fmt.Errorf("failed to initialize fee approver: %w", err)
	}

	c.logger.Info("client bootstrapped",
		zap.String("owner", c.owner.Hex()),
		zap.String("vault", c.vault.Address().Hex()),
		zap.String("distributor", c.distributor.Address().Hex()))
	return nil
}

// BootstrapRescue prepares the flash rescue: restores persisted progress and,
// when no configuration was captured yet, funds the rescue, hands it the
// vault and captures the vault's configuration from the config file.
func (c *VaultClient) BootstrapRescue(ctx context.Context, cfg config.Config) error {
	if err := c.vault.LoadState(ctx); err != nil {
		return err
	}
	if err := c.rescue.LoadState(ctx); err != nil {
		return err
	}
	if c.rescue.ConfigCaptured() {
		return nil
	}

	funding, ok := sdkmath.NewIntFromString(cfg.Rescue.Funding)
	if !ok {
		return fmt.Errorf("config: invalid rescue funding %q", cfg.Rescue.Funding)
	}
	c.bank.Mint(c.owner, funding)

	if c.vault.Owner() == c.owner {
		if err := c.vault.TransferOwnership(c.owner, c.rescue.Address()); err != nil {
			return fmt.Errorf("failed to hand vault to rescue: %w", err)
		}
	}
	if !c.rescue.Seeded() {
		if err := c.rescue.Seed(c.owner, c.vault, c.token, funding); err != nil {
			return fmt.Errorf("failed to seed rescue: %w", err)
		}
	}

	err := c.rescue.CaptureConfig(c.owner,
		cfg.Vault.LockDurationDays,
		c.token,
		c.distributor.Address(),
		common.HexToAddress(cfg.Vault.EthFeeReceiver),
		cfg.Vault.PurchaseFeePercent,
		cfg.Vault.ExitFeePercent,
		c.oracle,
	)
	if err != nil {
		return fmt.Errorf("failed to capture vault config: %w", err)
	}
	return nil
}

// Start runs the distribution ticker, the oracle sampler and the event drain
// until the context is cancelled.
func (c *VaultClient) Start(ctx context.Context) error {
	c.logger.Info("starting client...")

	c.distributeFeesLoop(ctx)
	c.oracleUpdateLoop(ctx)
	c.drainEvents(ctx)

	<-ctx.Done()
	c.Close()
	return nil
}

func (c *VaultClient) Close() {
	if c.mongoClient != nil {
		_ = c.mongoClient.Disconnect(context.Background())
	}
}

func (c *VaultClient) Token() *HardCoreToken        { return c.token }
func (c *VaultClient) FeeApprover() *FeeApprover    { return c.approver }
func (c *VaultClient) Distributor() *FeeDistributor { return c.distributor }
func (c *VaultClient) Vault() *LiquidVault          { return c.vault }
func (c *VaultClient) Rescue() *FlashRescue         { return c.rescue }

func (c *VaultClient) distributeFeesLoop(ctx context.Context) {
	go func() {
		for t := time.NewTicker(c.distributeInterval); ; {
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
				if err := c.distributor.DistributeFees(); err != nil {
					c.logger.Error("failed to distribute fees", zap.Error(err))
				}
			}
		}
	}()
}

func (c *VaultClient) oracleUpdateLoop(ctx context.Context) {
	if c.oracle == nil {
		return
	}
	go func() {
		for t := time.NewTicker(time.Minute); ; {
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
				if err := c.oracle.Update(ctx); err != nil {
					c.logger.Warn("failed to update oracle", zap.Error(err))
				}
			}
		}
	}()
}

// drainEvents keeps the buffered stream moving so emitters never drop.
func (c *VaultClient) drainEvents(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-c.events:
				c.logger.Debug("event drained",
					zap.String("id", ev.ID),
					zap.String("kind", string(ev.Kind)))
			}
		}
	}()
}

// RunRescueSequence drives the rescue one iteration per tick until done.
func (c *VaultClient) RunRescueSequence(ctx context.Context) error {
	t := time.NewTicker(c.rescueInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if c.rescue.CurrentStep() == StepDone {
				return nil
			}
			if err := c.rescue.DoInSequence(c.owner, 1); err != nil {
				c.logger.Error("rescue iteration failed", zap.Error(err))
			}
		}
	}
}

func buildLogger(logLevel string) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	return cfg.Build()
}
