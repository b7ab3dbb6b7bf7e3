package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dexCore/internal/config"
	"dexCore/internal/engine"
	"dexCore/internal/model"
	"dexCore/internal/storage"
	"dexCore/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "dex",
		Short:        "Constant-product AMM pool engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	createCmd := &cobra.Command{
		Use:   "create-pool",
		Short: "Create a pool for a token pair",
		RunE:  runCreatePool,
	}

	createCmd.Flags().String("token0", "", "first token as address:symbol:decimals")
	createCmd.Flags().String("token1", "", "second token as address:symbol:decimals")
	createCmd.Flags().String("fee-rate", "0.003", "pool fee rate as a fraction")
	createCmd.Flags().String("amount0", "0", "initial deposit paired with token0")
	createCmd.Flags().String("amount1", "0", "initial deposit paired with token1")
	createCmd.Flags().String("owner", "", "owner address for the initial position")
	addStoreFlags(createCmd)

	root.AddCommand(createCmd)

	addCmd := &cobra.Command{
		Use:   "add-liquidity",
		Short: "Deposit both tokens and mint LP shares",
		RunE:  runAddLiquidity,
	}

	addCmd.Flags().String("pool", "", "pool id")
	addCmd.Flags().String("owner", "", "position owner address")
	addCmd.Flags().String("amount0", "0", "desired amount of token0")
	addCmd.Flags().String("amount1", "0", "desired amount of token1")
	addCmd.Flags().String("slippage", "0", "slippage tolerance as a fraction, e.g. 0.005")
	addCmd.Flags().String("min-lp", "0", "minimum LP tokens to accept")
	addStoreFlags(addCmd)

	root.AddCommand(addCmd)

	removeCmd := &cobra.Command{
		Use:   "remove-liquidity",
		Short: "Burn LP shares and withdraw both tokens",
		RunE:  runRemoveLiquidity,
	}

	removeCmd.Flags().String("pool", "", "pool id")
	removeCmd.Flags().String("owner", "", "position owner address")
	removeCmd.Flags().String("lp-amount", "0", "LP tokens to burn")
	removeCmd.Flags().String("min0", "0", "minimum token0 to accept")
	removeCmd.Flags().String("min1", "0", "minimum token1 to accept")
	removeCmd.Flags().String("entry-ratio", "0", "override entry price ratio for impermanent loss")
	addStoreFlags(removeCmd)

	root.AddCommand(removeCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap without executing it",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("pool", "", "pool id")
	quoteCmd.Flags().String("token-in", "", "input token address")
	quoteCmd.Flags().String("amount", "0", "input amount")
	quoteCmd.Flags().String("slippage", "0", "slippage tolerance as a fraction")
	addStoreFlags(quoteCmd)

	root.AddCommand(quoteCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Execute a swap against a pool",
		RunE:  runSwap,
	}

	swapCmd.Flags().String("pool", "", "pool id")
	swapCmd.Flags().String("token-in", "", "input token address")
	swapCmd.Flags().String("amount", "0", "input amount")
	swapCmd.Flags().String("slippage", "0", "slippage tolerance as a fraction")
	swapCmd.Flags().String("minimum-output", "0", "reject when output falls below this")
	swapCmd.Flags().String("owner", "", "optional trader address for the journal")
	addStoreFlags(swapCmd)

	root.AddCommand(swapCmd)

	poolsCmd := &cobra.Command{
		Use:   "pools",
		Short: "List pools and their statistics",
		RunE:  runPools,
	}

	poolsCmd.Flags().Bool("positions", false, "include liquidity positions per pool")
	addStoreFlags(poolsCmd)

	root.AddCommand(poolsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("pg-dsn", "", "Postgres DSN; empty uses the local state file")
	cmd.Flags().String("state-file", "./data/dex_state.json", "local state file path")
	cmd.Flags().String("journal", "", "operation journal JSONL path, empty disables")
	cmd.Flags().String("max-price-impact", "10", "price impact execution ceiling in percent")
	cmd.Flags().String("warn-price-impact", "5", "price impact warning threshold in percent")
	cmd.Flags().Int("max-retries", 3, "maximum retries after version conflicts")
	cmd.Flags().Duration("retry-backoff", 25*time.Millisecond, "initial conflict retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func runCreatePool(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	token0Spec, _ := cmd.Flags().GetString("token0")
	token1Spec, _ := cmd.Flags().GetString("token1")
	if token0Spec == "" || token1Spec == "" {
		return fmt.Errorf("token0 and token1 are required")
	}
	tokenA, err := model.ParseTokenSpec(token0Spec)
	if err != nil {
		return err
	}
	tokenB, err := model.ParseTokenSpec(token1Spec)
	if err != nil {
		return err
	}

	feeRate, err := decimal.NewFromString(cfg.FeeRate)
	if err != nil {
		return fmt.Errorf("invalid fee-rate: %w", err)
	}
	amount0, err := decimalFlag(cmd, "amount0")
	if err != nil {
		return err
	}
	amount1, err := decimalFlag(cmd, "amount1")
	if err != nil {
		return err
	}
	owner, _ := cmd.Flags().GetString("owner")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	eng, err := newEngine(cfg, st, logger)
	if err != nil {
		return err
	}

	result, err := eng.CreatePool(ctx, engine.CreatePoolRequest{
		TokenA:   tokenA,
		TokenB:   tokenB,
		FeeRate:  feeRate,
		InitialA: amount0,
		InitialB: amount1,
		Owner:    owner,
	})
	if err != nil {
		return err
	}
	if err := st.flush(); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return printJSON(result)
}

// stores bundles the pool and position repositories with backend-specific
// flush and close hooks.
type stores struct {
	pools     storage.PoolRepository
	positions storage.PositionRepository
	flush     func() error
	close     func()
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.Init(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return &stores{
			pools:     store,
			positions: store,
			flush:     func() error { return nil },
			close:     store.Close,
		}, nil
	}

	store, err := storage.NewFileStore(cfg.StateFile)
	if err != nil {
		return nil, err
	}
	return &stores{
		pools:     store,
		positions: store,
		flush:     store.Flush,
		close:     func() {},
	}, nil
}

func newEngine(cfg config.Config, st *stores, logger *zap.Logger) (*engine.Engine, error) {
	engCfg := engine.DefaultConfig()
	engCfg.MaxRetries = cfg.MaxRetries
	engCfg.RetryBackoff = cfg.RetryBackoff

	maxImpact, err := decimal.NewFromString(cfg.MaxPriceImpact)
	if err != nil {
		return nil, fmt.Errorf("invalid max-price-impact: %w", err)
	}
	warnImpact, err := decimal.NewFromString(cfg.WarnPriceImpact)
	if err != nil {
		return nil, fmt.Errorf("invalid warn-price-impact: %w", err)
	}
	engCfg.MaxPriceImpactPct = maxImpact
	engCfg.WarnPriceImpactPct = warnImpact

	var opts []engine.Option
	if cfg.Journal != "" {
		opts = append(opts, engine.WithJournal(storage.NewJournal(cfg.Journal)))
	}

	return engine.New(engCfg, st.pools, st.positions, logger, opts...), nil
}

func decimalFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return value, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
