package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dexCore/internal/config"
	"dexCore/internal/engine"
)

func runAddLiquidity(cmd *cobra.Command, _ []string) error {
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

	poolID, _ := cmd.Flags().GetString("pool")
	owner, _ := cmd.Flags().GetString("owner")
	if poolID == "" {
		return fmt.Errorf("pool id is required")
	}
	if owner == "" {
		return fmt.Errorf("owner is required")
	}

	amount0, err := decimalFlag(cmd, "amount0")
	if err != nil {
		return err
	}
	amount1, err := decimalFlag(cmd, "amount1")
	if err != nil {
		return err
	}
	slippage, err := decimalFlag(cmd, "slippage")
	if err != nil {
		return err
	}
	minLP, err := decimalFlag(cmd, "min-lp")
	if err != nil {
		return err
	}

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

	result, err := eng.AddLiquidity(ctx, engine.AddLiquidityRequest{
		PoolID:            poolID,
		Owner:             owner,
		Amount0:           amount0,
		Amount1:           amount1,
		SlippageTolerance: slippage,
		MinimumLPOut:      minLP,
	})
	if err != nil {
		return err
	}
	if err := st.flush(); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return printJSON(result)
}

func runRemoveLiquidity(cmd *cobra.Command, _ []string) error {
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

	poolID, _ := cmd.Flags().GetString("pool")
	owner, _ := cmd.Flags().GetString("owner")
	if poolID == "" {
		return fmt.Errorf("pool id is required")
	}
	if owner == "" {
		return fmt.Errorf("owner is required")
	}

	lpAmount, err := decimalFlag(cmd, "lp-amount")
	if err != nil {
		return err
	}
	min0, err := decimalFlag(cmd, "min0")
	if err != nil {
		return err
	}
	min1, err := decimalFlag(cmd, "min1")
	if err != nil {
		return err
	}
	entryRatio, err := decimalFlag(cmd, "entry-ratio")
	if err != nil {
		return err
	}

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

	result, err := eng.RemoveLiquidity(ctx, engine.RemoveLiquidityRequest{
		PoolID:          poolID,
		Owner:           owner,
		LPAmount:        lpAmount,
		Minimum0:        min0,
		Minimum1:        min1,
		EntryPriceRatio: entryRatio,
	})
	if err != nil {
		return err
	}
	if err := st.flush(); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return printJSON(result)
}
