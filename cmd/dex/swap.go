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
	"dexCore/internal/model"
)

func runQuote(cmd *cobra.Command, _ []string) error {
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
	tokenIn, _ := cmd.Flags().GetString("token-in")
	if poolID == "" {
		return fmt.Errorf("pool id is required")
	}
	if tokenIn == "" {
		return fmt.Errorf("token-in is required")
	}

	amount, err := decimalFlag(cmd, "amount")
	if err != nil {
		return err
	}
	slippage, err := decimalFlag(cmd, "slippage")
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

	result, err := eng.QuoteSwap(ctx, engine.SwapRequest{
		PoolID:            poolID,
		TokenIn:           tokenIn,
		AmountIn:          amount,
		SlippageTolerance: slippage,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runSwap(cmd *cobra.Command, _ []string) error {
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
	tokenIn, _ := cmd.Flags().GetString("token-in")
	owner, _ := cmd.Flags().GetString("owner")
	if poolID == "" {
		return fmt.Errorf("pool id is required")
	}
	if tokenIn == "" {
		return fmt.Errorf("token-in is required")
	}

	amount, err := decimalFlag(cmd, "amount")
	if err != nil {
		return err
	}
	slippage, err := decimalFlag(cmd, "slippage")
	if err != nil {
		return err
	}
	minimumOutput, err := decimalFlag(cmd, "minimum-output")
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

	result, err := eng.ExecuteSwap(ctx, engine.SwapRequest{
		PoolID:            poolID,
		Owner:             owner,
		TokenIn:           tokenIn,
		AmountIn:          amount,
		SlippageTolerance: slippage,
		MinimumOutput:     minimumOutput,
	})
	if err != nil {
		return err
	}
	if err := st.flush(); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return printJSON(result)
}

type poolListing struct {
	Pool      *model.Pool                `json:"pool"`
	Positions []*model.LiquidityPosition `json:"positions,omitempty"`
}

func runPools(cmd *cobra.Command, _ []string) error {
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

	includePositions, _ := cmd.Flags().GetBool("positions")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	pools, err := st.pools.List(ctx)
	if err != nil {
		return err
	}

	listings := make([]poolListing, 0, len(pools))
	for _, pool := range pools {
		listing := poolListing{Pool: pool}
		if includePositions {
			positions, err := st.positions.PoolPositions(ctx, pool.ID)
			if err != nil {
				return err
			}
			listing.Positions = positions
		}
		listings = append(listings, listing)
	}
	return printJSON(listings)
}
