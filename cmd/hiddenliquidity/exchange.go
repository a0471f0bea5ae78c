package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/engine"
	"hiddenLiquidity/internal/input"
	"hiddenLiquidity/internal/ledger"
)

func newAddLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-liquidity",
		Short: "Provide liquidity to a pool",
		RunE:  runAddLiquidity,
	}
	cmd.Flags().String("from", "", "provider (defaults to the deployer)")
	cmd.Flags().String("pool", "", "pool (usdc | usdt)")
	cmd.Flags().Uint64("base", 0, "base token amount")
	cmd.Flags().Uint64("eth", 0, "cETH amount")
	_ = cmd.MarkFlagRequired("pool")
	return cmd
}

func runAddLiquidity(cmd *cobra.Command, _ []string) error {
	return withWorld(cmd, true, func(ctx context.Context, e *env) error {
		sender, err := e.sender(cmd, "from")
		if err != nil {
			return err
		}
		pool, err := poolFlag(cmd)
		if err != nil {
			return err
		}
		base, _ := cmd.Flags().GetUint64("base")
		eth, _ := cmd.Flags().GetUint64("eth")

		in, err := e.encrypt(ctx, sender, base, eth)
		if err != nil {
			return err
		}
		receipt, out, err := e.world.Exchange.AddLiquidity(ctx, sender, pool, in.Handles[0], in.Proof, in.Handles[1], in.Proof)
		if err != nil {
			return err
		}
		e.logger.Info("liquidity added", zap.String("pool", pool.String()), zap.String("tx", receipt.TxHash.Hex()))
		return printJSON(cmd, newLiquidityOutput(receipt, out))
	})
}

func newRemoveLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-liquidity",
		Short: "Burn LP share for the underlying tokens",
		RunE:  runRemoveLiquidity,
	}
	cmd.Flags().String("from", "", "provider (defaults to the deployer)")
	cmd.Flags().String("pool", "", "pool (usdc | usdt)")
	cmd.Flags().Uint64("share", 0, "share to burn")
	_ = cmd.MarkFlagRequired("pool")
	return cmd
}

func runRemoveLiquidity(cmd *cobra.Command, _ []string) error {
	return withWorld(cmd, true, func(ctx context.Context, e *env) error {
		sender, err := e.sender(cmd, "from")
		if err != nil {
			return err
		}
		pool, err := poolFlag(cmd)
		if err != nil {
			return err
		}
		share, _ := cmd.Flags().GetUint64("share")

		in, err := e.encrypt(ctx, sender, share)
		if err != nil {
			return err
		}
		receipt, out, err := e.world.Exchange.RemoveLiquidity(ctx, sender, pool, in.Handles[0], in.Proof)
		if err != nil {
			return err
		}
		e.logger.Info("liquidity removed", zap.String("pool", pool.String()), zap.String("tx", receipt.TxHash.Hex()))
		return printJSON(cmd, newLiquidityOutput(receipt, out))
	})
}

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap tokens at the fixed rate",
		RunE:  runSwap,
	}
	cmd.Flags().String("from", "", "trader (defaults to the deployer)")
	cmd.Flags().String("direction", "", "usdc-eth | eth-usdc | usdt-eth | eth-usdt")
	cmd.Flags().Uint64("amount", 0, "input amount in base units")
	_ = cmd.MarkFlagRequired("direction")
	return cmd
}

type swapOutput struct {
	Receipt   receiptOutput `json:"receipt"`
	Direction string        `json:"direction"`
	AmountIn  cipherOutput  `json:"amount_in"`
	AmountOut cipherOutput  `json:"amount_out"`
}

func runSwap(cmd *cobra.Command, _ []string) error {
	return withWorld(cmd, true, func(ctx context.Context, e *env) error {
		sender, err := e.sender(cmd, "from")
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetString("direction")
		direction, err := ledger.ParseDirection(raw)
		if err != nil {
			return err
		}
		amount, _ := cmd.Flags().GetUint64("amount")

		in, err := e.encrypt(ctx, sender, amount)
		if err != nil {
			return err
		}
		receipt, out, err := e.world.Exchange.Swap(ctx, sender, direction, in.Handles[0], in.Proof)
		if err != nil {
			return err
		}
		e.logger.Info("swapped", zap.String("direction", direction.String()), zap.String("tx", receipt.TxHash.Hex()))
		return printJSON(cmd, swapOutput{
			Receipt:   summarize(receipt),
			Direction: direction.String(),
			AmountIn:  cipherOutput{Handle: out.AmountIn.Handle},
			AmountOut: cipherOutput{Handle: out.AmountOut.Handle},
		})
	})
}

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Print pool reserve handles",
		RunE:  runPool,
	}
	cmd.Flags().String("pool", "", "pool (usdc | usdt)")
	addDecryptFlags(cmd)
	_ = cmd.MarkFlagRequired("pool")
	return cmd
}

type poolOutput struct {
	Pool        string       `json:"pool"`
	ReserveBase cipherOutput `json:"reserve_base"`
	ReserveEth  cipherOutput `json:"reserve_eth"`
}

func runPool(cmd *cobra.Command, _ []string) error {
	return withWorld(cmd, false, func(ctx context.Context, e *env) error {
		pool, err := poolFlag(cmd)
		if err != nil {
			return err
		}
		base, eth, err := e.world.Exchange.GetPool(pool)
		if err != nil {
			return err
		}

		exchange := e.world.Addresses.Exchange
		out := poolOutput{Pool: pool.String()}
		if out.ReserveBase, err = e.reveal(ctx, cmd, base.Handle, exchange); err != nil {
			return err
		}
		if out.ReserveEth, err = e.reveal(ctx, cmd, eth.Handle, exchange); err != nil {
			return err
		}
		return printJSON(cmd, out)
	})
}

func newPositionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "position",
		Short: "Print the LP share handles of a user",
		RunE:  runPosition,
	}
	cmd.Flags().String("user", "", "liquidity provider (defaults to the deployer)")
	addDecryptFlags(cmd)
	return cmd
}

type positionOutput struct {
	User      common.Address `json:"user"`
	ShareUSDC cipherOutput   `json:"share_usdc"`
	ShareUSDT cipherOutput   `json:"share_usdt"`
}

func runPosition(cmd *cobra.Command, _ []string) error {
	return withWorld(cmd, false, func(ctx context.Context, e *env) error {
		user, err := e.sender(cmd, "user")
		if err != nil {
			return err
		}
		usdc, usdt := e.world.Exchange.GetPosition(user)

		exchange := e.world.Addresses.Exchange
		out := positionOutput{User: user}
		if out.ShareUSDC, err = e.reveal(ctx, cmd, usdc.Handle, exchange); err != nil {
			return err
		}
		if out.ShareUSDT, err = e.reveal(ctx, cmd, usdt.Handle, exchange); err != nil {
			return err
		}
		return printJSON(cmd, out)
	})
}

func newDecryptLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decrypt-liquidity",
		Short: "Decrypt your LP share for a pool",
		RunE:  runDecryptLiquidity,
	}
	cmd.Flags().String("from", "", "liquidity provider (defaults to the deployer)")
	cmd.Flags().String("pool", "", "pool (usdc | usdt)")
	_ = cmd.MarkFlagRequired("pool")
	return cmd
}

func runDecryptLiquidity(cmd *cobra.Command, _ []string) error {
	return withWorld(cmd, false, func(ctx context.Context, e *env) error {
		user, err := e.sender(cmd, "from")
		if err != nil {
			return err
		}
		pool, err := poolFlag(cmd)
		if err != nil {
			return err
		}

		usdc, usdt := e.world.Exchange.GetPosition(user)
		share := usdc
		if pool == ledger.PoolUSDT {
			share = usdt
		}
		v, err := e.world.Gateway.UserDecrypt(ctx, share.Handle, e.world.Addresses.Exchange, user)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "LP share for %s/ETH: %d\n", strings.ToUpper(pool.String()), v)
		return err
	})
}

// encrypt builds an input bound to the exchange and sender.
func (e *env) encrypt(ctx context.Context, sender common.Address, values ...uint64) (input.EncryptedInput, error) {
	b := e.world.Relayer.NewInput(e.world.Addresses.Exchange, sender)
	for _, v := range values {
		b.Add64(v)
	}
	return b.Encrypt(ctx)
}

func poolFlag(cmd *cobra.Command) (ledger.PoolID, error) {
	raw, _ := cmd.Flags().GetString("pool")
	return ledger.ParsePool(raw)
}

type liquidityOutput struct {
	Receipt  receiptOutput `json:"receipt"`
	Pool     string        `json:"pool"`
	Base     cipherOutput  `json:"base"`
	Eth      cipherOutput  `json:"eth"`
	Share    cipherOutput  `json:"share"`
	Position cipherOutput  `json:"position"`
}

func newLiquidityOutput(receipt *chain.Receipt, out engine.LiquidityReceipt) liquidityOutput {
	return liquidityOutput{
		Receipt:  summarize(receipt),
		Pool:     out.Pool.String(),
		Base:     cipherOutput{Handle: out.BaseAmount.Handle},
		Eth:      cipherOutput{Handle: out.EthAmount.Handle},
		Share:    cipherOutput{Handle: out.Share.Handle},
		Position: cipherOutput{Handle: out.Position.Handle},
	}
}
