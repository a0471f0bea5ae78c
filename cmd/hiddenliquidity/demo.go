package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/fhe"
	"hiddenLiquidity/internal/gateway"
	"hiddenLiquidity/internal/ledger"
)

// Second hardhat development account, the demo trader.
var demoTrader = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a provide, swap and withdraw round on an in-memory deployment",
		RunE:  runDemo,
	}
	cmd.Flags().Uint64("base", 12000, "cUSDC the provider deposits")
	cmd.Flags().Uint64("eth", 4000, "cETH the provider deposits")
	cmd.Flags().Uint64("swap", 3000, "cUSDC the trader sells for cETH")
	return cmd
}

type demoStep struct {
	Step    string            `json:"step"`
	Account common.Address    `json:"account"`
	Receipt *receiptOutput    `json:"receipt,omitempty"`
	Values  map[string]uint64 `json:"values,omitempty"`
}

func runDemo(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := e.deployFresh(ctx); err != nil {
		return err
	}
	base, _ := cmd.Flags().GetUint64("base")
	eth, _ := cmd.Flags().GetUint64("eth")
	swapIn, _ := cmd.Flags().GetUint64("swap")

	d := &demo{ctx: ctx, cmd: cmd, gw: e.world.Gateway}
	w := e.world
	provider := e.cfg.DeployerAddress()

	if err := d.record("mint provider", provider, func() (*chain.Receipt, error) {
		if _, err := w.Mint(ctx, "usdc", provider, base); err != nil {
			return nil, err
		}
		return w.Mint(ctx, "eth", provider, eth)
	}); err != nil {
		return err
	}
	if err := d.record("mint trader", demoTrader, func() (*chain.Receipt, error) {
		return w.Mint(ctx, "usdc", demoTrader, swapIn)
	}); err != nil {
		return err
	}
	for _, account := range []common.Address{provider, demoTrader} {
		if err := d.record("authorize exchange", account, func() (*chain.Receipt, error) {
			return w.Authorize(ctx, account, 1<<48-1)
		}); err != nil {
			return err
		}
	}

	var share fhe.Euint64
	if err := d.record("add liquidity", provider, func() (*chain.Receipt, error) {
		in, err := e.encrypt(ctx, provider, base, eth)
		if err != nil {
			return nil, err
		}
		receipt, out, err := w.Exchange.AddLiquidity(ctx, provider, ledger.PoolUSDC, in.Handles[0], in.Proof, in.Handles[1], in.Proof)
		share = out.Share
		return receipt, err
	}); err != nil {
		return err
	}
	exchange := w.Addresses.Exchange
	shareValue, err := d.show("provider share", provider, []sealed{{"share", share.Handle, exchange}})
	if err != nil {
		return err
	}

	if err := d.record("swap usdc-eth", demoTrader, func() (*chain.Receipt, error) {
		in, err := e.encrypt(ctx, demoTrader, swapIn)
		if err != nil {
			return nil, err
		}
		receipt, _, err := w.Exchange.Swap(ctx, demoTrader, ledger.USDCToETH, in.Handles[0], in.Proof)
		return receipt, err
	}); err != nil {
		return err
	}
	reserveBase, reserveEth, err := w.Exchange.GetPool(ledger.PoolUSDC)
	if err != nil {
		return err
	}
	if _, err := d.show("after swap", demoTrader, []sealed{
		{"trader_usdc", w.USDC.BalanceOf(demoTrader).Handle, w.Addresses.USDC},
		{"trader_eth", w.ETH.BalanceOf(demoTrader).Handle, w.Addresses.ETH},
		{"reserve_base", reserveBase.Handle, exchange},
		{"reserve_eth", reserveEth.Handle, exchange},
	}); err != nil {
		return err
	}

	if err := d.record("remove liquidity", provider, func() (*chain.Receipt, error) {
		in, err := e.encrypt(ctx, provider, shareValue["share"])
		if err != nil {
			return nil, err
		}
		receipt, _, err := w.Exchange.RemoveLiquidity(ctx, provider, ledger.PoolUSDC, in.Handles[0], in.Proof)
		return receipt, err
	}); err != nil {
		return err
	}
	if _, err := d.show("after withdraw", provider, []sealed{
		{"provider_usdc", w.USDC.BalanceOf(provider).Handle, w.Addresses.USDC},
		{"provider_eth", w.ETH.BalanceOf(provider).Handle, w.Addresses.ETH},
	}); err != nil {
		return err
	}

	e.logger.Info("demo complete",
		zap.String("backend", w.Backend.Name()),
		zap.Uint64("blocks", w.Runtime.BlockNumber()),
	)
	return nil
}

type demo struct {
	ctx context.Context
	cmd *cobra.Command
	gw  *gateway.Gateway
}

// sealed names a handle and the contract that holds it.
type sealed struct {
	name     string
	handle   fhe.Handle
	contract common.Address
}

func (d *demo) record(step string, account common.Address, fn func() (*chain.Receipt, error)) error {
	receipt, err := fn()
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	out := summarize(receipt)
	return printLine(d.cmd, demoStep{Step: step, Account: account, Receipt: &out})
}

// show decrypts handles for account and prints them.
func (d *demo) show(step string, account common.Address, handles []sealed) (map[string]uint64, error) {
	values := make(map[string]uint64, len(handles))
	for _, s := range handles {
		v, err := d.gw.UserDecrypt(d.ctx, s.handle, s.contract, account)
		if err != nil {
			return nil, fmt.Errorf("%s: decrypt %s: %w", step, s.name, err)
		}
		values[s.name] = v
	}
	return values, printLine(d.cmd, demoStep{Step: step, Account: account, Values: values})
}
