package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/fhe"
)

// cipherOutput is a ciphertext handle and, when requested, its cleartext.
type cipherOutput struct {
	Handle fhe.Handle `json:"handle"`
	Value  *uint64    `json:"value,omitempty"`
}

func addDecryptFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("decrypt", false, "decrypt the returned handles through the gateway")
	cmd.Flags().String("as", "", "account the gateway decrypts for (defaults to the deployer)")
}

// reveal returns h and, with --decrypt, its cleartext as seen by --as.
func (e *env) reveal(ctx context.Context, cmd *cobra.Command, h fhe.Handle, contract common.Address) (cipherOutput, error) {
	out := cipherOutput{Handle: h}
	decrypt, _ := cmd.Flags().GetBool("decrypt")
	if !decrypt {
		return out, nil
	}
	user, err := e.sender(cmd, "as")
	if err != nil {
		return cipherOutput{}, err
	}
	v, err := e.world.Gateway.UserDecrypt(ctx, h, contract, user)
	if err != nil {
		return cipherOutput{}, err
	}
	out.Value = &v
	return out, nil
}

func newMintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint test tokens",
		RunE:  runMint,
	}
	cmd.Flags().String("token", "", "token symbol (usdc | usdt | eth)")
	cmd.Flags().String("to", "", "recipient (defaults to the deployer)")
	cmd.Flags().Uint64("amount", 0, "amount in base units")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func runMint(cmd *cobra.Command, _ []string) error {
	return withWorld(cmd, true, func(ctx context.Context, e *env) error {
		name, _ := cmd.Flags().GetString("token")
		amount, _ := cmd.Flags().GetUint64("amount")
		to, err := e.sender(cmd, "to")
		if err != nil {
			return err
		}

		receipt, err := e.world.Mint(ctx, name, to, amount)
		if err != nil {
			return err
		}
		e.logger.Info("minted",
			zap.String("token", name),
			zap.String("to", to.Hex()),
			zap.Uint64("amount", amount),
			zap.String("tx", receipt.TxHash.Hex()),
		)
		return printJSON(cmd, summarize(receipt))
	})
}

func newAuthorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Make the exchange an operator of a holder's tokens",
		RunE:  runAuthorize,
	}
	cmd.Flags().String("holder", "", "token holder (defaults to the deployer)")
	cmd.Flags().Uint64("until", 4_000_000_000, "operator expiry as unix seconds")
	cmd.Flags().StringSlice("token", nil, "tokens to authorize, all when empty")
	return cmd
}

func runAuthorize(cmd *cobra.Command, _ []string) error {
	return withWorld(cmd, true, func(ctx context.Context, e *env) error {
		holder, err := e.sender(cmd, "holder")
		if err != nil {
			return err
		}
		until, _ := cmd.Flags().GetUint64("until")
		if until > 1<<48-1 {
			return fmt.Errorf("until %d does not fit 48 bits", until)
		}
		names, _ := cmd.Flags().GetStringSlice("token")

		receipt, err := e.world.Authorize(ctx, holder, until, names...)
		if err != nil {
			return err
		}
		e.logger.Info("operator set",
			zap.String("holder", holder.Hex()),
			zap.String("operator", e.world.Addresses.Exchange.Hex()),
			zap.Uint64("until", until),
			zap.Strings("tokens", names),
		)
		return printJSON(cmd, summarize(receipt))
	})
}

func newBalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Print a confidential token balance",
		RunE:  runBalance,
	}
	cmd.Flags().String("token", "", "token symbol (usdc | usdt | eth)")
	cmd.Flags().String("holder", "", "holder (defaults to the deployer)")
	addDecryptFlags(cmd)
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

type balanceOutput struct {
	Token   string         `json:"token"`
	Holder  common.Address `json:"holder"`
	Balance cipherOutput   `json:"balance"`
}

func runBalance(cmd *cobra.Command, _ []string) error {
	return withWorld(cmd, false, func(ctx context.Context, e *env) error {
		name, _ := cmd.Flags().GetString("token")
		t, err := e.world.Token(name)
		if err != nil {
			return err
		}
		holder, err := e.sender(cmd, "holder")
		if err != nil {
			return err
		}

		balance, err := e.reveal(ctx, cmd, t.BalanceOf(holder).Handle, t.Address())
		if err != nil {
			return err
		}
		return printJSON(cmd, balanceOutput{Token: t.Symbol(), Holder: holder, Balance: balance})
	})
}
