package cli

import (
	"github.com/spf13/cobra"

	"github.com/LeJamon/goRLUSD/internal/operation"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "RLUSD on the contract ledger",
}

func tokenRun(op string, names ...string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		p := operation.Params{}
		for i, arg := range args {
			p[names[i]] = arg
		}
		return run(cmd, request(operation.ResourceToken, op, p))
	}
}

func init() {
	tokenCmd.AddCommand(
		&cobra.Command{
			Use:   "balance [address]",
			Short: "RLUSD balance",
			Args:  cobra.MaximumNArgs(1),
			RunE:  tokenRun("balance", "address"),
		},
		&cobra.Command{
			Use:   "eth-balance [address]",
			Short: "Native balance used for gas",
			Args:  cobra.MaximumNArgs(1),
			RunE:  tokenRun("ethBalance", "address"),
		},
		&cobra.Command{
			Use:   "allowance <spender> [owner]",
			Short: "Amount spender may move for owner",
			Args:  cobra.RangeArgs(1, 2),
			RunE:  tokenRun("allowance", "spender", "owner"),
		},
		&cobra.Command{
			Use:   "supply",
			Short: "Total supply",
			Args:  cobra.NoArgs,
			RunE:  tokenRun("totalSupply"),
		},
		&cobra.Command{
			Use:   "decimals",
			Short: "Token decimals reported by the contract",
			Args:  cobra.NoArgs,
			RunE:  tokenRun("decimals"),
		},
		&cobra.Command{
			Use:   "transfer <destination> <amount>",
			Short: "Transfer RLUSD",
			Args:  cobra.ExactArgs(2),
			RunE:  tokenRun("transfer", "destination", "amount"),
		},
		&cobra.Command{
			Use:   "approve <spender> <amount>",
			Short: "Set an allowance",
			Args:  cobra.ExactArgs(2),
			RunE:  tokenRun("approve", "spender", "amount"),
		},
		&cobra.Command{
			Use:   "transfer-from <owner> <destination> <amount>",
			Short: "Spend an allowance",
			Args:  cobra.ExactArgs(3),
			RunE:  tokenRun("transferFrom", "owner", "destination", "amount"),
		},
	)
	rootCmd.AddCommand(tokenCmd)
}
