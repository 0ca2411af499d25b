package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goRLUSD/internal/operation"
)

var (
	chainFlag string
	txChain   string

	trustFlags struct {
		noRipple, clearNoRipple, freeze, unfreeze, auth bool
		qualityIn, qualityOut                           uint32
	}
	payFlags struct {
		tag      int64
		memo     string
		sendMax  string
		partial  bool
		noDirect bool
	}
	offerFlags struct {
		passive, ioc, fok bool
		expiration        string
		replace           uint32
	}
	escrowFlags struct {
		finishAfter, cancelAfter, condition string
		tag                                 int64
	}

	bookLimit int
)

func request(resource, op string, p operation.Params) operation.Request {
	if p == nil {
		p = operation.Params{}
	}
	return operation.Request{Resource: resource, Operation: op, Params: p}
}

// withAddress sets "address" when the optional positional argument is given.
func withAddress(p operation.Params, args []string) operation.Params {
	if len(args) > 0 {
		p["address"] = args[0]
	}
	return p
}

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show XRP and RLUSD balances",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := withAddress(operation.Params{}, args)
		if chainFlag == "evm" {
			return run(cmd, request(operation.ResourceToken, "balance", p))
		}
		return run(cmd, request(operation.ResourceAccount, "balance", p))
	},
}

var accountCmd = &cobra.Command{
	Use:   "account [address]",
	Short: "Show account root data",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, request(operation.ResourceAccount, "info", withAddress(operation.Params{}, args)))
	},
}

var trustlineCmd = &cobra.Command{
	Use:   "trustline",
	Short: "Manage the RLUSD trust line",
}

var trustSetCmd = &cobra.Command{
	Use:   "set <limit>",
	Short: "Create or update the trust line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := operation.Params{
			"limit":         args[0],
			"setNoRipple":   trustFlags.noRipple,
			"clearNoRipple": trustFlags.clearNoRipple,
			"setFreeze":     trustFlags.freeze,
			"clearFreeze":   trustFlags.unfreeze,
			"setAuth":       trustFlags.auth,
		}
		if cmd.Flags().Changed("quality-in") {
			p["qualityIn"] = strconv.FormatUint(uint64(trustFlags.qualityIn), 10)
		}
		if cmd.Flags().Changed("quality-out") {
			p["qualityOut"] = strconv.FormatUint(uint64(trustFlags.qualityOut), 10)
		}
		return run(cmd, request(operation.ResourceTrustline, "set", p))
	},
}

var trustRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Set the trust line limit to zero",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, request(operation.ResourceTrustline, "remove", nil))
	},
}

var trustListCmd = &cobra.Command{
	Use:   "list [address]",
	Short: "List RLUSD trust lines",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, request(operation.ResourceTrustline, "list", withAddress(operation.Params{}, args)))
	},
}

func paymentParams(cmd *cobra.Command, dest, amt string) operation.Params {
	p := operation.Params{
		"destination":    dest,
		"amount":         amt,
		"partialPayment": payFlags.partial,
		"noRippleDirect": payFlags.noDirect,
	}
	if cmd.Flags().Changed("tag") {
		p["destinationTag"] = strconv.FormatInt(payFlags.tag, 10)
	}
	if payFlags.memo != "" {
		p["memo"] = payFlags.memo
	}
	if payFlags.sendMax != "" {
		p["sendMax"] = payFlags.sendMax
	}
	return p
}

var payCmd = &cobra.Command{
	Use:   "pay <destination> <amount>",
	Short: "Send RLUSD",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, request(operation.ResourcePayment, "send", paymentParams(cmd, args[0], args[1])))
	},
}

var xrpCmd = &cobra.Command{
	Use:   "xrp",
	Short: "Native XRP operations",
}

var xrpPayCmd = &cobra.Command{
	Use:   "pay <destination> <amount>",
	Short: "Send XRP",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, request(operation.ResourcePayment, "sendXrp", paymentParams(cmd, args[0], args[1])))
	},
}

var offerCmd = &cobra.Command{
	Use:   "offer",
	Short: "Manage RLUSD/XRP offers",
}

var offerCreateCmd = &cobra.Command{
	Use:   "create <buy|sell> <amount> <price>",
	Short: "Place an offer; price is XRP per RLUSD",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := operation.Params{
			"side":              args[0],
			"amount":            args[1],
			"price":             args[2],
			"passive":           offerFlags.passive,
			"immediateOrCancel": offerFlags.ioc,
			"fillOrKill":        offerFlags.fok,
		}
		if offerFlags.expiration != "" {
			p["expiration"] = offerFlags.expiration
		}
		if cmd.Flags().Changed("replace") {
			p["replace"] = strconv.FormatUint(uint64(offerFlags.replace), 10)
		}
		return run(cmd, request(operation.ResourceDex, "createOffer", p))
	},
}

var offerCancelCmd = &cobra.Command{
	Use:   "cancel <sequence>",
	Short: "Cancel an offer by sequence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, request(operation.ResourceDex, "cancelOffer", operation.Params{"offerSequence": args[0]}))
	},
}

var offerListCmd = &cobra.Command{
	Use:   "list [address]",
	Short: "List open offers",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, request(operation.ResourceAccount, "offers", withAddress(operation.Params{}, args)))
	},
}

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Show the RLUSD/XRP order book",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, request(operation.ResourceDex, "book", operation.Params{"limit": strconv.Itoa(bookLimit)}))
	},
}

var spreadCmd = &cobra.Command{
	Use:   "spread",
	Short: "Show best bid, ask and spread",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, request(operation.ResourceDex, "spread", nil))
	},
}

var escrowCmd = &cobra.Command{
	Use:   "escrow",
	Short: "XRP escrows",
}

var escrowCreateCmd = &cobra.Command{
	Use:   "create <destination> <amount>",
	Short: "Lock XRP in an escrow",
	Long: `Lock XRP until --finish-after, optionally refundable after --cancel-after.
Times are RFC 3339 or Unix seconds.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := operation.Params{"destination": args[0], "amount": args[1]}
		if escrowFlags.finishAfter != "" {
			p["finishAfter"] = escrowFlags.finishAfter
		}
		if escrowFlags.cancelAfter != "" {
			p["cancelAfter"] = escrowFlags.cancelAfter
		}
		if escrowFlags.condition != "" {
			p["condition"] = escrowFlags.condition
		}
		if cmd.Flags().Changed("tag") {
			p["destinationTag"] = strconv.FormatInt(escrowFlags.tag, 10)
		}
		return run(cmd, request(operation.ResourceEscrow, "create", p))
	},
}

var txCmd = &cobra.Command{
	Use:   "tx <hash>",
	Short: "Look up a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := operation.Params{"hash": args[0]}
		if txChain != "" {
			p["chain"] = txChain
		}
		return run(cmd, request(operation.ResourceTransaction, "get", p))
	},
}

func init() {
	balanceCmd.Flags().StringVar(&chainFlag, "chain", "xrpl", "ledger to query (xrpl or evm)")
	txCmd.Flags().StringVar(&txChain, "chain", "xrpl", "ledger the hash belongs to (xrpl or evm)")

	f := trustSetCmd.Flags()
	f.BoolVar(&trustFlags.noRipple, "no-ripple", false, "set no-ripple")
	f.BoolVar(&trustFlags.clearNoRipple, "clear-no-ripple", false, "clear no-ripple")
	f.BoolVar(&trustFlags.freeze, "freeze", false, "freeze the line")
	f.BoolVar(&trustFlags.unfreeze, "unfreeze", false, "clear a freeze")
	f.BoolVar(&trustFlags.auth, "auth", false, "authorize the counterparty")
	f.Uint32Var(&trustFlags.qualityIn, "quality-in", 0, "incoming quality, 1000000000 is face value")
	f.Uint32Var(&trustFlags.qualityOut, "quality-out", 0, "outgoing quality, 1000000000 is face value")
	trustlineCmd.AddCommand(trustSetCmd, trustRemoveCmd, trustListCmd)

	for _, c := range []*cobra.Command{payCmd, xrpPayCmd} {
		f := c.Flags()
		f.Int64Var(&payFlags.tag, "tag", 0, "destination tag")
		f.StringVar(&payFlags.memo, "memo", "", "memo text")
		f.BoolVar(&payFlags.noDirect, "no-direct", false, "do not use the default path")
	}
	payCmd.Flags().StringVar(&payFlags.sendMax, "send-max", "", "maximum RLUSD to spend")
	payCmd.Flags().BoolVar(&payFlags.partial, "partial", false, "allow partial delivery")
	xrpCmd.AddCommand(xrpPayCmd)

	f = offerCreateCmd.Flags()
	f.BoolVar(&offerFlags.passive, "passive", false, "do not consume matching offers")
	f.BoolVar(&offerFlags.ioc, "ioc", false, "immediate or cancel")
	f.BoolVar(&offerFlags.fok, "fok", false, "fill or kill")
	f.StringVar(&offerFlags.expiration, "expiration", "", "expiry time (RFC 3339 or Unix seconds)")
	f.Uint32Var(&offerFlags.replace, "replace", 0, "sequence of an offer to replace")
	offerCmd.AddCommand(offerCreateCmd, offerCancelCmd, offerListCmd)

	bookCmd.Flags().IntVar(&bookLimit, "limit", 20, "offers per side")
	bookCmd.AddCommand(spreadCmd)

	f = escrowCreateCmd.Flags()
	f.StringVar(&escrowFlags.finishAfter, "finish-after", "", "earliest release time")
	f.StringVar(&escrowFlags.cancelAfter, "cancel-after", "", "refund time")
	f.StringVar(&escrowFlags.condition, "condition", "", "crypto-condition hex")
	f.Int64Var(&escrowFlags.tag, "tag", 0, "destination tag")
	escrowCmd.AddCommand(escrowCreateCmd)

	rootCmd.AddCommand(balanceCmd, accountCmd, trustlineCmd, payCmd, xrpCmd, offerCmd, bookCmd, escrowCmd, txCmd)
}
