package cli

import (
	"github.com/spf13/cobra"

	"github.com/LeJamon/goRLUSD/internal/operation"
)

var screenChain string

var complianceCmd = &cobra.Command{
	Use:   "compliance",
	Short: "Screening and reserve attestations",
}

var complianceLookupCmd = &cobra.Command{
	Use:   "lookup <address>",
	Short: "Screen an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := operation.Params{"address": args[0]}
		if screenChain != "" {
			p["chain"] = screenChain
		}
		return run(cmd, request(operation.ResourceCompliance, "lookup", p))
	},
}

var complianceAttestationCmd = &cobra.Command{
	Use:   "attestation <id>",
	Short: "Fetch a reserve attestation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, request(operation.ResourceCompliance, "attestation", operation.Params{"attestationId": args[0]}))
	},
}

func init() {
	complianceLookupCmd.Flags().StringVar(&screenChain, "chain", "", "xrpl or evm (detected from the address when empty)")
	complianceCmd.AddCommand(complianceLookupCmd, complianceAttestationCmd)
	rootCmd.AddCommand(complianceCmd)
}
