package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goRLUSD/internal/operation"
)

var continueOnFail bool

// callCmd runs any operation through the same dispatcher the server uses.
var callCmd = &cobra.Command{
	Use:   "call <resource.operation> [params-json]",
	Short: "Run any operation directly",
	Long: `Run an operation by name with JSON parameters, exactly as the JSON-RPC
endpoint would. Params may be one object or an array of objects; with an
array every item runs in order.

Example:
  rlusd call account.balance '{"address":"rMxCKbEDwqr76QuheSUMdEGf4B9xJ8m5De"}'
  rlusd call utility.convert '[{"amount":"1","from":"xrp"},{"amount":"5","from":"rlusd"}]' --continue-on-fail`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCall,
}

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "List every resource and operation",
	Run: func(cmd *cobra.Command, args []string) {
		resources := make([]string, 0, len(operation.Catalog))
		for r := range operation.Catalog {
			resources = append(resources, r)
		}
		sort.Strings(resources)
		for _, r := range resources {
			fmt.Fprintf(cmd.OutOrStdout(), "%-13s %s\n", r, strings.Join(operation.Catalog[r], ", "))
		}
	},
}

func init() {
	callCmd.Flags().BoolVar(&continueOnFail, "continue-on-fail", false, "report failed items and keep going")
	rootCmd.AddCommand(callCmd, operationsCmd)
}

// parseParams decodes the optional params argument into items.
func parseParams(arg string) ([]operation.Params, bool, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return []operation.Params{{}}, true, nil
	}
	if strings.HasPrefix(arg, "[") {
		var items []operation.Params
		if err := json.Unmarshal([]byte(arg), &items); err != nil {
			return nil, false, fmt.Errorf("invalid params array: %w", err)
		}
		return items, false, nil
	}
	var p operation.Params
	if err := json.Unmarshal([]byte(arg), &p); err != nil {
		return nil, false, fmt.Errorf("invalid params object: %w", err)
	}
	return []operation.Params{p}, true, nil
}

func runCall(cmd *cobra.Command, args []string) error {
	resource, op, ok := strings.Cut(args[0], ".")
	if !ok {
		return fmt.Errorf("method must be resource.operation, got %q", args[0])
	}
	var raw string
	if len(args) > 1 {
		raw = args[1]
	}
	items, single, err := parseParams(raw)
	if err != nil {
		return err
	}
	if single {
		return run(cmd, operation.Request{Resource: resource, Operation: op, Params: items[0]})
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	reqs := make([]operation.Request, len(items))
	for i, p := range items {
		reqs[i] = operation.Request{Resource: resource, Operation: op, Params: p}
	}
	results, err := a.dispatcher(nil).Execute(cmd.Context(), reqs, continueOnFail)
	if perr := printResult(cmd.OutOrStdout(), results); perr != nil {
		return perr
	}
	return err
}
