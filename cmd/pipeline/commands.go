package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go-pipeline-engine/internal/resource"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Serve(cmd.Context())
	},
}

var (
	runInput     string
	runInputFile string
	runUser      string
)

var runCmd = &cobra.Command{
	Use:   "run <pipeline-id>",
	Short: "Run a pipeline and print its result",
	Long: `Run a registered pipeline once. The input is taken from --input or
--input-file. JSON input is decoded; anything else is passed as text.

The command exits non-zero when the run fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := readInput()
		if err != nil {
			return err
		}
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Executor.Execute(cmd.Context(), args[0], runUser, input)
		if err != nil {
			return err
		}
		if err := printJSON(cmd, result); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("run %s failed: %s", result.RunID, result.Error)
		}
		return nil
	},
}

func readInput() (any, error) {
	raw := runInput
	if runInputFile != "" {
		data, err := os.ReadFile(runInputFile)
		if err != nil {
			return nil, err
		}
		raw = string(data)
	}
	var v any
	if json.Valid([]byte(raw)) {
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v, nil
		}
	}
	return raw, nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered pipelines",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tINPUT\tOUTPUT\tSTEPS")
		for _, p := range a.Registry.List() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.ID, p.Input.Kind, p.Output.Kind, len(p.Steps))
		}
		return tw.Flush()
	},
}

var (
	recSize       string
	recComplexity string
	recTiers      []string
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend an execution tier for a work item",
	RunE: func(cmd *cobra.Command, args []string) error {
		size, err := resource.ParseSizeClass(recSize)
		if err != nil {
			return err
		}
		complexity, err := resource.ParseComplexityClass(recComplexity)
		if err != nil {
			return err
		}
		candidates, err := resource.ParseTiers(recTiers)
		if err != nil {
			return err
		}
		return printJSON(cmd, resource.Advise(size, complexity, candidates))
	},
}

var (
	costDataGB    float64
	costItems     int
	costPerGB     float64
	costPerRun    float64
	costBandwidth float64
	costLatencyMs float64
)

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Estimate transfer time and cost for moving and processing a dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		transfer, err := resource.EstimateTransfer(costDataGB, costBandwidth, costItems, costLatencyMs)
		if err != nil {
			return err
		}
		cost := resource.EstimateCost(costDataGB, costPerGB, costItems, costPerRun)
		return printJSON(cmd, struct {
			Transfer resource.TransferEstimate `json:"transfer"`
			Cost     resource.CostEstimate     `json:"cost"`
			Advice   resource.CostAdvice       `json:"advice"`
		}{transfer, cost, resource.AdviseCost(cost)})
	},
}

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Show tier constraints",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := make([]resource.TierConstraints, 0, len(resource.AllTiers()))
		for _, t := range resource.AllTiers() {
			out = append(out, resource.Constraints(t))
		}
		return printJSON(cmd, out)
	},
}

var optimizeTier string

var optimizeCmd = &cobra.Command{
	Use:   "optimize <script>",
	Short: "Write a tier-specific variant of a script",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tier, err := resource.ParseTier(optimizeTier)
		if err != nil {
			return err
		}
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		ref, err := a.Bridge.OptimizeFor(tier, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ref)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "input value (JSON or text)")
	runCmd.Flags().StringVarP(&runInputFile, "input-file", "f", "", "read the input from a file")
	runCmd.Flags().StringVarP(&runUser, "user", "u", "cli", "user id recorded with the run")
	runCmd.MarkFlagsMutuallyExclusive("input", "input-file")

	recommendCmd.Flags().StringVar(&recSize, "size", "medium", "size class: tiny, small, medium, large, xlarge")
	recommendCmd.Flags().StringVar(&recComplexity, "complexity", "moderate", "complexity class: simple, moderate, complex, very_complex")
	recommendCmd.Flags().StringSliceVarP(&recTiers, "tier", "t", nil, "candidate tier (repeatable; default all)")

	costCmd.Flags().Float64Var(&costDataGB, "data-gb", 1, "dataset size in GB")
	costCmd.Flags().IntVar(&costItems, "items", 1, "number of items processed")
	costCmd.Flags().Float64Var(&costPerGB, "cost-per-gb", 0.09, "transfer cost per GB")
	costCmd.Flags().Float64Var(&costPerRun, "cost-per-run", 0.002, "compute cost per item")
	costCmd.Flags().Float64Var(&costBandwidth, "bandwidth-mbps", 100, "link bandwidth in Mbps")
	costCmd.Flags().Float64Var(&costLatencyMs, "latency-ms", 50, "per-item overhead in milliseconds")

	optimizeCmd.Flags().StringVarP(&optimizeTier, "tier", "t", "", "target tier")
	_ = optimizeCmd.MarkFlagRequired("tier")
}
