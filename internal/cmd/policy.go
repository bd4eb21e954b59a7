package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/workplan/internal/mcpserver"
	"github.com/Iron-Ham/workplan/internal/planner"
)

var policyFormat string

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Show the active risk policy",
	Long: `Policy prints the scoring weights, decision thresholds, signal term lists
and the ordered decision table used to route items to AI or human execution.
Term lists reflect the risk section of the configuration.`,
	Args: cobra.NoArgs,
	RunE: runPolicy,
}

func init() {
	policyCmd.Flags().StringVarP(&policyFormat, "format", "f", "text", "output format: text, json, yaml")

	rootCmd.AddCommand(policyCmd)
}

func runPolicy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	desc := mcpserver.DescribePolicy(planner.FromConfig(cfg).Policy)
	out := cmd.OutOrStdout()

	switch policyFormat {
	case "text", "":
		return writePolicyText(out, desc)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(desc)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(desc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown policy format %q (valid: text, json, yaml)", policyFormat)
	}
}

func writePolicyText(w io.Writer, d mcpserver.PolicyDescription) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Risk policy %s\n\n", d.Version)

	sb.WriteString("Weights:\n")
	fmt.Fprintf(&sb, "  base:              %d\n", d.Weights.Base)
	fmt.Fprintf(&sb, "  requires approval: %d\n", d.Weights.Approval)
	fmt.Fprintf(&sb, "  ambiguous scope:   %d\n", d.Weights.Ambiguous)
	fmt.Fprintf(&sb, "  security:          %d\n", d.Weights.Security)
	fmt.Fprintf(&sb, "  missing criteria:  %d\n", d.Weights.MissingCriteria)
	fmt.Fprintf(&sb, "  has children:      %d\n", d.Weights.Children)
	fmt.Fprintf(&sb, "  advisory hint:     -%d..+%d\n\n", d.MaxHintDelta, d.MaxHintDelta)

	sb.WriteString("Thresholds:\n")
	fmt.Fprintf(&sb, "  human:      score >= %d\n", d.HumanThreshold)
	fmt.Fprintf(&sb, "  spot-check: score >= %d\n\n", d.SpotCheckThreshold)

	sb.WriteString("Signals:\n")
	fmt.Fprintf(&sb, "  min description length: %d\n", d.MinDescriptionLength)
	fmt.Fprintf(&sb, "  vague terms:            %s\n", strings.Join(d.VagueTerms, ", "))
	fmt.Fprintf(&sb, "  security keywords:      %s\n", strings.Join(d.SecurityKeywords, ", "))
	fmt.Fprintf(&sb, "  approval tags:          %s\n\n", strings.Join(d.ApprovalTags, ", "))

	sb.WriteString("Decision table (first match wins):\n")
	for i, r := range d.DecisionTable {
		fmt.Fprintf(&sb, "  %d. %-14s %-28s -> %s\n", i+1, r.Name, r.Condition, r.Decision)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
