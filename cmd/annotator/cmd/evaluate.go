package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MeKo-Tech/annotator/internal/editor"
	"github.com/MeKo-Tech/annotator/internal/evaluation"
	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <result.json>",
	Short: "Compute correction metrics for a submitted result",
	Long: `Evaluate reads a diff payload (as produced by a submission or by replay)
and reports how far the prediction was from the corrected annotation:
bounding box and polygon IoU, area change, vertex changes and edit gestures.

Examples:
  annotator evaluate result.json
  annotator evaluate result.json --format text`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != "json" && format != "text" {
			return fmt.Errorf("invalid format: %s (must be one of: json, text)", format)
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read result: %w", err)
		}
		payload, err := decodePayload(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		report := evaluation.Evaluate(payload)
		if format == "text" {
			return report.WriteText(cmd.OutOrStdout())
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

// decodePayload accepts a bare payload or the submit_result request body
// that wraps it under "result".
func decodePayload(data []byte) (editor.DiffPayload, error) {
	var wrapped struct {
		Result *editor.DiffPayload `json:"result"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return editor.DiffPayload{}, fmt.Errorf("invalid result json: %w", err)
	}
	if wrapped.Result != nil {
		return *wrapped.Result, nil
	}
	var p editor.DiffPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return editor.DiffPayload{}, fmt.Errorf("invalid result json: %w", err)
	}
	return p, nil
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringP("format", "f", "json", "output format: json or text")
}
