package cmd

import (
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/annotator/internal/evaluation"
	"github.com/MeKo-Tech/annotator/internal/render"
	"github.com/MeKo-Tech/annotator/internal/script"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>",
	Short: "Replay a recorded editing session offline",
	Long: `Replay runs the events of a YAML script against a fresh editing session,
using the predictions stored in the script instead of a backend, and prints
the resulting diff payload as JSON.

Script format:
  image: scene.png            # optional, relative to the script
  handle_size: 8              # optional
  predictions:
    boxes: [[10, 10, 50, 50]]
    classes: [3]
  boundary: [[15, 15], [45, 15], [45, 45], [15, 45]]
  events:
    - {type: pointer_down, x: 50, y: 50}
    - {type: pointer_move, x: 60, y: 60}
    - {type: pointer_up}
    - {type: double_click, x: 30, y: 30}
    - {type: pointer_down, x: 45, y: 45, button: 2}

Examples:
  annotator replay session.yaml
  annotator replay session.yaml --frame final.png --evaluate`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		s, err := script.Load(args[0])
		if err != nil {
			return err
		}
		if s.HandleSize == 0 {
			s.HandleSize = cfg.Editor.HandleSize
		}

		res, err := s.Run(slog.Default())
		if err != nil {
			return fmt.Errorf("replay failed: %w", err)
		}

		if framePath, _ := cmd.Flags().GetString("frame"); framePath != "" {
			style, err := cfg.Style()
			if err != nil {
				return err
			}
			if err := writeFrame(res, s.ImagePath(), framePath, style); err != nil {
				return err
			}
		}

		out := any(res.Payload)
		if eval, _ := cmd.Flags().GetBool("evaluate"); eval {
			out = struct {
				Result any               `json:"result"`
				Report evaluation.Report `json:"report"`
			}{res.Payload, evaluation.Evaluate(res.Payload)}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func writeFrame(res *script.Result, imagePath, framePath string, style render.Style) error {
	var bg image.Image
	if imagePath != "" {
		img, meta, err := render.LoadImage(imagePath)
		if err != nil {
			return err
		}
		slog.Debug("loaded background", "path", meta.Path, "format", meta.Format,
			"width", meta.Width, "height", meta.Height)
		bg = img
	}

	if err := res.RenderFrame(bg, style).Save(framePath); err != nil {
		return fmt.Errorf("failed to write frame %s: %w", framePath, err)
	}
	if fi, err := os.Stat(framePath); err == nil {
		slog.Info("frame written", "path", framePath, "size_bytes", fi.Size())
	}
	return nil
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().String("frame", "", "write the final rendered frame to this image file")
	replayCmd.Flags().Bool("evaluate", false, "include the evaluation report in the output")
}
