package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/safecircle/server/internal/classifier"
)

func newClassifyCommand() *cobra.Command {
	var modelPath string

	cmd := &cobra.Command{
		Use:   "classify <text>...",
		Short: "Label texts with the emergency classifier",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := classifier.Load(modelPath)
			pred, err := c.Predict(args)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(pred)
		},
	}

	defaultPath := os.Getenv("MODEL_PATH")
	if defaultPath == "" {
		defaultPath = "models/emergency_classifier.json"
	}
	cmd.Flags().StringVar(&modelPath, "model", defaultPath, "path to a JSON or YAML model file")
	return cmd
}
