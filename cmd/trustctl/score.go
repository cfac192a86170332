package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"channel-trust-lab/internal/domain"
	"channel-trust-lab/internal/ingestion"
)

var (
	scoreWorkers int
	scoreCompact bool
)

var scoreCmd = &cobra.Command{
	Use:   "score [snapshot.json]",
	Short: "Score one snapshot or an array of snapshots and print the results as JSON",
	Long: `Score reads a snapshot JSON object, or an array of them, from the given
file or from stdin and prints the score results. Nothing is persisted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snaps, err := readSnapshots(args)
		if err != nil {
			return err
		}

		eng, err := newEngine()
		if err != nil {
			return err
		}

		items, err := eng.ScoreBatch(cmd.Context(), snaps, scoreWorkers)
		if err != nil {
			return err
		}

		out := make([]*domain.ScoreResult, 0, len(items))
		failed := 0
		for i, item := range items {
			if item.Err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "snapshot %d (%s): %v\n", i, snaps[i].ChannelID, item.Err)
				continue
			}
			out = append(out, item.Result)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		if !scoreCompact {
			enc.SetIndent("", "  ")
		}
		var payload any = out
		if len(snaps) == 1 && len(out) == 1 {
			payload = out[0]
		}
		if err := enc.Encode(payload); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d snapshots could not be scored", failed, len(snaps))
		}
		return nil
	},
}

func init() {
	scoreCmd.Flags().IntVar(&scoreWorkers, "workers", 0, "Parallel scoring workers (default: GOMAXPROCS)")
	scoreCmd.Flags().BoolVar(&scoreCompact, "compact", false, "Print compact JSON")
}

// readSnapshots decodes snapshots from the file named in args, or stdin.
func readSnapshots(args []string) ([]*domain.Snapshot, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshots: %w", err)
	}
	return ingestion.DecodePayload(data)
}
