package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/surajshivkumar/ConvoLens/internal/calls"
	"github.com/surajshivkumar/ConvoLens/internal/progress"
	"github.com/surajshivkumar/ConvoLens/internal/vectordb"
)

const indexBatchSize = 100

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the local retrieval snapshot from stored embeddings",
	Long: `Copies every call that has a stored embedding from the configured database
into the chromem-go snapshot used by the chromem retrieval backend. Stored
vectors are reused as-is; nothing is re-embedded.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().String("out", "", "snapshot path (defaults to retrieval.chromem_path)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer log.Sync()

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = cfg.Retrieval.ChromemPath
	}

	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	records, err := calls.NewStore(database).Embedded(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no calls with embeddings found in %s", database.Dialect())
	}

	// Vectors are precomputed, so the store never calls its embedder.
	store, err := vectordb.NewChromemStore(nil)
	if err != nil {
		return err
	}

	reporter := progress.NewReporter("Indexing calls")
	reporter.Start(len(records))
	for start := 0; start < len(records); start += indexBatchSize {
		end := min(start+indexBatchSize, len(records))
		if err := store.AddRecords(ctx, records[start:end]); err != nil {
			return fmt.Errorf("indexing calls: %w", err)
		}
		reporter.Update(end, records[end-1].CallID)
	}
	reporter.Finish()

	if err := store.Persist(out); err != nil {
		return err
	}

	log.Info("snapshot written", zap.String("path", out), zap.Int("calls", store.Count()))
	fmt.Printf("Indexed %d calls into %s\n", store.Count(), out)
	return nil
}
