package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/surajshivkumar/ConvoLens/internal/answer"
	"github.com/surajshivkumar/ConvoLens/internal/apperr"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question about the call archive",
	Long:  `Routes a natural-language question through the classifier and the matching strategy, then prints the response envelope as JSON.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().String("idempotency-key", "", "key that makes a scheduling request safe to retry")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	key, _ := cmd.Flags().GetString("idempotency-key")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	env, err := a.router.Handle(ctx, answer.Question{
		Text:           strings.Join(args, " "),
		IdempotencyKey: key,
	})
	if err != nil {
		return fmt.Errorf("%d: %s", apperr.HTTPStatus(err), apperr.Detail(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}
