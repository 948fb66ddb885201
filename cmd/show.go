package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"billbook/internal/logger"
)

var showCmd = &cobra.Command{
	Use:   "show [bill-id]",
	Short: "Print a stored bill as JSON",
	Example: `  billbook show B1
  billbook show B1 -o b1.json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
}

func runShow(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("show")

	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	id := args[0]

	ctx, cancel := createContext(timeoutSecs, log)
	defer cancel()

	s, err := openSession(ctx, appConfig, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	bill, ok := s.ledger.Lookup(id)
	if !ok {
		log.Warn().Str("bill_id", id).Msg("Bill not found")
		return fmt.Errorf("bill not found: %s", id)
	}

	return outputBill(cmd.OutOrStdout(), bill, outputPath, log)
}
