package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"billbook/internal/logger"
)

var notifyCmd = &cobra.Command{
	Use:   "notify [bill-id]",
	Short: "Email the receipt for a stored bill",
	Long: `Send the receipt of a stored bill, with its QR code attached, to an email
address. Requires SMTP_HOST and SMTP_FROM; SMTP_USERNAME and SMTP_PASSWORD
enable authentication. Connections always use STARTTLS.`,
	Example: `  billbook notify B1 --to alice@example.com`,
	Args:    cobra.ExactArgs(1),
	RunE:    runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)

	notifyCmd.Flags().String("to", "", "Recipient email address (required)")
	_ = notifyCmd.MarkFlagRequired("to")
}

func runNotify(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("notify")

	to, _ := cmd.Flags().GetString("to")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	id := args[0]

	if !appConfig.GetSMTPConfig().Enabled() {
		return fmt.Errorf("email is not configured. Set SMTP_HOST and SMTP_FROM (and SMTP_USERNAME/SMTP_PASSWORD if your server requires login)")
	}

	ctx, cancel := createContext(timeoutSecs, log)
	defer cancel()

	s, err := openSession(ctx, appConfig, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	bill, ok := s.ledger.Lookup(id)
	if !ok {
		return fmt.Errorf("bill not found: %s", id)
	}

	if !s.notifier.Notify(ctx, bill, to) {
		return fmt.Errorf("failed to send the receipt for bill %s to %s, see the log for details", id, to)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Receipt for bill %s sent to %s\n", id, to)
	return nil
}
