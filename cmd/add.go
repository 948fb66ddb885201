package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"billbook/internal/billcode"
	"billbook/internal/input"
	"billbook/internal/ledger"
	"billbook/internal/logger"
	"billbook/internal/validation"
	"billbook/pkg/models"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Admit a new bill and generate its QR code",
	Long: `Validate a bill, render its QR code image and store it in the ledger.

Items are given as a JSON or YAML list of {name, price, quantity} objects,
either inline (--items), from a file (--items-file, "-" for stdin), or as
repeated --item name:price:quantity flags. Prices are kept exactly as written.

The bill id must be unique. A bill is only reported as added once it has been
written to the ledger; if that write fails nothing is stored and the command
can be retried with the same id.`,
	Example: `  # Add a bill with inline JSON items
  billbook add --id B1 --customer Alice --items '[{"name":"Soap","price":2.50,"quantity":2},{"name":"Pen","price":1.00,"quantity":5}]'

  # Same bill using item flags, and email the receipt
  billbook add --id B1 --customer Alice --item Soap:2.50:2 --item Pen:1.00:5 --email alice@example.com

  # Read items from a YAML file and choose the QR image name
  billbook add --id B2 --customer Bob --items-file items.yaml --qr-file receipt.png`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().String("id", "", "Unique bill id (required)")
	addCmd.Flags().String("customer", "", "Customer name (required)")
	addCmd.Flags().String("items", "", "Items as a JSON or YAML list")
	addCmd.Flags().String("items-file", "", "Read items from a JSON or YAML file (- for stdin)")
	addCmd.Flags().StringArray("item", nil, "Item as name:price:quantity (repeatable)")
	addCmd.Flags().String("email", "", "Email the receipt to this address")
	addCmd.Flags().String("qr-file", "", "QR code image file name (default: bill_<id>_<customer>.png)")
	addCmd.Flags().StringP("output", "o", "", "Write the bill JSON to this file (default: stdout)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("add")

	id, _ := cmd.Flags().GetString("id")
	customer, _ := cmd.Flags().GetString("customer")
	email, _ := cmd.Flags().GetString("email")
	qrFile, _ := cmd.Flags().GetString("qr-file")
	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	items, err := readItems(cmd)
	if err != nil {
		return err
	}

	log.Info().
		Str("bill_id", id).
		Str("customer", customer).
		Int("items", len(items)).
		Msg("Adding bill")

	ctx, cancel := createContext(timeoutSecs, log)
	defer cancel()

	s, err := openSession(ctx, appConfig, sessionOptions{qrFile: qrFile})
	if err != nil {
		return err
	}
	defer s.Close()

	bill, err := s.ledger.Admit(ctx, id, customer, items)
	if err != nil {
		return handleAdmitError(err, id, log)
	}

	if email != "" {
		if s.notifier == nil {
			log.Warn().Msg("SMTP is not configured, receipt email not sent")
		} else {
			s.notifier.Go(ctx, bill, email)
		}
	}

	return outputBill(cmd.OutOrStdout(), bill, outputPath, log)
}

// readItems collects items from whichever of --items, --items-file and
// --item was given.
func readItems(cmd *cobra.Command) ([]models.Item, error) {
	inline, _ := cmd.Flags().GetString("items")
	file, _ := cmd.Flags().GetString("items-file")
	flags, _ := cmd.Flags().GetStringArray("item")

	given := 0
	for _, set := range []bool{inline != "", file != "", len(flags) > 0} {
		if set {
			given++
		}
	}
	if given > 1 {
		return nil, fmt.Errorf("use only one of --items, --items-file and --item")
	}

	switch {
	case inline != "":
		return parseItems(strings.NewReader(inline))
	case file == "-":
		return parseItems(cmd.InOrStdin())
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open items file: %w", err)
		}
		defer f.Close()
		return parseItems(f)
	default:
		items := make([]models.Item, 0, len(flags))
		for _, f := range flags {
			item, err := input.ParseItemFlag(f)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	}
}

func parseItems(r io.Reader) ([]models.Item, error) {
	items, err := input.ParseItems(r)
	if err != nil {
		return nil, fmt.Errorf("%w. Expected a list like [{\"name\": \"Soap\", \"price\": 2.50, \"quantity\": 2}]", err)
	}
	return items, nil
}

// handleAdmitError provides user-friendly error messages for admission failures
func handleAdmitError(err error, id string, log zerolog.Logger) error {
	log.Error().Err(err).Str("bill_id", id).Msg("Bill was not added")

	var vErr *validation.ValidationError
	switch {
	case errors.As(err, &vErr):
		return fmt.Errorf("invalid bill: %w", err)
	case errors.Is(err, ledger.ErrDuplicateID):
		return fmt.Errorf("bill ID '%s' already exists. Choose a different ID", id)
	case errors.Is(err, billcode.ErrPayloadTooLarge):
		return fmt.Errorf("bill is too large to fit in a QR code (about %d characters of bill text). Split it into several bills",
			billcode.MaxPayloadBytes)
	case errors.Is(err, billcode.ErrWriteArtifact):
		return fmt.Errorf("failed to write the QR code image. Check QR_OUTPUT_DIR: %w", err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("adding the bill timed out. Nothing was stored; try again or increase --timeout")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("adding the bill was canceled. Nothing was stored")
	case errors.Is(err, ledger.ErrPersistence):
		return fmt.Errorf("the ledger could not be written, so the bill was not stored. It is safe to retry with the same ID: %w", err)
	default:
		return fmt.Errorf("failed to add bill: %w", err)
	}
}
