package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"billbook/pkg/models"
)

// BillOutput is the JSON form of a bill printed by add and show.
type BillOutput struct {
	ID           string       `json:"id"`
	CustomerName string       `json:"customer_name"`
	Items        []ItemOutput `json:"items"`
	TotalAmount  json.Number  `json:"total_amount"`
	CreatedAt    time.Time    `json:"created_at"`
	QRCodePath   string       `json:"qr_code_path"`
}

// ItemOutput is one line of a BillOutput.
type ItemOutput struct {
	Name      string      `json:"name"`
	Price     json.Number `json:"price"`
	Quantity  int64       `json:"quantity"`
	LineTotal json.Number `json:"line_total"`
}

func convertToBillOutput(bill models.Bill) BillOutput {
	out := BillOutput{
		ID:           bill.ID,
		CustomerName: bill.CustomerName,
		Items:        make([]ItemOutput, len(bill.Items)),
		TotalAmount:  json.Number(models.FormatAmount(bill.TotalAmount)),
		CreatedAt:    bill.CreatedAt,
		QRCodePath:   bill.CodeArtifactRef,
	}
	for i, item := range bill.Items {
		out.Items[i] = ItemOutput{
			Name:      item.Name,
			Price:     json.Number(models.FormatAmount(item.UnitPrice)),
			Quantity:  item.Quantity,
			LineTotal: json.Number(models.FormatAmount(item.LineTotal())),
		}
	}
	return out
}

func outputBill(w io.Writer, bill models.Bill, outputPath string, log zerolog.Logger) error {
	jsonData, err := json.MarshalIndent(convertToBillOutput(bill), "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal bill to JSON")
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	jsonData = append(jsonData, '\n')
	return writeOutput(w, jsonData, outputPath, log)
}

// writeOutput writes data to outputPath, or to w when no path is given.
func writeOutput(w io.Writer, data []byte, outputPath string, log zerolog.Logger) error {
	if outputPath == "" {
		if _, err := w.Write(data); err != nil {
			log.Error().Err(err).Msg("Failed to write to stdout")
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", outputPath).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}

	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(data)).
		Msg("Output written to file")
	return nil
}
