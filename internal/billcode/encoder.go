// Package billcode turns bills into scannable QR code images.
//
// The QR payload is a plain-text summary of the bill (customer, id, items and
// total) so that anyone with a QR reader can check a receipt without access to
// the ledger.
//
// Encoding Details:
//   - Error correction level M (about 15% of the symbol may be damaged)
//   - Smallest QR version (1-40) that holds the payload is chosen automatically
//   - Payloads that no version holds at level M fail with ErrPayloadTooLarge
//   - Images are written as PNG, atomically, into the configured directory
package billcode

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"

	"billbook/internal/logger"
	"billbook/pkg/models"
)

const (
	// RecoveryLevel is fixed; it is not a caller option.
	RecoveryLevel = qrcode.Medium

	minVersion = 1
	maxVersion = 40

	// MaxPayloadBytes is the byte-mode capacity of a version 40 symbol at
	// level M. Digit and upper-case runs are packed tighter, so longer
	// payloads can still fit.
	MaxPayloadBytes = 2331

	// DefaultSize renders 10 pixels per module.
	DefaultSize = -10
)

// Config holds the caller-visible rendering options.
type Config struct {
	// Foreground is the module colour: a CSS colour name or #rrggbb.
	Foreground string

	// Background is the background colour: a CSS colour name or #rrggbb.
	Background string

	// Size is the image width and height in pixels. Negative values are
	// pixels per module instead.
	Size int

	// OutputDir is where images are written.
	OutputDir string

	// Filename overrides the generated file name when set.
	Filename string
}

// DefaultConfig returns black-on-white, 10px modules, current directory.
func DefaultConfig() Config {
	return Config{
		Foreground: "black",
		Background: "white",
		Size:       DefaultSize,
		OutputDir:  ".",
	}
}

// Artifact is the result of encoding one bill.
type Artifact struct {
	Path    string // Where the PNG was written
	Payload string // Text stored in the code
	Version int    // QR version that was selected
}

// Encoder renders bill QR codes according to a Config.
type Encoder struct {
	cfg        Config
	foreground color.Color
	background color.Color
	log        zerolog.Logger
}

// NewEncoder validates cfg and returns an encoder.
func NewEncoder(cfg Config) (*Encoder, error) {
	const op = "NewEncoder"

	if cfg.Foreground == "" {
		cfg.Foreground = "black"
	}
	if cfg.Background == "" {
		cfg.Background = "white"
	}
	if cfg.Size == 0 {
		cfg.Size = DefaultSize
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}

	fg, err := ParseColor(cfg.Foreground)
	if err != nil {
		return nil, NewEncodingError(op, err, "foreground")
	}
	bg, err := ParseColor(cfg.Background)
	if err != nil {
		return nil, NewEncodingError(op, err, "background")
	}

	return &Encoder{
		cfg:        cfg,
		foreground: fg,
		background: bg,
		log:        logger.WithComponent("billcode"),
	}, nil
}

// WithFilename returns a copy of the encoder that writes to name.
func (e *Encoder) WithFilename(name string) *Encoder {
	clone := *e
	clone.cfg.Filename = name
	return &clone
}

// Encode renders the bill to its default artifact path.
func (e *Encoder) Encode(bill models.Bill) (Artifact, error) {
	return e.EncodeTo(bill, e.ArtifactPath(bill))
}

// EncodeTo builds the bill payload, fits it into the smallest QR version and
// writes the PNG image to path. Nothing is written when the payload does not
// fit.
func (e *Encoder) EncodeTo(bill models.Bill, path string) (Artifact, error) {
	const op = "Encode"

	payload := BuildPayload(bill)

	code, err := fit(payload)
	if err != nil {
		e.log.Warn().
			Str("bill_id", bill.ID).
			Int("payload_bytes", len(payload)).
			Msg("Bill payload does not fit in a QR code")
		return Artifact{}, NewEncodingError(op, err, fmt.Sprintf("%d bytes", len(payload)))
	}
	code.ForegroundColor = e.foreground
	code.BackgroundColor = e.background

	png, err := code.PNG(e.cfg.Size)
	if err != nil {
		return Artifact{}, NewEncodingError(op, fmt.Errorf("%w: %v", ErrWriteArtifact, err), "render")
	}

	if err := renameio.WriteFile(path, png, 0o644); err != nil {
		e.log.Error().
			Err(err).
			Str("path", path).
			Msg("Failed to write QR code image")
		return Artifact{}, NewEncodingError(op, fmt.Errorf("%w: %v", ErrWriteArtifact, err), path)
	}

	e.log.Debug().
		Str("bill_id", bill.ID).
		Str("path", path).
		Int("version", code.VersionNumber).
		Int("payload_bytes", len(payload)).
		Msg("QR code written")

	return Artifact{
		Path:    path,
		Payload: payload,
		Version: code.VersionNumber,
	}, nil
}

// Remove deletes a previously written artifact. A missing file is not an error.
func (e *Encoder) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return NewEncodingError("Remove", err, path)
	}
	return nil
}

// fit returns a QR code for payload using the smallest version that holds it.
// The search is bounded by the 40 versions the standard defines.
func fit(payload string) (*qrcode.QRCode, error) {
	for version := minVersion; version <= maxVersion; version++ {
		code, err := qrcode.NewWithForcedVersion(payload, version, RecoveryLevel)
		if err == nil {
			return code, nil
		}
	}

	return nil, ErrPayloadTooLarge
}

// ArtifactPath returns where Encode writes the image for bill.
func (e *Encoder) ArtifactPath(bill models.Bill) string {
	name := e.cfg.Filename
	if name == "" {
		name = DefaultFilename(bill.ID, bill.CustomerName)
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(e.cfg.OutputDir, name)
}

var unsafeName = strings.NewReplacer("/", "_", "\\", "_", " ", "_")

// DefaultFilename returns bill_<id>_<customer>.png with spaces and path
// separators replaced by underscores.
func DefaultFilename(id, customerName string) string {
	return fmt.Sprintf("bill_%s_%s.png", unsafeName.Replace(id), unsafeName.Replace(customerName))
}
