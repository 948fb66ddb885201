package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"billbook/internal/billcode"
	"billbook/internal/config"
	"billbook/internal/ledger"
	"billbook/internal/logger"
	"billbook/internal/metrics"
	"billbook/internal/notify"
	"billbook/internal/store/jsonfile"
	"billbook/internal/store/postgres"
)

// session bundles what a command needs to work with the ledger.
type session struct {
	cfg      *config.Config
	ledger   *ledger.Ledger
	metrics  *metrics.Metrics
	notifier *notify.Notifier
	log      zerolog.Logger

	closeStore func() error
}

type sessionOptions struct {
	qrFile string
}

// openSession builds the store, encoder and ledger described by cfg.
func openSession(ctx context.Context, cfg *config.Config, opts sessionOptions) (*session, error) {
	log := logger.WithComponent("session")

	encoder, err := billcode.NewEncoder(cfg.GetEncoderConfig())
	if err != nil {
		log.Error().Err(err).Msg("Invalid QR code configuration")
		return nil, fmt.Errorf("invalid QR code configuration (check QR_FOREGROUND and QR_BACKGROUND): %w", err)
	}
	if opts.qrFile != "" {
		encoder = encoder.WithFilename(opts.qrFile)
	}

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	l, err := ledger.New(ctx, store, encoder,
		ledger.WithLogger(logger.WithComponent("ledger")),
		ledger.WithRecorder(m),
	)
	if err != nil {
		_ = closeStore()
		return nil, handleLoadError(err, cfg)
	}

	var notifier *notify.Notifier
	if smtp := cfg.GetSMTPConfig(); smtp.Enabled() {
		notifier = notify.NewNotifier(notify.NewSMTPSender(smtp), nil)
	}

	return &session{
		cfg:        cfg,
		ledger:     l,
		metrics:    m,
		notifier:   notifier,
		log:        log,
		closeStore: closeStore,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ledger.Store, func() error, error) {
	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error().Err(err).Msg("Failed to connect to PostgreSQL")
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL (check DATABASE_URL): %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		log.Debug().Msg("Using PostgreSQL ledger store")
		return store, store.Close, nil
	default:
		log.Debug().Str("path", cfg.LedgerStorePath).Msg("Using JSON file ledger store")
		return jsonfile.New(cfg.LedgerStorePath), func() error { return nil }, nil
	}
}

// Close waits for pending notifications, flushes metrics and releases the
// store.
func (s *session) Close() {
	s.notifier.Wait()

	if s.cfg.MetricsFile != "" {
		if err := s.metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
			s.log.Warn().Err(err).Str("path", s.cfg.MetricsFile).Msg("Failed to write metrics file")
		}
	}
	if err := s.closeStore(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to close ledger store")
	}
}

// handleLoadError provides user-friendly error messages for ledger load failures
func handleLoadError(err error, cfg *config.Config) error {
	switch {
	case errors.Is(err, ledger.ErrStoreCorrupt):
		return fmt.Errorf("the ledger at %s is corrupt and was not modified. Restore it from a backup or fix it by hand: %w",
			storeLocation(cfg), err)
	case errors.Is(err, ledger.ErrPersistence):
		return fmt.Errorf("could not read the ledger at %s: %w", storeLocation(cfg), err)
	default:
		return fmt.Errorf("failed to open ledger: %w", err)
	}
}

func storeLocation(cfg *config.Config) string {
	if cfg.LedgerBackend == config.BackendPostgres {
		return "DATABASE_URL"
	}
	return cfg.LedgerStorePath
}

// createContext creates a context with timeout and signal handling
func createContext(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
