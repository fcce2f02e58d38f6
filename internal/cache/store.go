// Package cache implements the dual-format (msgpack + CSV) on-disk cache
// for price bars and dividend events, guarded by OS-level advisory file
// locks so multiple backtest processes can share one cache directory
// safely (spec §4.2).
package cache

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sdbacktest/engine/internal/domain"
)

// Store is a directory of per-ticker price and dividend cache entries.
// Each entry is a (binary, csv, lock) file triple named after the ticker.
type Store struct {
	dir         string
	lockTimeout time.Duration
	log         zerolog.Logger
}

// NewStore creates a Store rooted at dir. dir is created by the config
// loader before the Store is constructed; NewStore does not create it.
func NewStore(dir string, lockTimeout time.Duration, log zerolog.Logger) *Store {
	return &Store{
		dir:         dir,
		lockTimeout: lockTimeout,
		log:         log.With().Str("component", "cache.Store").Logger(),
	}
}

func sanitize(ticker string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, ticker))
}

func (s *Store) paths(ticker, kind string) (bin, csv, lock string) {
	name := sanitize(ticker)
	if kind == "dividends" {
		name += "_dividends"
	}
	base := filepath.Join(s.dir, name)
	return base + ".msgpack", base + ".csv", filepath.Join(s.dir, fmt.Sprintf(".%s.msgpack.lock", name))
}

// GetPrices reads cached bars for ticker under a shared lock, preferring
// the binary twin and falling back to the CSV twin if the binary file is
// absent (spec §4.2). Returns (nil, nil) if neither file exists.
func (s *Store) GetPrices(ticker string) ([]domain.Bar, error) {
	binPath, csvPath, lockPath := s.paths(ticker, "prices")

	lock, err := acquireLock(lockPath, lockShared, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	bars, err := readBarsBinary(binPath)
	if err != nil {
		return nil, err
	}
	if bars != nil {
		return bars, nil
	}
	return readBarsCSV(csvPath)
}

// MergePrices unions incoming bars into the cached set under an exclusive
// lock and rewrites both format twins so they stay in sync (spec §4.2
// invariant c). Existing data already on disk is never discarded; on a
// date collision the incoming bar wins.
func (s *Store) MergePrices(ticker string, incoming []domain.Bar) error {
	binPath, csvPath, lockPath := s.paths(ticker, "prices")

	lock, err := acquireLock(lockPath, lockExclusive, s.lockTimeout)
	if err != nil {
		return err
	}
	defer lock.release()

	existing, err := readBarsBinary(binPath)
	if err != nil {
		return err
	}
	if existing == nil {
		if existing, err = readBarsCSV(csvPath); err != nil {
			return err
		}
	}

	merged := mergeBars(existing, incoming)

	if err := writeBarsBinary(binPath, merged); err != nil {
		return err
	}
	if err := writeBarsCSV(csvPath, merged); err != nil {
		return err
	}

	s.log.Debug().Str("ticker", ticker).Int("bars", len(merged)).Msg("merged price cache")
	return nil
}

// GetDividends reads cached dividend events for ticker under a shared
// lock, same binary-preferred/CSV-fallback behavior as GetPrices.
func (s *Store) GetDividends(ticker string) ([]domain.DividendEvent, error) {
	binPath, csvPath, lockPath := s.paths(ticker, "dividends")

	lock, err := acquireLock(lockPath, lockShared, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	divs, err := readDividendsBinary(binPath)
	if err != nil {
		return nil, err
	}
	if divs != nil {
		return divs, nil
	}
	return readDividendsCSV(csvPath)
}

// MergeDividends is the dividend-event analogue of MergePrices.
func (s *Store) MergeDividends(ticker string, incoming []domain.DividendEvent) error {
	binPath, csvPath, lockPath := s.paths(ticker, "dividends")

	lock, err := acquireLock(lockPath, lockExclusive, s.lockTimeout)
	if err != nil {
		return err
	}
	defer lock.release()

	existing, err := readDividendsBinary(binPath)
	if err != nil {
		return err
	}
	if existing == nil {
		if existing, err = readDividendsCSV(csvPath); err != nil {
			return err
		}
	}

	merged := mergeDividends(existing, incoming)

	if err := writeDividendsBinary(binPath, merged); err != nil {
		return err
	}
	if err := writeDividendsCSV(csvPath, merged); err != nil {
		return err
	}

	s.log.Debug().Str("ticker", ticker).Int("events", len(merged)).Msg("merged dividend cache")
	return nil
}
