package accounts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/raketrapport/raket/internal/model"
)

// Load reads a balances CSV from disk.
func Load(path string) (model.Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Ledger{}, fmt.Errorf("opening balances: %w", err)
	}
	defer f.Close()

	ledger, err := ReadBalances(f)
	if err != nil {
		return model.Ledger{}, fmt.Errorf("reading balances: %w", err)
	}
	return ledger, nil
}

// Save writes a ledger's balances to a CSV file, creating parent directories.
func Save(path string, ledger model.Ledger) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating balances dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating balances file: %w", err)
	}
	defer f.Close()

	if err := WriteBalances(f, ledger); err != nil {
		return fmt.Errorf("writing balances: %w", err)
	}
	return nil
}
