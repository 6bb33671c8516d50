package records

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// maxLedgerLineCapacity is the maximum buffer size for reading ledger
// lines (1MB per line).
const maxLedgerLineCapacity = 1024 * 1024

// ReadLedger reads all records from a JSONL ledger file. A missing file
// is an empty ledger.
func ReadLedger(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	var recs []Record
	scanner := bufio.NewScanner(f)

	buf := make([]byte, maxLedgerLineCapacity)
	scanner.Buffer(buf, maxLedgerLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parsing ledger line %d: %w", lineNum, err)
		}
		recs = append(recs, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	return recs, nil
}

// AppendLedger adds records to the end of a JSONL ledger file, creating
// it if needed.
func AppendLedger(path string, recs []Record) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening ledger for append: %w", err)
	}
	defer f.Close()

	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding record %s: %w", rec.Bibcode, err)
		}

		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		if _, err := f.WriteString("\n"); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}

	return nil
}

// LedgerHash computes a SHA256 hash of the ledger file's contents. A
// missing file hashes like an empty one, so a fresh checkout and an
// empty ledger compare equal.
func LedgerHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			h := sha256.Sum256([]byte{})
			return hex.EncodeToString(h[:]), nil
		}
		return "", fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("reading ledger: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
