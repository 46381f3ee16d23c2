package token

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

const cacheHeader = "name,symbol,ca,chain"

// Record is a canonical token mapping. Chain is kept as found in the source
// and normalized by the caller.
type Record struct {
	Name            string
	Symbol          string
	ContractAddress string
	Chain           string
}

// NormalizeSymbol is the cache key form of a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// scanCSV returns the first row of path whose symbol equals key. A missing
// file is a miss, not an error.
func scanCSV(path, key string) (Record, bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("open token cache: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if first {
			first = false
			if strings.Contains(strings.ToLower(line), "symbol") {
				continue
			}
		}

		rec, ok := parseRow(line)
		if !ok {
			continue
		}
		if NormalizeSymbol(rec.Symbol) == key {
			return rec, true, nil
		}
	}
	if err := sc.Err(); err != nil {
		return Record{}, false, fmt.Errorf("read token cache: %w", err)
	}
	return Record{}, false, nil
}

// parseRow splits name,symbol,ca,chain. Fields are assumed comma-free.
func parseRow(line string) (Record, bool) {
	parts := strings.Split(line, ",")
	if len(parts) < 4 {
		return Record{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	rec := Record{Name: parts[0], Symbol: parts[1], ContractAddress: parts[2], Chain: parts[3]}
	if rec.Name == "" || rec.Symbol == "" || rec.ContractAddress == "" || rec.Chain == "" {
		return Record{}, false
	}
	return rec, true
}

// appendCSV adds rec to path, writing the header first when the file is new.
func appendCSV(path string, rec Record) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open write-back cache: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat write-back cache: %w", err)
	}

	var b strings.Builder
	if info.Size() == 0 {
		b.WriteString(cacheHeader + "\n")
	}
	b.WriteString(strings.Join([]string{
		field(rec.Name), field(rec.Symbol), field(rec.ContractAddress), field(rec.Chain),
	}, ","))
	b.WriteString("\n")

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("append write-back cache: %w", err)
	}
	return nil
}

// field keeps a value on one comma-free column.
func field(s string) string {
	return strings.TrimSpace(strings.NewReplacer(",", " ", "\n", " ", "\r", " ").Replace(s))
}
