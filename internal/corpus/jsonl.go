package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ReadJSONL reads every non-empty line of a corpus file as a RawRecord.
// Lines are not validated here; Normalize reports unusable ones.
func ReadJSONL(path string) ([]RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	defer f.Close()

	return ParseJSONL(f)
}

// ParseJSONL reads records from r. Record.Line counts non-empty lines only,
// matching the positions reported in diagnostics. Lines have no length cap,
// so one oversized record cannot abort the read.
func ParseJSONL(r io.Reader) ([]RawRecord, error) {
	reader := bufio.NewReaderSize(r, 64*1024)

	var records []RawRecord
	for {
		raw, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading corpus: %w", err)
		}

		if line := bytes.TrimSpace(raw); len(line) > 0 {
			data := make(json.RawMessage, len(line))
			copy(data, line)
			records = append(records, RawRecord{Line: len(records) + 1, Data: data})
		}

		if err == io.EOF {
			return records, nil
		}
	}
}
