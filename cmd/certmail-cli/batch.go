package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Mapping is one recipient entry of the send request.
type Mapping struct {
	Index int    `json:"index"`
	Email string `json:"email"`
}

// Batch is a send request assembled from a recipients CSV.
type Batch struct {
	From     string
	Subject  string
	Body     string
	Mappings []Mapping
	Files    []string
}

// readRecipients parses a CSV with an "email" column and an optional
// "attachment" column. Relative attachment paths resolve against baseDir.
// When attachments are used every row must name one, so that mapping
// index i binds the i-th uploaded file.
func readRecipients(r io.Reader, baseDir string) ([]Mapping, []string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("recipients file is empty")
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	emailCol, attachCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "email":
			emailCol = i
		case "attachment", "file":
			attachCol = i
		}
	}
	if emailCol < 0 {
		return nil, nil, fmt.Errorf("recipients file needs an email column")
	}

	var mappings []Mapping
	var files []string
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		m := Mapping{Index: len(mappings)}
		if emailCol < len(rec) {
			m.Email = strings.TrimSpace(rec[emailCol])
		}
		if attachCol >= 0 {
			path := ""
			if attachCol < len(rec) {
				path = strings.TrimSpace(rec[attachCol])
			}
			if path == "" {
				return nil, nil, fmt.Errorf("row %d has no attachment", row+1)
			}
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			files = append(files, path)
		}
		mappings = append(mappings, m)
	}
	if len(mappings) == 0 {
		return nil, nil, fmt.Errorf("recipients file has no rows")
	}
	return mappings, files, nil
}
