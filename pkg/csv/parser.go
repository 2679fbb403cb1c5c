package csv

import (
	stdcsv "encoding/csv"
	"io"
	"os"

	"github.com/cuemby/ruzudb/pkg/engineerr"
)

// Parser wraps encoding/csv with ImportConfig's delimiter/header
// settings. encoding/csv always quotes with '"' and has no separate
// escape character (it treats a doubled quote as the escape), so
// Quote/Escape are accepted in ImportConfig for parity with the
// config's other parsing knobs but only Delimiter is applied here.
type Parser struct {
	config ImportConfig
}

// NewParser creates a parser using the given configuration.
func NewParser(config ImportConfig) *Parser {
	return &Parser{config: config}
}

// DefaultParser creates a parser using DefaultImportConfig.
func DefaultParser() *Parser {
	return NewParser(DefaultImportConfig())
}

// Config returns the parser's configuration.
func (p *Parser) Config() ImportConfig {
	return p.config
}

func (p *Parser) newReader(r io.Reader) *stdcsv.Reader {
	cr := stdcsv.NewReader(r)
	cr.Comma = rune(p.config.Delimiter)
	cr.LazyQuotes = p.config.IgnoreErrors
	cr.FieldsPerRecord = -1
	return cr
}

func (p *Parser) readerFromPath(path string) (*stdcsv.Reader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, engineerr.Wrap(engineerr.KindStorage, err, "opening CSV file %s", path)
	}
	return p.newReader(f), f, nil
}

// ParseAll reads every record (skipping SkipRows and the header row if
// HasHeader is set) into memory.
func (p *Parser) ParseAll(path string) ([][]string, error) {
	r, f, err := p.readerFromPath(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := p.skipRows(r); err != nil {
		return nil, err
	}

	var records [][]string
	idx := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if p.config.IgnoreErrors {
				idx++
				continue
			}
			return nil, engineerr.Wrap(engineerr.KindParse, err, "parsing CSV row %d", idx+1)
		}
		records = append(records, record)
		idx++
	}
	return records, nil
}

// Headers returns the header row, or an error if HasHeader is false or
// the file can't be read.
func (p *Parser) Headers(path string) ([]string, error) {
	r, f, err := p.readerFromPath(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !p.config.HasHeader {
		return nil, engineerr.New(engineerr.KindValidation, "CSV file has no header row configured")
	}
	record, err := r.Read()
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindParse, err, "reading CSV headers")
	}
	return record, nil
}

func (p *Parser) skipRows(r *stdcsv.Reader) error {
	if p.config.HasHeader {
		if _, err := r.Read(); err != nil && err != io.EOF {
			return engineerr.Wrap(engineerr.KindParse, err, "reading CSV header row")
		}
	}
	for i := 0; i < p.config.SkipRows; i++ {
		if _, err := r.Read(); err != nil {
			break
		}
	}
	return nil
}

// CountLines counts the number of newline-terminated lines in a file,
// for progress-total estimation.
func CountLines(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, engineerr.Wrap(engineerr.KindStorage, err, "opening file for counting")
	}
	defer f.Close()

	var count uint64
	buf := make([]byte, 64*1024)
	for {
		n, err := f.Read(buf)
		for _, b := range buf[:n] {
			if b == '\n' {
				count++
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, engineerr.Wrap(engineerr.KindStorage, err, "reading file for counting")
		}
	}
	return count, nil
}

// FileSize returns the file's size in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, engineerr.Wrap(engineerr.KindStorage, err, "reading file metadata")
	}
	return info.Size(), nil
}
