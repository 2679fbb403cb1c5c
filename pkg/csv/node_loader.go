package csv

import (
	"strconv"
	"strings"

	"github.com/cuemby/ruzudb/pkg/catalog"
	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// minParallelFileSize is the smallest file size for which parallel
// loading is attempted; below it the per-block overhead isn't worth it.
const minParallelFileSize = 256 * 1024

// ProgressCallback is invoked periodically during an import with a
// snapshot of current progress.
type ProgressCallback func(ImportProgress)

// NodeLoader bulk-loads node rows from a CSV file, validating and
// reordering columns against schema and optionally interning repeated
// string values.
type NodeLoader struct {
	schema   *catalog.NodeTableSchema
	config   ImportConfig
	interner *SharedInterner
}

// NewNodeLoader creates a loader for schema, allocating its own
// interner when config.InternStrings is set.
func NewNodeLoader(schema *catalog.NodeTableSchema, config ImportConfig) *NodeLoader {
	var interner *SharedInterner
	if config.InternStrings {
		interner = NewSharedInterner()
	}
	return &NodeLoader{schema: schema, config: config, interner: interner}
}

// NewNodeLoaderWithInterner creates a loader that shares interner with
// other loaders, rather than allocating its own.
func NewNodeLoaderWithInterner(schema *catalog.NodeTableSchema, config ImportConfig, interner *SharedInterner) *NodeLoader {
	return &NodeLoader{schema: schema, config: config, interner: interner}
}

// ValidateHeaders maps each schema column to its position in the CSV
// header row, erroring if any required column is missing. The CSV may
// list columns in any order; the returned slice is in schema order.
func (l *NodeLoader) ValidateHeaders(headers []string) ([]int, error) {
	indices := make([]int, len(l.schema.Columns))
	for i, col := range l.schema.Columns {
		pos := indexOf(headers, col.Name)
		if pos < 0 {
			return nil, engineerr.New(engineerr.KindImport, "CSV missing required column %q", col.Name)
		}
		indices[i] = pos
	}
	return indices, nil
}

func indexOf(haystack []string, needle string) int {
	for i, h := range haystack {
		if h == needle {
			return i
		}
	}
	return -1
}

// ParseField converts a raw CSV field into a typed Value, using the
// loader's interner for strings if one was configured. An empty field
// always parses to Null.
func (l *NodeLoader) ParseField(field string, dataType types.DataType, rowNum uint64, colName string) (types.Value, error) {
	if field == "" {
		return types.Null, nil
	}
	switch dataType {
	case types.Int64:
		v, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return types.Null, ImportError{RowNumber: rowNum, Column: colName, Message: "invalid INT64: " + err.Error()}
		}
		return types.NewInt64(v), nil

	case types.Float32:
		v, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return types.Null, ImportError{RowNumber: rowNum, Column: colName, Message: "invalid FLOAT32: " + err.Error()}
		}
		return types.NewFloat32(float32(v)), nil

	case types.Float64:
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return types.Null, ImportError{RowNumber: rowNum, Column: colName, Message: "invalid FLOAT64: " + err.Error()}
		}
		return types.NewFloat64(v), nil

	case types.Bool:
		switch strings.ToLower(field) {
		case "true":
			return types.NewBool(true), nil
		case "false":
			return types.NewBool(false), nil
		default:
			return types.Null, ImportError{RowNumber: rowNum, Column: colName, Message: "invalid BOOL: " + field + " (expected 'true' or 'false')"}
		}

	case types.String:
		if l.interner != nil {
			return types.NewString(l.interner.Intern(field)), nil
		}
		return types.NewString(field), nil

	case types.Date:
		// Stored as its raw string form; date parsing is left to the
		// caller since no canonical calendar library is wired in yet.
		return types.NewString(field), nil

	case types.Timestamp:
		v, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return types.Null, ImportError{RowNumber: rowNum, Column: colName, Message: "invalid TIMESTAMP: " + err.Error()}
		}
		return types.NewTimestamp(v), nil

	default:
		return types.Null, ImportError{RowNumber: rowNum, Column: colName, Message: "unsupported column type"}
	}
}

func (l *NodeLoader) parseRecord(record []string, columnIndices []int, rowNum uint64) ([]types.Value, error) {
	values := make([]types.Value, len(columnIndices))
	for colIdx, csvIdx := range columnIndices {
		field := ""
		if csvIdx < len(record) {
			field = record[csvIdx]
		}
		col := l.schema.Columns[colIdx]
		v, err := l.ParseField(field, col.DataType, rowNum, col.Name)
		if err != nil {
			return nil, err
		}
		values[colIdx] = v
	}
	return values, nil
}

// Load parses path into schema-ordered rows plus an ImportResult
// summary, choosing parallel or sequential parsing based on file size
// and config.Parallel. progress, if non-nil, is invoked periodically.
func (l *NodeLoader) Load(path string, progress ProgressCallback) ([][]types.Value, ImportResult, error) {
	if err := l.config.Validate(); err != nil {
		return nil, ImportResult{}, err
	}

	fileSize, _ := FileSize(path)
	if l.config.Parallel && fileSize >= minParallelFileSize {
		return l.loadParallel(path, fileSize, progress)
	}
	return l.loadSequential(path, progress)
}

func (l *NodeLoader) loadSequential(path string, progressCb ProgressCallback) ([][]types.Value, ImportResult, error) {
	parser := NewParser(l.config)
	p := NewImportProgress()
	p.Start()

	if total, err := CountLines(path); err == nil && total > 0 {
		t := total - 1
		p.RowsTotal = &t
	}

	headers, err := parser.Headers(path)
	if err != nil {
		return nil, ImportResult{}, err
	}
	columnIndices, err := l.ValidateHeaders(headers)
	if err != nil {
		return nil, ImportResult{}, err
	}

	r, f, err := parser.readerFromPath(path)
	if err != nil {
		return nil, ImportResult{}, err
	}
	defer f.Close()
	if err := parser.skipRows(r); err != nil {
		return nil, ImportResult{}, err
	}

	var rows [][]types.Value
	rowNum := uint64(1)
	var batchBytes uint64

	for {
		record, rerr := r.Read()
		if rerr != nil {
			break
		}
		rowNum++
		for _, f := range record {
			batchBytes += uint64(len(f)) + 1
		}

		values, perr := l.parseRecord(record, columnIndices, rowNum)
		if perr != nil {
			ie, _ := perr.(ImportError)
			if l.config.IgnoreErrors {
				p.AddError(ie)
			} else {
				return nil, ImportResult{}, perr
			}
		} else {
			rows = append(rows, values)
		}

		if len(rows) > 0 && len(rows)%l.config.BatchSize == 0 {
			p.Update(uint64(l.config.BatchSize), batchBytes)
			batchBytes = 0
			if progressCb != nil {
				progressCb(*p)
			}
		}
	}

	remaining := uint64(len(rows)) % uint64(l.config.BatchSize)
	if remaining > 0 || batchBytes > 0 {
		p.Update(remaining, batchBytes)
	}
	if progressCb != nil {
		progressCb(*p)
	}

	recordImportMetrics(l.schema.Name, p)
	return rows, ResultFromProgress(p), nil
}

func (l *NodeLoader) loadParallel(path string, fileSize int64, progressCb ProgressCallback) ([][]types.Value, ImportResult, error) {
	p := NewImportProgress()
	p.Start()

	reader, err := OpenMmapReader(path, l.config)
	if err != nil {
		return nil, ImportResult{}, err
	}
	defer reader.Close()
	data := reader.Bytes()

	parser := NewParser(l.config)
	headers, err := parser.Headers(path)
	if err != nil {
		return nil, ImportResult{}, err
	}
	columnIndices, err := l.ValidateHeaders(headers)
	if err != nil {
		return nil, ImportResult{}, err
	}

	avgRowSize := estimateAvgRowSize(data)
	total := uint64(fileSize) / uint64(avgRowSize)
	p.RowsTotal = &total

	if progressCb != nil {
		progressCb(*p)
	}

	parseRow := func(record []string, rowNum uint64) ([]types.Value, error) {
		return l.parseRecord(record, columnIndices, rowNum)
	}

	rows, errs, bytesProcessed, err := ParallelReadAll(data, l.config, parseRow)
	if err != nil {
		return nil, ImportResult{}, err
	}

	p.RowsProcessed = uint64(len(rows))
	p.RowsFailed = uint64(len(errs))
	p.BytesRead = bytesProcessed
	p.Errors = errs

	if progressCb != nil {
		progressCb(*p)
	}

	recordImportMetrics(l.schema.Name, p)
	return rows, ResultFromProgress(p), nil
}

// LoadStreaming parses path in config.BatchSize-row batches, invoking
// batchCallback for each batch instead of accumulating all rows in
// memory. Memory use is bounded by BatchSize regardless of file size.
func (l *NodeLoader) LoadStreaming(path string, batchCallback func([][]types.Value) error, progressCb ProgressCallback) (ImportResult, error) {
	if err := l.config.Validate(); err != nil {
		return ImportResult{}, err
	}

	parser := NewParser(l.config)
	p := NewImportProgress()
	p.Start()

	if total, err := CountLines(path); err == nil && total > 0 {
		t := total - 1
		p.RowsTotal = &t
	}

	headers, err := parser.Headers(path)
	if err != nil {
		return ImportResult{}, err
	}
	columnIndices, err := l.ValidateHeaders(headers)
	if err != nil {
		return ImportResult{}, err
	}

	r, f, err := parser.readerFromPath(path)
	if err != nil {
		return ImportResult{}, err
	}
	defer f.Close()
	if err := parser.skipRows(r); err != nil {
		return ImportResult{}, err
	}

	batch := make([][]types.Value, 0, l.config.BatchSize)
	rowNum := uint64(1)
	var batchBytes uint64

	for {
		record, rerr := r.Read()
		if rerr != nil {
			break
		}
		rowNum++
		for _, field := range record {
			batchBytes += uint64(len(field)) + 1
		}

		values, perr := l.parseRecord(record, columnIndices, rowNum)
		if perr != nil {
			ie, _ := perr.(ImportError)
			if l.config.IgnoreErrors {
				p.AddError(ie)
			} else {
				return ImportResult{}, perr
			}
		} else {
			batch = append(batch, values)
		}

		if len(batch) >= l.config.BatchSize {
			batchLen := uint64(len(batch))
			if err := batchCallback(batch); err != nil {
				return ImportResult{}, err
			}
			batch = make([][]types.Value, 0, l.config.BatchSize)
			p.Update(batchLen, batchBytes)
			batchBytes = 0
			if progressCb != nil {
				progressCb(*p)
			}
		}
	}

	if len(batch) > 0 {
		batchLen := uint64(len(batch))
		if err := batchCallback(batch); err != nil {
			return ImportResult{}, err
		}
		p.Update(batchLen, batchBytes)
	}
	if progressCb != nil {
		progressCb(*p)
	}

	recordImportMetrics(l.schema.Name, p)
	return ResultFromProgress(p), nil
}

// estimateAvgRowSize samples up to 64KB from the start of data to
// estimate the average row length, for progress-total estimation.
func estimateAvgRowSize(data []byte) int {
	sampleSize := len(data)
	if sampleSize > 64*1024 {
		sampleSize = 64 * 1024
	}
	sample := data[:sampleSize]
	lines := 0
	for _, b := range sample {
		if b == '\n' {
			lines++
		}
	}
	if lines == 0 {
		return 100
	}
	return len(sample) / lines
}
