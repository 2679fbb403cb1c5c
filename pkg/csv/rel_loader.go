package csv

import (
	"strconv"
	"strings"

	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// PropertyColumn names one relationship property column and its type.
type PropertyColumn struct {
	Name     string
	DataType types.DataType
}

// ParsedRelationship is one relationship row parsed from CSV: the
// primary-key values of its endpoints plus its property values in
// PropertyColumn order.
type ParsedRelationship struct {
	FromKey    types.Value
	ToKey      types.Value
	Properties []types.Value
}

// RelLoader bulk-loads relationships from a CSV file, resolving each
// row's endpoint key columns (FROM/TO by default) and a fixed set of
// property columns.
type RelLoader struct {
	fromColumn      string
	toColumn        string
	propertyColumns []PropertyColumn
	config          ImportConfig
	interner        *SharedInterner
}

// NewRelLoader creates a loader using the given FROM/TO column names.
func NewRelLoader(fromColumn, toColumn string, propertyColumns []PropertyColumn, config ImportConfig) *RelLoader {
	var interner *SharedInterner
	if config.InternStrings {
		interner = NewSharedInterner()
	}
	return &RelLoader{
		fromColumn:      fromColumn,
		toColumn:        toColumn,
		propertyColumns: propertyColumns,
		config:          config,
		interner:        interner,
	}
}

// metricsLabel identifies this loader's endpoint columns for metrics,
// since a RelLoader has no table name of its own.
func (l *RelLoader) metricsLabel() string {
	return l.fromColumn + "->" + l.toColumn
}

// NewRelLoaderDefaultColumns creates a loader using the conventional
// "FROM"/"TO" column names.
func NewRelLoaderDefaultColumns(propertyColumns []PropertyColumn, config ImportConfig) *RelLoader {
	return NewRelLoader("FROM", "TO", propertyColumns, config)
}

// NewRelLoaderWithInterner creates a loader that shares interner with
// other loaders, rather than allocating its own.
func NewRelLoaderWithInterner(fromColumn, toColumn string, propertyColumns []PropertyColumn, config ImportConfig, interner *SharedInterner) *RelLoader {
	return &RelLoader{
		fromColumn:      fromColumn,
		toColumn:        toColumn,
		propertyColumns: propertyColumns,
		config:          config,
		interner:        interner,
	}
}

// ValidateHeaders locates the FROM, TO and property columns within
// headers, erroring if any is missing. The FROM/TO match is
// case-insensitive; property columns match exactly.
func (l *RelLoader) ValidateHeaders(headers []string) (fromIdx, toIdx int, propIndices []int, err error) {
	fromIdx = indexOfFold(headers, l.fromColumn)
	if fromIdx < 0 {
		return 0, 0, nil, engineerr.New(engineerr.KindImport, "CSV missing required %q column", l.fromColumn)
	}
	toIdx = indexOfFold(headers, l.toColumn)
	if toIdx < 0 {
		return 0, 0, nil, engineerr.New(engineerr.KindImport, "CSV missing required %q column", l.toColumn)
	}
	propIndices = make([]int, len(l.propertyColumns))
	for i, col := range l.propertyColumns {
		pos := indexOf(headers, col.Name)
		if pos < 0 {
			return 0, 0, nil, engineerr.New(engineerr.KindImport, "CSV missing property column %q", col.Name)
		}
		propIndices[i] = pos
	}
	return fromIdx, toIdx, propIndices, nil
}

func indexOfFold(haystack []string, needle string) int {
	for i, h := range haystack {
		if strings.EqualFold(h, needle) {
			return i
		}
	}
	return -1
}

// parseRelationshipField parses a relationship property field. Unlike
// NodeLoader.ParseField, BOOL here accepts the wider "1"/"yes"/"t" and
// "0"/"no"/"f" spellings in addition to "true"/"false", matching how
// relationship property CSVs are commonly hand-authored.
func parseRelationshipField(field string, dataType types.DataType, rowNum uint64, colName string, interner *SharedInterner) (types.Value, error) {
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
		case "true", "1", "yes", "t":
			return types.NewBool(true), nil
		case "false", "0", "no", "f":
			return types.NewBool(false), nil
		default:
			return types.Null, ImportError{RowNumber: rowNum, Column: colName, Message: "invalid BOOL: " + field}
		}

	case types.String:
		if interner != nil {
			return types.NewString(interner.Intern(field)), nil
		}
		return types.NewString(field), nil

	case types.Date:
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

func (l *RelLoader) internKey(field string) types.Value {
	if l.interner != nil {
		return types.NewString(l.interner.Intern(field))
	}
	return types.NewString(field)
}

func (l *RelLoader) parseRecord(record []string, fromIdx, toIdx int, propIndices []int, rowNum uint64) (ParsedRelationship, error) {
	fromField := fieldAt(record, fromIdx)
	if fromField == "" {
		return ParsedRelationship{}, ImportError{RowNumber: rowNum, Column: l.fromColumn, Message: "FROM key cannot be empty"}
	}
	toField := fieldAt(record, toIdx)
	if toField == "" {
		return ParsedRelationship{}, ImportError{RowNumber: rowNum, Column: l.toColumn, Message: "TO key cannot be empty"}
	}

	properties := make([]types.Value, len(propIndices))
	for i, csvIdx := range propIndices {
		field := fieldAt(record, csvIdx)
		col := l.propertyColumns[i]
		v, err := parseRelationshipField(field, col.DataType, rowNum, col.Name, l.interner)
		if err != nil {
			return ParsedRelationship{}, err
		}
		properties[i] = v
	}

	return ParsedRelationship{
		FromKey:    l.internKey(fromField),
		ToKey:      l.internKey(toField),
		Properties: properties,
	}, nil
}

func fieldAt(record []string, idx int) string {
	if idx < len(record) {
		return record[idx]
	}
	return ""
}

// Load parses path into relationships plus an ImportResult summary,
// choosing parallel or sequential parsing based on file size and
// config.Parallel.
func (l *RelLoader) Load(path string, progress ProgressCallback) ([]ParsedRelationship, ImportResult, error) {
	if err := l.config.Validate(); err != nil {
		return nil, ImportResult{}, err
	}

	fileSize, _ := FileSize(path)
	if l.config.Parallel && fileSize >= minParallelFileSize {
		return l.loadParallel(path, fileSize, progress)
	}
	return l.loadSequential(path, progress)
}

func (l *RelLoader) loadSequential(path string, progressCb ProgressCallback) ([]ParsedRelationship, ImportResult, error) {
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
	fromIdx, toIdx, propIndices, err := l.ValidateHeaders(headers)
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

	var rels []ParsedRelationship
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

		rel, perr := l.parseRecord(record, fromIdx, toIdx, propIndices, rowNum)
		if perr != nil {
			ie, _ := perr.(ImportError)
			if l.config.IgnoreErrors {
				p.AddError(ie)
			} else {
				return nil, ImportResult{}, perr
			}
		} else {
			rels = append(rels, rel)
		}

		if len(rels) > 0 && len(rels)%l.config.BatchSize == 0 {
			p.Update(uint64(l.config.BatchSize), batchBytes)
			batchBytes = 0
			if progressCb != nil {
				progressCb(*p)
			}
		}
	}

	remaining := uint64(len(rels)) % uint64(l.config.BatchSize)
	if remaining > 0 || batchBytes > 0 {
		p.Update(remaining, batchBytes)
	}
	if progressCb != nil {
		progressCb(*p)
	}

	recordImportMetrics(l.metricsLabel(), p)
	return rels, ResultFromProgress(p), nil
}

func (l *RelLoader) loadParallel(path string, fileSize int64, progressCb ProgressCallback) ([]ParsedRelationship, ImportResult, error) {
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
	fromIdx, toIdx, propIndices, err := l.ValidateHeaders(headers)
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
		rel, err := l.parseRecord(record, fromIdx, toIdx, propIndices, rowNum)
		if err != nil {
			return nil, err
		}
		values := make([]types.Value, 0, 2+len(rel.Properties))
		values = append(values, rel.FromKey, rel.ToKey)
		values = append(values, rel.Properties...)
		return values, nil
	}

	rawRows, errs, bytesProcessed, err := ParallelReadAll(data, l.config, parseRow)
	if err != nil {
		return nil, ImportResult{}, err
	}

	rels := make([]ParsedRelationship, len(rawRows))
	for i, values := range rawRows {
		var from, to types.Value = types.Null, types.Null
		var props []types.Value
		if len(values) > 0 {
			from = values[0]
		}
		if len(values) > 1 {
			to = values[1]
		}
		if len(values) > 2 {
			props = values[2:]
		}
		rels[i] = ParsedRelationship{FromKey: from, ToKey: to, Properties: props}
	}

	p.RowsProcessed = uint64(len(rels))
	p.RowsFailed = uint64(len(errs))
	p.BytesRead = bytesProcessed
	p.Errors = errs

	if progressCb != nil {
		progressCb(*p)
	}

	recordImportMetrics(l.metricsLabel(), p)
	return rels, ResultFromProgress(p), nil
}

// LoadStreaming parses path in config.BatchSize-relationship batches,
// invoking batchCallback for each batch instead of accumulating all
// relationships in memory.
func (l *RelLoader) LoadStreaming(path string, batchCallback func([]ParsedRelationship) error, progressCb ProgressCallback) (ImportResult, error) {
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
	fromIdx, toIdx, propIndices, err := l.ValidateHeaders(headers)
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

	batch := make([]ParsedRelationship, 0, l.config.BatchSize)
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

		rel, perr := l.parseRecord(record, fromIdx, toIdx, propIndices, rowNum)
		if perr != nil {
			ie, _ := perr.(ImportError)
			if l.config.IgnoreErrors {
				p.AddError(ie)
			} else {
				return ImportResult{}, perr
			}
		} else {
			batch = append(batch, rel)
		}

		if len(batch) >= l.config.BatchSize {
			batchLen := uint64(len(batch))
			if err := batchCallback(batch); err != nil {
				return ImportResult{}, err
			}
			batch = make([]ParsedRelationship, 0, l.config.BatchSize)
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

	recordImportMetrics(l.metricsLabel(), p)
	return ResultFromProgress(p), nil
}
