package csv

import (
	"bytes"
	"runtime"
	"sort"
	"sync"

	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// BlockAssignment describes one byte-range slice of the file that a
// single worker goroutine parses independently.
type BlockAssignment struct {
	BlockIdx    int
	StartOffset int64
	EndOffset   int64
	IsFirst     bool
}

// NewBlockAssignment builds the idx'th assignment for a file of
// fileSize bytes split into blockSize-byte blocks.
func NewBlockAssignment(idx, blockSize int, fileSize int64, isFirst bool) BlockAssignment {
	start := int64(idx) * int64(blockSize)
	end := start + int64(blockSize)
	if end > fileSize {
		end = fileSize
	}
	return BlockAssignment{BlockIdx: idx, StartOffset: start, EndOffset: end, IsFirst: isFirst}
}

// Len returns the block's byte length.
func (b BlockAssignment) Len() int64 { return b.EndOffset - b.StartOffset }

// IsEmpty reports whether the block has no bytes.
func (b BlockAssignment) IsEmpty() bool { return b.Len() == 0 }

// BlockResult holds the rows and errors produced by parsing one block.
type BlockResult struct {
	BlockIdx       int
	Rows           [][]types.Value
	Errors         []ImportError
	BytesProcessed uint64
	StartRowNumber uint64
}

// ThreadLocalErrors collects per-block errors from concurrent workers
// under a single mutex, for deterministic in-order aggregation after
// all workers finish.
type ThreadLocalErrors struct {
	mu            sync.Mutex
	errorsByBlock map[int][]ImportError
}

// NewThreadLocalErrors creates an empty collector.
func NewThreadLocalErrors() *ThreadLocalErrors {
	return &ThreadLocalErrors{errorsByBlock: make(map[int][]ImportError)}
}

// AddErrors records errs under blockIdx.
func (t *ThreadLocalErrors) AddErrors(blockIdx int, errs []ImportError) {
	if len(errs) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorsByBlock[blockIdx] = append(t.errorsByBlock[blockIdx], errs...)
}

// CollectOrdered returns every recorded error, ordered by block index.
func (t *ThreadLocalErrors) CollectOrdered() []ImportError {
	t.mu.Lock()
	defer t.mu.Unlock()
	indices := make([]int, 0, len(t.errorsByBlock))
	for idx := range t.errorsByBlock {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	var all []ImportError
	for _, idx := range indices {
		all = append(all, t.errorsByBlock[idx]...)
	}
	return all
}

// RowParser parses one raw CSV record into typed values, given its
// 1-indexed row number for error reporting. A non-nil error is always
// an ImportError value.
type RowParser func(record []string, rowNumber uint64) ([]types.Value, error)

// SeekToRowStart returns the byte offset of the first complete row at
// or after offset: offset itself when a row begins there (the byte
// before it is a newline), otherwise the position right after the next
// newline, or the end of data if none is found. offset==0 is returned
// unchanged since the first block always starts at a row boundary.
func SeekToRowStart(data []byte, offset int) int {
	if offset == 0 {
		return 0
	}
	if offset <= len(data) && data[offset-1] == '\n' {
		return offset
	}
	for i := offset; i < len(data); i++ {
		if data[i] == '\n' {
			return i + 1
		}
	}
	return len(data)
}

// HasQuotedNewline conservatively reports whether data contains a
// newline inside a quoted field, which parallel block splitting cannot
// safely handle (a quoted newline means a logical row may span a block
// boundary in a way raw seeking can't detect).
func HasQuotedNewline(data []byte, quoteChar byte) bool {
	inQuotes := false
	for _, b := range data {
		switch {
		case b == quoteChar:
			inQuotes = !inQuotes
		case b == '\n' && inQuotes:
			return true
		}
	}
	return false
}

// EstimateRowOffsets approximates each block's starting row number
// from the average row length sampled in the first block, since exact
// boundaries aren't known without a full scan.
func EstimateRowOffsets(data []byte, blocks []BlockAssignment, config ImportConfig) []uint64 {
	if len(blocks) == 0 {
		return nil
	}

	sampleSize := int(blocks[0].Len())
	if sampleSize > 64*1024 {
		sampleSize = 64 * 1024
	}
	if sampleSize > len(data) {
		sampleSize = len(data)
	}
	sample := data[:sampleSize]

	var lines uint64
	for _, b := range sample {
		if b == '\n' {
			lines++
		}
	}
	avgBytesPerRow := 100.0
	if lines > 0 {
		avgBytesPerRow = float64(len(sample)) / float64(lines)
	}

	offsets := make([]uint64, len(blocks))
	for i, block := range blocks {
		if block.IsFirst {
			if config.HasHeader {
				offsets[i] = 1
			}
			continue
		}
		offsets[i] = uint64(float64(block.StartOffset) / avgBytesPerRow)
	}
	return offsets
}

func numWorkerThreads(requested int, numBlocks int) int {
	available := runtime.NumCPU()
	threads := requested
	if threads <= 0 {
		threads = available
	}
	if threads > numBlocks {
		threads = numBlocks
	}
	if threads < 1 {
		threads = 1
	}
	return threads
}

// ParallelReadAll splits data into config.BlockSize blocks and parses
// them concurrently via parseRow, returning rows in original file
// order plus aggregated errors and total bytes processed. Quoted
// newlines within a block make safe splitting impossible and abort
// with an error; callers should fall back to sequential parsing in
// that case.
func ParallelReadAll(data []byte, config ImportConfig, parseRow RowParser) ([][]types.Value, []ImportError, uint64, error) {
	if len(data) == 0 {
		return nil, nil, 0, nil
	}

	fileSize := int64(len(data))
	numBlocks := (len(data) + config.BlockSize - 1) / config.BlockSize
	if numBlocks < 1 {
		numBlocks = 1
	}

	blocks := make([]BlockAssignment, numBlocks)
	for i := range blocks {
		blocks[i] = NewBlockAssignment(i, config.BlockSize, fileSize, i == 0)
	}
	rowOffsets := EstimateRowOffsets(data, blocks, config)

	results := make([]BlockResult, numBlocks)
	errs := make([]error, numBlocks)

	threads := numWorkerThreads(config.NumThreads, numBlocks)
	sem := make(chan struct{}, threads)
	var wg sync.WaitGroup
	for i, block := range blocks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, block BlockAssignment) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = processBlock(data, block, config, parseRow, rowOffsets[i])
		}(i, block)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, nil, 0, err
		}
	}

	var allRows [][]types.Value
	var allErrors []ImportError
	var totalBytes uint64
	for _, r := range results {
		allRows = append(allRows, r.Rows...)
		allErrors = append(allErrors, r.Errors...)
		totalBytes += r.BytesProcessed
	}
	return allRows, allErrors, totalBytes, nil
}

func processBlock(data []byte, block BlockAssignment, config ImportConfig, parseRow RowParser, rowOffset uint64) (BlockResult, error) {
	start := int(block.StartOffset)
	end := int(block.EndOffset)

	actualStart := start
	if !block.IsFirst {
		actualStart = SeekToRowStart(data, start)
	}
	if actualStart >= len(data) || actualStart >= end {
		return BlockResult{BlockIdx: block.BlockIdx, StartRowNumber: rowOffset}, nil
	}

	// The read window extends one full block past this block's own
	// EndOffset so a row that straddles the boundary can still be read
	// to completion by whichever block reached its start first; the
	// loop below, not the window size, is what stops a block from also
	// reparsing rows that belong to the next block.
	sliceEnd := end + config.BlockSize
	if sliceEnd > len(data) {
		sliceEnd = len(data)
	}
	blockData := data[actualStart:sliceEnd]

	if HasQuotedNewline(blockData, config.Quote) {
		return BlockResult{}, engineerr.New(engineerr.KindQuotedNewlineInParallel, "quoted newline in parallel CSV mode near row %d", rowOffset)
	}

	reader := NewParser(config)
	cr := reader.newReader(bytes.NewReader(blockData))

	currentRow := rowOffset
	hasHeader := block.IsFirst && config.HasHeader
	if hasHeader {
		if _, err := cr.Read(); err != nil {
			return BlockResult{BlockIdx: block.BlockIdx, StartRowNumber: rowOffset}, nil
		}
		currentRow++
	}

	// ownEnd is this block's own EndOffset expressed relative to
	// blockData: once a record's start offset reaches it, that record
	// belongs in the next block's territory and this worker stops,
	// leaving it for the next block's own SeekToRowStart to pick up.
	ownEnd := int64(end - actualStart)

	var rows [][]types.Value
	var errors []ImportError
	for {
		if cr.InputOffset() >= ownEnd {
			break
		}
		record, err := cr.Read()
		if err != nil {
			break
		}
		currentRow++
		values, rowErr := parseRow(record, currentRow)
		if rowErr != nil {
			if config.IgnoreErrors {
				if ie, ok := rowErr.(ImportError); ok {
					errors = append(errors, ie)
				} else {
					errors = append(errors, ImportError{RowNumber: currentRow, Message: rowErr.Error()})
				}
				continue
			}
			return BlockResult{}, engineerr.Wrap(engineerr.KindImport, rowErr, "importing row %d", currentRow)
		}
		rows = append(rows, values)
	}

	bytesProcessed := uint64(len(blockData))
	if blockLen := uint64(block.Len()); bytesProcessed > blockLen {
		bytesProcessed = blockLen
	}

	return BlockResult{
		BlockIdx:       block.BlockIdx,
		Rows:           rows,
		Errors:         errors,
		BytesProcessed: bytesProcessed,
		StartRowNumber: rowOffset,
	}, nil
}
