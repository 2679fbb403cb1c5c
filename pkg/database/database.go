// Package database wires together catalog, page storage, buffer pool,
// WAL and checkpointing into the top-level embeddable database handle.
package database

import (
	"bytes"
	"encoding/gob"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cuemby/ruzudb/pkg/bufferpool"
	"github.com/cuemby/ruzudb/pkg/catalog"
	"github.com/cuemby/ruzudb/pkg/dbheader"
	"github.com/cuemby/ruzudb/pkg/engineerr"
	"github.com/cuemby/ruzudb/pkg/log"
	"github.com/cuemby/ruzudb/pkg/metrics"
	"github.com/cuemby/ruzudb/pkg/multipage"
	"github.com/cuemby/ruzudb/pkg/nodetable"
	"github.com/cuemby/ruzudb/pkg/page"
	"github.com/cuemby/ruzudb/pkg/reltable"
	"github.com/cuemby/ruzudb/pkg/types"
	"github.com/cuemby/ruzudb/pkg/wal"
)

const walFileName = "wal.log"
const dataFileName = "data.ruzu"

// Database is a single embeddable ruzudb instance: its schema, its
// resident tables, and (for a persistent database) the page store, WAL
// and checkpointer backing them.
type Database struct {
	mu sync.RWMutex

	Catalog   *catalog.Catalog
	Tables    map[string]*nodetable.NodeTable
	RelTables map[string]*reltable.RelTable

	dbPath string
	config Config

	disk         *page.DiskManager
	pool         *bufferpool.BufferPool
	header       *dbheader.Header
	walWriter    *wal.Writer
	checkpointer *wal.Checkpointer

	dirty       bool
	nextTx      atomic.Uint64
	commitCount atomic.Uint64
}

// New creates an in-memory-only database with no backing file or WAL.
func New() *Database {
	return &Database{
		Catalog:      catalog.New(),
		Tables:       make(map[string]*nodetable.NodeTable),
		RelTables:    make(map[string]*reltable.RelTable),
		config:       DefaultConfig(),
		checkpointer: wal.NewCheckpointer(),
	}
}

// Open opens (creating if necessary) a persistent database at path,
// replaying any WAL records from an unclean shutdown before returning.
func Open(path string, config Config) (*Database, error) {
	if config.LogLevel != "" {
		log.Init(log.Config{Level: log.Level(config.LogLevel)})
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, engineerr.Wrap(engineerr.KindStorage, err, "creating database directory %s", path)
	}

	dataPath := filepath.Join(path, dataFileName)
	_, statErr := os.Stat(dataPath)
	isNew := statErr != nil

	disk, err := page.Open(dataPath)
	if err != nil {
		return nil, err
	}

	numFrames := config.BufferPoolSize / page.Size
	if numFrames < 16 {
		numFrames = 16
	}
	pool := bufferpool.New(disk, numFrames)

	db := &Database{
		Catalog:      catalog.New(),
		Tables:       make(map[string]*nodetable.NodeTable),
		RelTables:    make(map[string]*reltable.RelTable),
		dbPath:       path,
		config:       config,
		disk:         disk,
		pool:         pool,
		checkpointer: wal.NewCheckpointer(),
	}

	if isNew {
		if _, err := disk.AllocatePage(); err != nil { // page 0: header
			return nil, err
		}
		catalogRange, err := disk.AllocatePageRange(1)
		if err != nil {
			return nil, err
		}
		metadataRange, err := disk.AllocatePageRange(1)
		if err != nil {
			return nil, err
		}
		relMetadataRange, err := disk.AllocatePageRange(1)
		if err != nil {
			return nil, err
		}
		h := dbheader.New(catalogRange, metadataRange, relMetadataRange)
		db.header = &h
		if err := dbheader.Write(pool, h); err != nil {
			return nil, err
		}
		if err := pool.FlushAll(); err != nil {
			return nil, err
		}
	} else {
		h, migrated, err := dbheader.Read(pool)
		if err != nil {
			return nil, err
		}
		db.header = &h
		if migrated {
			log.Logger.Warn().Str("path", path).Msg("database header is an older version, migrating in place")
			if db.header.RelMetadataRange.NumPages == 0 {
				r, err := disk.AllocatePageRange(1)
				if err != nil {
					return nil, err
				}
				db.header.RelMetadataRange = r
			}
		}
		if err := db.loadAll(); err != nil {
			return nil, err
		}
	}

	walPath := filepath.Join(path, walFileName)
	_, walStatErr := os.Stat(walPath)
	walExisted := walStatErr == nil

	writer, err := wal.NewWriter(walPath, config.WALChecksums, db.header.DatabaseID)
	if err != nil {
		return nil, err
	}
	db.walWriter = writer

	if walExisted && !isNew {
		if err := db.replayWAL(walPath); err != nil {
			return nil, err
		}
	}

	return db, nil
}

func (db *Database) loadAll() error {
	catalogBytes, err := multipage.Read(db.pool, db.header.CatalogRange)
	if err != nil {
		return err
	}
	if len(catalogBytes) > 0 {
		cat, err := catalog.Decode(catalogBytes)
		if err != nil {
			return err
		}
		db.Catalog = cat
	}

	nodeBlob, err := multipage.Read(db.pool, db.header.MetadataRange)
	if err != nil {
		return err
	}
	if len(nodeBlob) > 0 {
		var snapshot map[string]nodetable.Data
		if err := gob.NewDecoder(bytes.NewReader(nodeBlob)).Decode(&snapshot); err != nil {
			return engineerr.Wrap(engineerr.KindStorage, err, "decoding node table snapshot")
		}
		for name, data := range snapshot {
			schema, ok := db.Catalog.Tables[name]
			if !ok {
				continue
			}
			table, err := nodetable.FromData(schema, data)
			if err != nil {
				return err
			}
			db.Tables[name] = table
		}
	}

	relBlob, err := multipage.Read(db.pool, db.header.RelMetadataRange)
	if err != nil {
		return err
	}
	if len(relBlob) > 0 {
		var snapshot map[string]reltable.Data
		if err := gob.NewDecoder(bytes.NewReader(relBlob)).Decode(&snapshot); err != nil {
			return engineerr.Wrap(engineerr.KindStorage, err, "decoding relationship table snapshot")
		}
		for name, data := range snapshot {
			schema, ok := db.Catalog.RelTables[name]
			if !ok {
				continue
			}
			rel, err := reltable.FromData(schema, data)
			if err != nil {
				return err
			}
			db.RelTables[name] = rel
		}
	}

	// Any schema the catalog knows about but that had no persisted
	// snapshot (created after the last checkpoint with no rows written,
	// or otherwise absent) still needs a live, empty table rather than
	// being missing entirely.
	for name, schema := range db.Catalog.Tables {
		if _, ok := db.Tables[name]; !ok {
			db.Tables[name] = nodetable.New(schema)
		}
	}
	for name, schema := range db.Catalog.RelTables {
		if _, ok := db.RelTables[name]; !ok {
			db.RelTables[name] = reltable.New(schema)
		}
	}
	return nil
}

func (db *Database) replayWAL(walPath string) error {
	reader, err := wal.NewReader(walPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	replayer := wal.NewReplayer()
	result, err := replayer.Analyze(reader)
	if err != nil {
		return err
	}
	log.Logger.Info().
		Int("committed", result.TransactionsCommitted).
		Int("rolled_back", result.TransactionsRolledBack).
		Msg("replaying write-ahead log")

	for _, rec := range replayer.RecordsToApply() {
		db.applyWALRecord(rec)
	}
	return nil
}

// applyWALRecord re-applies one committed WAL record during recovery.
// Row-level errors are ignored: the WAL only ever records writes that
// already passed validation once, at the time they were first made.
func (db *Database) applyWALRecord(rec wal.Record) {
	switch rec.RecordType {
	case wal.TableInsertion:
		name, ok := db.Catalog.TableNameByID(rec.Payload.TableID)
		if !ok {
			return
		}
		table, ok := db.Tables[name]
		if !ok {
			return
		}
		_, _ = table.InsertBatch(rec.Payload.Rows, rec.Payload.Columns)
	case wal.RelInsertion:
		name, ok := db.Catalog.TableNameByID(rec.Payload.TableID)
		if !ok {
			return
		}
		relTable, ok := db.RelTables[name]
		if !ok {
			schema, ok := db.Catalog.RelTables[name]
			if !ok {
				return
			}
			relTable = reltable.New(schema)
			db.RelTables[name] = relTable
		}
		relTable.Insert(rec.Payload.Src, rec.Payload.Dst, rec.Payload.Props)
	default:
		// NodeDeletion/NodeUpdate/RelDeletion/Checkpoint carry no
		// in-memory-state replay step yet.
	}
}

func (db *Database) nextTxID() uint64 {
	return db.nextTx.Add(1) - 1
}

func (db *Database) logged() bool {
	return db.walWriter != nil
}

// logMutation writes a Begin/payload/Commit triplet for a single-record
// transaction, syncing afterward if the config requests it.
func (db *Database) logMutation(recordType wal.RecordType, payload wal.Payload) error {
	if !db.logged() {
		return nil
	}
	txID := db.nextTxID()
	if _, err := db.walWriter.WriteRecord(wal.Record{RecordType: wal.BeginTransaction, TransactionID: txID}); err != nil {
		return err
	}
	if _, err := db.walWriter.WriteRecord(wal.Record{RecordType: recordType, TransactionID: txID, Payload: payload}); err != nil {
		return err
	}
	if _, err := db.walWriter.WriteRecord(wal.Record{RecordType: wal.Commit, TransactionID: txID}); err != nil {
		return err
	}
	if !db.config.WALSync {
		return nil
	}
	if db.shouldSyncNow() {
		return db.walWriter.Sync()
	}
	return nil
}

// shouldSyncNow applies config.WALSyncPolicy on top of the WALSync
// master switch: WALSyncAlways fsyncs every commit, WALSyncInterval
// only every walSyncIntervalCommits commits, bounding a crash's
// at-risk window to that many commits in exchange for fewer fsyncs.
func (db *Database) shouldSyncNow() bool {
	if db.config.WALSyncPolicy != WALSyncInterval {
		return true
	}
	return db.commitCount.Add(1)%walSyncIntervalCommits == 0
}

// CreateNodeTable registers a new node table and allocates its
// in-memory storage.
func (db *Database) CreateNodeTable(name string, columns []catalog.ColumnDef, primaryKey []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	schema, err := db.Catalog.CreateTable(name, columns, primaryKey)
	if err != nil {
		return err
	}
	db.Tables[name] = nodetable.New(schema)
	db.dirty = true
	return nil
}

// CreateRelTable registers a new relationship table and allocates its
// in-memory storage.
func (db *Database) CreateRelTable(name, srcTable, dstTable string, columns []catalog.ColumnDef, direction catalog.Direction) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	schema, err := db.Catalog.CreateRelTable(name, srcTable, dstTable, columns, direction)
	if err != nil {
		return err
	}
	db.RelTables[name] = reltable.New(schema)
	db.dirty = true
	return nil
}

// InsertNode inserts one row into tableName, logging it to the WAL
// before acknowledging success.
func (db *Database) InsertNode(tableName string, row map[string]types.Value) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	table, ok := db.Tables[tableName]
	if !ok {
		return engineerr.New(engineerr.KindSchema, "no such table %q", tableName)
	}
	if err := table.Insert(row); err != nil {
		return err
	}

	schema := table.Schema
	columns := make([]string, len(schema.Columns))
	values := make([]types.Value, len(schema.Columns))
	for i, col := range schema.Columns {
		columns[i] = col.Name
		values[i] = row[col.Name]
	}
	db.dirty = true
	return db.logMutation(wal.TableInsertion, wal.Payload{
		TableID: schema.TableID,
		Columns: columns,
		Rows:    [][]types.Value{values},
	})
}

// InsertRel inserts one edge into relTableName and returns its
// relationship ID, logging it to the WAL before acknowledging success.
func (db *Database) InsertRel(relTableName string, src, dst uint64, props []types.Value) (uint64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	relTable, ok := db.RelTables[relTableName]
	if !ok {
		return 0, engineerr.New(engineerr.KindSchema, "no such relationship table %q", relTableName)
	}
	relID := relTable.Insert(src, dst, props)

	db.dirty = true
	if err := db.logMutation(wal.RelInsertion, wal.Payload{
		TableID: relTable.Schema.TableID,
		Src:     src,
		Dst:     dst,
		Props:   props,
	}); err != nil {
		return relID, err
	}
	return relID, nil
}

// persistAll snapshots the catalog and every table into their
// reserved header page ranges, reallocating ranges that have outgrown
// their current capacity.
func (db *Database) persistAll() error {
	catalogBytes, err := db.Catalog.Encode()
	if err != nil {
		return err
	}

	nodeSnapshot := make(map[string]nodetable.Data, len(db.Tables))
	for name, table := range db.Tables {
		nodeSnapshot[name] = table.ToData()
	}
	var nodeBuf bytes.Buffer
	if err := gob.NewEncoder(&nodeBuf).Encode(nodeSnapshot); err != nil {
		return engineerr.Wrap(engineerr.KindStorage, err, "encoding node table snapshot")
	}

	relSnapshot := make(map[string]reltable.Data, len(db.RelTables))
	for name, table := range db.RelTables {
		relSnapshot[name] = table.ToData()
	}
	var relBuf bytes.Buffer
	if err := gob.NewEncoder(&relBuf).Encode(relSnapshot); err != nil {
		return engineerr.Wrap(engineerr.KindStorage, err, "encoding relationship table snapshot")
	}

	newCatalogRange, err := db.reallocateIfNeeded(db.header.CatalogRange, catalogBytes)
	if err != nil {
		return err
	}
	if err := multipage.Write(db.pool, newCatalogRange, catalogBytes); err != nil {
		return err
	}

	newMetadataRange, err := db.reallocateIfNeeded(db.header.MetadataRange, nodeBuf.Bytes())
	if err != nil {
		return err
	}
	if err := multipage.Write(db.pool, newMetadataRange, nodeBuf.Bytes()); err != nil {
		return err
	}

	newRelMetadataRange, err := db.reallocateIfNeeded(db.header.RelMetadataRange, relBuf.Bytes())
	if err != nil {
		return err
	}
	if err := multipage.Write(db.pool, newRelMetadataRange, relBuf.Bytes()); err != nil {
		return err
	}

	db.header.CatalogRange = newCatalogRange
	db.header.MetadataRange = newMetadataRange
	db.header.RelMetadataRange = newRelMetadataRange
	return dbheader.Write(db.pool, *db.header)
}

func (db *Database) reallocateIfNeeded(current page.Range, data []byte) (page.Range, error) {
	need := int64(len(data)) + 4
	if need <= current.ByteCapacity() {
		return current, nil
	}
	numPages := uint32((need + page.Size - 1) / page.Size)
	if numPages == 0 {
		numPages = 1
	}
	return db.disk.AllocatePageRange(numPages)
}

// Checkpoint persists every in-memory table to disk, then truncates
// the WAL since its records are now redundant with the page store.
func (db *Database) Checkpoint() (uint64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.pool == nil {
		return 0, engineerr.New(engineerr.KindStorage, "cannot checkpoint an in-memory-only database")
	}
	if err := db.persistAll(); err != nil {
		return 0, err
	}
	db.dirty = false
	return db.checkpointer.Checkpoint(db.pool, db.walWriter)
}

// MetricsHandler returns the package-wide Prometheus scrape handler, and
// ok=false if this database's config has metrics disabled. The counters
// themselves are always recorded regardless; this only gates whether a
// caller is handed a handler to mount on its own HTTP server.
func (db *Database) MetricsHandler() (http.Handler, bool) {
	if !db.config.MetricsEnabled {
		return nil, false
	}
	return metrics.Handler(), true
}

// Close checkpoints (if dirty and persistent) and releases all file
// handles.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.pool != nil && db.dirty {
		if err := db.persistAll(); err != nil {
			return err
		}
		db.dirty = false
		if _, err := db.checkpointer.Checkpoint(db.pool, db.walWriter); err != nil {
			return err
		}
	}
	if db.walWriter != nil {
		if err := db.walWriter.Close(); err != nil {
			return err
		}
	}
	if db.disk != nil {
		return db.disk.Close()
	}
	return nil
}
