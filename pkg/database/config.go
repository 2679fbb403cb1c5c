package database

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/ruzudb/pkg/csv"
	"github.com/cuemby/ruzudb/pkg/engineerr"
)

// WAL sync policies: Always fsyncs after every committed transaction
// (the strongest durability, the default); Interval batches fsyncs
// across walSyncIntervalCommits commits, trading a bounded window of
// at-risk commits for fewer fsync calls on write-heavy workloads.
const (
	WALSyncAlways   = "always"
	WALSyncInterval = "interval"
)

// walSyncIntervalCommits is how many commits accumulate between fsyncs
// under WALSyncInterval.
const walSyncIntervalCommits = 100

// CSVDefaults seeds csv.ImportConfig for callers (the `ruzudb copy`
// command, primarily) that don't build one by hand, so a deployment
// can fix its CSV dialect and batching once rather than per call.
// Zero-value fields fall back to csv.DefaultImportConfig's own default.
type CSVDefaults struct {
	Delimiter string `yaml:"delimiter"`
	Quote     string `yaml:"quote"`
	Escape    string `yaml:"escape"`
	BatchSize int    `yaml:"batch_size"`
	BlockSize int    `yaml:"block_size"`
}

func defaultCSVDefaults() CSVDefaults {
	d := csv.DefaultImportConfig()
	return CSVDefaults{
		Delimiter: string(d.Delimiter),
		Quote:     string(d.Quote),
		Escape:    string(d.Escape),
		BatchSize: d.BatchSize,
		BlockSize: d.BlockSize,
	}
}

// ImportConfig builds a csv.ImportConfig from these defaults, leaving
// every option CSVDefaults doesn't cover (parallelism, mmap, error
// handling) at csv.DefaultImportConfig's own setting.
func (d CSVDefaults) ImportConfig() (csv.ImportConfig, error) {
	cfg := csv.DefaultImportConfig()
	if d.Delimiter != "" {
		if len(d.Delimiter) != 1 {
			return csv.ImportConfig{}, engineerr.New(engineerr.KindValidation, "csv_defaults.delimiter must be exactly one character")
		}
		cfg.Delimiter = d.Delimiter[0]
	}
	if d.Quote != "" {
		if len(d.Quote) != 1 {
			return csv.ImportConfig{}, engineerr.New(engineerr.KindValidation, "csv_defaults.quote must be exactly one character")
		}
		cfg.Quote = d.Quote[0]
	}
	if d.Escape != "" {
		if len(d.Escape) != 1 {
			return csv.ImportConfig{}, engineerr.New(engineerr.KindValidation, "csv_defaults.escape must be exactly one character")
		}
		cfg.Escape = d.Escape[0]
	}
	if d.BatchSize > 0 {
		cfg.BatchSize = d.BatchSize
	}
	if d.BlockSize > 0 {
		cfg.BlockSize = d.BlockSize
	}
	return cfg, nil
}

// Config controls how a database is opened and persisted.
type Config struct {
	BufferPoolSize int    `yaml:"buffer_pool_size"`
	WALChecksums   bool   `yaml:"wal_checksums"`
	WALSync        bool   `yaml:"wal_sync"`
	WALSyncPolicy  string `yaml:"wal_sync_policy"`
	ReadOnly       bool   `yaml:"read_only"`

	CSVDefaults CSVDefaults `yaml:"csv_defaults"`

	// LogLevel, applied via log.Init when non-empty. Left empty by
	// default so Open doesn't clobber logging a host process (e.g. the
	// ruzudb CLI's --log-level flag) already configured for itself.
	LogLevel string `yaml:"log_level"`

	// MetricsEnabled gates Database.MetricsHandler: false means no
	// Prometheus handler is exposed even though the counters underneath
	// are always recorded.
	MetricsEnabled bool `yaml:"metrics_enabled"`
}

const defaultBufferPoolSize = 256 * 1024 * 1024

// DefaultConfig returns the configuration new databases use unless
// overridden: a 256MB buffer pool, checksummed and always-synced WAL
// writes, read-write access, default CSV dialect, and metrics exposed.
func DefaultConfig() Config {
	return Config{
		BufferPoolSize: defaultBufferPoolSize,
		WALChecksums:   true,
		WALSync:        true,
		WALSyncPolicy:  WALSyncAlways,
		ReadOnly:       false,
		CSVDefaults:    defaultCSVDefaults(),
		MetricsEnabled: true,
	}
}

// LoadConfig reads a YAML config file, starting from DefaultConfig and
// overriding only the fields present in the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, engineerr.Wrap(engineerr.KindValidation, err, "reading config file %s", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, engineerr.Wrap(engineerr.KindValidation, err, "parsing config file %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects a WALSyncPolicy other than WALSyncAlways/WALSyncInterval
// and a malformed CSVDefaults dialect.
func (c Config) Validate() error {
	switch c.WALSyncPolicy {
	case "", WALSyncAlways, WALSyncInterval:
	default:
		return engineerr.New(engineerr.KindValidation, "wal_sync_policy must be %q or %q, got %q", WALSyncAlways, WALSyncInterval, c.WALSyncPolicy)
	}
	_, err := c.CSVDefaults.ImportConfig()
	return err
}
