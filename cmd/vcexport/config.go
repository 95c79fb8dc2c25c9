package main

import "time"

const (
	defaultBindHost         = "127.0.0.1"
	defaultAPIPort          = 3000
	defaultOutputDir        = "output"
	defaultPerfWindow       = 60 // minutes
	defaultQueryTimeout     = 30 * time.Second
	defaultPerfBatchSize    = 10
	defaultPerfConcurrency  = 3
	defaultInsecureSkipTLS  = false
	defaultStatisticsOnExit = true
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Server   string `mapstructure:"server"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Insecure bool   `mapstructure:"insecure"`

	OutputDir  string `mapstructure:"output-dir"`
	KeepCSV    bool   `mapstructure:"keep-csv"`
	VMSkipFile string `mapstructure:"vm-skip-file"`
	MaxCount   int    `mapstructure:"max-count"`

	Statistics      bool `mapstructure:"statistics"`
	PerfInterval    int  `mapstructure:"perf-interval"`
	PerfBatchSize   int  `mapstructure:"perf-batch-size"`
	PerfConcurrency int  `mapstructure:"perf-concurrency"`

	DBPath       string        `mapstructure:"db-path"`
	QueryTimeout time.Duration `mapstructure:"query-timeout"`

	APIEnabled bool   `mapstructure:"api-enabled"`
	APIPort    int    `mapstructure:"api-port"`
	APIAddr    string `mapstructure:"api-addr"`

	UploadEnabled  bool   `mapstructure:"upload-enabled"`
	BucketURL      string `mapstructure:"bucket-url"`
	S3Endpoint     string `mapstructure:"s3-endpoint"`
	S3Region       string `mapstructure:"s3-region"`
	S3AccessKey    string `mapstructure:"s3-access-key"`
	S3SecretKey    string `mapstructure:"s3-secret-key"`
	S3SessionToken string `mapstructure:"s3-session-token"`
	S3UseSSL       bool   `mapstructure:"s3-use-ssl"`

	ConfigPath string `mapstructure:"-"` // not from config file
}
