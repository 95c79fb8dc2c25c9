package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var showVersion bool
	var noStatistics bool
	var perfInterval int
	var maxCount int
	var keepCSV bool
	var outputDir string

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/vcexport/config.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.BoolVar(&noStatistics, "no-statistics", false, "skip performance statistics collection")
	flag.IntVar(&perfInterval, "perf-interval", 0, "performance window in minutes (overrides config)")
	flag.IntVar(&maxCount, "max-count", 0, "cap the number of VMs processed, 0 = all")
	flag.BoolVar(&keepCSV, "keep-csv", false, "keep loose CSV files after archiving")
	flag.StringVar(&outputDir, "output-dir", "", "directory for CSV files and the archive")
	flag.Parse()

	if showVersion {
		fmt.Printf("vcexport - vCenter Inventory Export\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Flags beat config file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "no-statistics":
			cfg.Statistics = !noStatistics
		case "perf-interval":
			cfg.PerfInterval = perfInterval
		case "max-count":
			cfg.MaxCount = maxCount
		case "keep-csv":
			cfg.KeepCSV = keepCSV
		case "output-dir":
			cfg.OutputDir = outputDir
		}
	})

	if err := runExport(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("VCEXPORT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("insecure", defaultInsecureSkipTLS)
	v.SetDefault("output-dir", defaultOutputDir)
	v.SetDefault("keep-csv", false)
	v.SetDefault("max-count", 0)
	v.SetDefault("statistics", defaultStatisticsOnExit)
	v.SetDefault("perf-interval", defaultPerfWindow)
	v.SetDefault("perf-batch-size", defaultPerfBatchSize)
	v.SetDefault("perf-concurrency", defaultPerfConcurrency)
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("api-enabled", false)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("upload-enabled", false)
	v.SetDefault("s3-use-ssl", true)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		defaultConfigPath := filepath.Join(home, ".config", "vcexport", "config.yml")
		v.SetConfigFile(defaultConfigPath)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.Server == "" {
		return cfg, fmt.Errorf("server is required (set server in config or VCEXPORT_SERVER)")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return cfg, fmt.Errorf("username and password are required")
	}
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}

	// Expand ~ in paths
	for _, p := range []*string{&cfg.OutputDir, &cfg.DBPath, &cfg.VMSkipFile} {
		if strings.HasPrefix(*p, "~/") {
			*p = filepath.Join(home, (*p)[2:])
		}
	}

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.APIPort))
	}

	return cfg, nil
}
