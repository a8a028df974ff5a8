package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/govsnap/internal/model"
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
	var printConfig bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/govsnap/config.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.BoolVar(&printConfig, "print-config", false, "print the effective configuration as YAML and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("govsnap - Snapshot governance exporter\n")
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

	if printConfig {
		if err := writeConfig(os.Stdout, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

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
	v.SetEnvPrefix("GOVSNAP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("endpoint", defaultEndpoint)
	v.SetDefault("spaces", model.DefaultSpaces)
	v.SetDefault("namespace-delay", defaultNamespaceDelay)
	v.SetDefault("request-timeout", defaultRequestTimeout)
	v.SetDefault("proposal-page-size", defaultProposalPageSize)
	v.SetDefault("vote-page-size", defaultVotePageSize)
	v.SetDefault("retry-max-attempts", defaultRetry.MaxAttempts)
	v.SetDefault("retry-backoff-base", defaultRetry.BackoffBase)
	v.SetDefault("retry-backoff-max", defaultRetry.MaxBackoff)
	v.SetDefault("output-dir", defaultOutputDir)
	v.SetDefault("db-path", "")
	v.SetDefault("db-snapshot", false)
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("keep-last", 0)
	v.SetDefault("bucket-url", "")
	v.SetDefault("s3-endpoint", "")
	v.SetDefault("s3-region", defaultS3Region)
	v.SetDefault("s3-access-key", "")
	v.SetDefault("s3-secret-key", "")
	v.SetDefault("s3-session-token", "")
	v.SetDefault("s3-use-ssl", true)
	v.SetDefault("api-enabled", false)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("api-addr", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "govsnap", "config.yml"))
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
	if _, err := os.Stat(v.ConfigFileUsed()); err == nil {
		cfg.ConfigPath = v.ConfigFileUsed()
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.OutputDir = expandHome(cfg.OutputDir, home)
	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.APIPort))
	}

	return cfg, nil
}

func (c *appConfig) validate() error {
	spaces := make([]string, 0, len(c.Spaces))
	for _, s := range c.Spaces {
		if s = strings.TrimSpace(s); s != "" {
			spaces = append(spaces, s)
		}
	}
	c.Spaces = spaces

	switch {
	case strings.TrimSpace(c.Endpoint) == "":
		return fmt.Errorf("endpoint is empty")
	case len(c.Spaces) == 0:
		return fmt.Errorf("spaces is empty")
	case c.ProposalPageSize <= 0:
		return fmt.Errorf("invalid proposal-page-size: %d", c.ProposalPageSize)
	case c.VotePageSize <= 0:
		return fmt.Errorf("invalid vote-page-size: %d", c.VotePageSize)
	case c.NamespaceDelay < 0:
		return fmt.Errorf("invalid namespace-delay: %s", c.NamespaceDelay)
	case c.RetryMaxAttempts <= 0:
		return fmt.Errorf("invalid retry-max-attempts: %d", c.RetryMaxAttempts)
	case c.KeepLast < 0:
		return fmt.Errorf("invalid keep-last: %d", c.KeepLast)
	case c.APIPort <= 0 || c.APIPort > 65535:
		return fmt.Errorf("invalid api-port: %d", c.APIPort)
	}
	return nil
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// writeConfig dumps the effective configuration. Secrets are omitted.
func writeConfig(w io.Writer, cfg appConfig) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
