// Package config defines the configuration of a jellybean node. The
// configuration is read from a YAML file in the node directory and the flags
// of the start command overwrite its values.
package config

import (
	"os"
	"path/filepath"

	"go.dedis.ch/jellybean"
	"go.dedis.ch/jellybean/cli"
	"go.dedis.ch/jellybean/core/account"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// FileName is the name of the configuration file in the node directory.
const FileName = "config.yaml"

// Names of the flags that overwrite the configuration.
const (
	DBFlag        = "db"
	LogLevelFlag  = "log-level"
	HTTPAddrFlag  = "http"
	FaucetFlag    = "faucet"
	DrawPriceFlag = "draw-price"
)

// Config is the configuration of a node.
type Config struct {
	// DB is the path of the database, relative to the node directory.
	DB string `yaml:"db"`

	// Key is the path of the private key of the node, relative to the node
	// directory.
	Key string `yaml:"key"`

	LogLevel string `yaml:"log_level"`

	Rent account.Rent `yaml:"rent"`

	// Faucet is the base58 address allowed to airdrop lamports. The faucet is
	// disabled when empty.
	Faucet string `yaml:"faucet"`

	// DrawPrice is the price charged to the signer of every draw and split
	// between the fee accounts of the machine.
	DrawPrice uint64 `yaml:"draw_price"`

	// HTTPAddr is the listening address of the HTTP server. The server is
	// disabled when empty.
	HTTPAddr string `yaml:"http_addr"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DB:       "ledger.db",
		Key:      "private.key",
		LogLevel: "info",
		Rent:     account.DefaultRent,
		HTTPAddr: "127.0.0.1:8080",
	}
}

// Load reads the configuration file of the directory. The default
// configuration is returned when the file does not exist, and the missing
// values of the file are filled with the defaults.
func Load(dir string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if os.IsNotExist(err) {
		return cfg, nil
	}

	if err != nil {
		return cfg, xerrors.Errorf("failed to read config file: %v", err)
	}

	err = yaml.UnmarshalStrict(data, &cfg)
	if err != nil {
		return cfg, xerrors.Errorf("failed to unmarshal config: %v", err)
	}

	if cfg.Rent.LamportsPerByte == 0 {
		return cfg, xerrors.New("rent must be positive")
	}

	return cfg, nil
}

// Save writes the configuration file of the directory.
func (c Config) Save(dir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return xerrors.Errorf("failed to marshal config: %v", err)
	}

	err = os.WriteFile(filepath.Join(dir, FileName), data, 0600)
	if err != nil {
		return xerrors.Errorf("failed to write config file: %v", err)
	}

	return nil
}

// Overwrite replaces the values of the configuration with the flags that are
// set.
func (c *Config) Overwrite(flags cli.Flags) {
	if flags.String(DBFlag) != "" {
		c.DB = flags.String(DBFlag)
	}

	if flags.String(LogLevelFlag) != "" {
		c.LogLevel = flags.String(LogLevelFlag)
	}

	if flags.String(HTTPAddrFlag) != "" {
		c.HTTPAddr = flags.String(HTTPAddrFlag)
	}

	if flags.String(FaucetFlag) != "" {
		c.Faucet = flags.String(FaucetFlag)
	}

	if flags.Int(DrawPriceFlag) > 0 {
		c.DrawPrice = uint64(flags.Int(DrawPriceFlag))
	}
}

// Path returns the path of a file of the configuration, which is relative to
// the directory unless it is absolute.
func Path(dir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}

	return filepath.Join(dir, file)
}

// Apply sets the process-wide settings of the configuration.
func (c Config) Apply() error {
	err := jellybean.SetLogLevel(c.LogLevel)
	if err != nil {
		return xerrors.Errorf("invalid log level: %v", err)
	}

	return nil
}

// Flags returns the flags of the start command that overwrite the
// configuration.
func Flags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  DBFlag,
			Usage: "path to the database",
		},
		cli.StringFlag{
			Name:  LogLevelFlag,
			Usage: "level of the logs: trace, debug, info, warn or error",
		},
		cli.StringFlag{
			Name:  HTTPAddrFlag,
			Usage: "listening address of the HTTP server",
		},
		cli.StringFlag{
			Name:  FaucetFlag,
			Usage: "base58 address of the faucet",
		},
		cli.IntFlag{
			Name:  DrawPriceFlag,
			Usage: "price in lamports of a draw",
		},
	}
}
