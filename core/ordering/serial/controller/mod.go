// Package controller implements the initializer of the ledger of a node. It
// opens the database, creates the ordering service and provides the commands
// to submit transactions to it.
package controller

import (
	"go.dedis.ch/jellybean"
	"go.dedis.ch/jellybean/cli"
	"go.dedis.ch/jellybean/cli/config"
	"go.dedis.ch/jellybean/cli/node"
	"go.dedis.ch/jellybean/core/execution/native"
	"go.dedis.ch/jellybean/core/ordering/serial"
	"go.dedis.ch/jellybean/core/store/kv"
	"go.dedis.ch/jellybean/core/validation/simple"
	"go.dedis.ch/jellybean/crypto"
	"go.dedis.ch/jellybean/crypto/ed25519"
	"go.dedis.ch/jellybean/crypto/loader"
	"golang.org/x/xerrors"
)

const (
	// KeyFlag is the flag name containing the path to the private key of the
	// signer, relative to the node directory.
	KeyFlag = "key"

	argsFlag = "args"
)

// KeySetting is the flag of the commands submitting a transaction.
var KeySetting = cli.StringFlag{
	Name:  KeyFlag,
	Usage: "path to the private key of the signer, the node key by default",
}

// miniController is the initializer of the ledger.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new controller for the ledger.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It sets the flags of the
// configuration and the commands to interact with the ledger.
func (miniController) SetCommands(builder node.Builder) {
	builder.SetStartFlags(config.Flags()...)

	cmd := builder.SetCommand("ledger")
	cmd.SetDescription("interact with the ledger")

	sub := cmd.SetSubCommand("add")
	sub.SetDescription("sign and submit a transaction")
	sub.SetFlags(cli.StringSliceFlag{
		Name:     argsFlag,
		Usage:    "list of key-value pairs",
		Required: true,
	}, KeySetting)
	sub.SetAction(builder.MakeAction(addAction{}))

	sub = cmd.SetSubCommand("history")
	sub.SetDescription("list the ordered transactions")
	sub.SetAction(builder.MakeAction(historyAction{}))
}

// OnStart implements node.Initializer. It loads the configuration, opens the
// database and injects the components of the ledger. The contracts are
// registered later on by their own initializers.
func (miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	dir := flags.Path(node.ConfigFlag)

	cfg, err := config.Load(dir)
	if err != nil {
		return xerrors.Errorf("config: %v", err)
	}

	cfg.Overwrite(flags)

	err = cfg.Apply()
	if err != nil {
		return xerrors.Errorf("config: %v", err)
	}

	signer, err := loadNodeSigner(config.Path(dir, cfg.Key))
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	db, err := kv.New(config.Path(dir, cfg.DB))
	if err != nil {
		return xerrors.Errorf("db: %v", err)
	}

	exec := native.NewExecution()

	srvc, err := serial.NewService(db, simple.NewService(exec))
	if err != nil {
		db.Close()
		return xerrors.Errorf("service: %v", err)
	}

	inj.Inject(cfg)
	inj.Inject(signer)
	inj.Inject(db)
	inj.Inject(exec)
	inj.Inject(srvc)

	jellybean.Logger.Info().
		Str("db", config.Path(dir, cfg.DB)).
		Str("key", config.Path(dir, cfg.Key)).
		Msg("ledger opened")

	return nil
}

// OnStop implements node.Initializer. It closes the database.
func (miniController) OnStop(inj node.Injector) error {
	var db kv.DB
	err := inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = db.Close()
	if err != nil {
		return xerrors.Errorf("failed to close db: %v", err)
	}

	return nil
}

// generator creates the private key of a node that has none.
//
// - implements loader.Generator
type generator struct {
	newFn func() crypto.Signer
}

// Generate implements loader.Generator. It returns the serialized data of a new
// signer.
func (g generator) Generate() ([]byte, error) {
	data, err := g.newFn().MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal signer: %v", err)
	}

	return data, nil
}

func loadNodeSigner(path string) (crypto.Signer, error) {
	data, err := loader.NewFileLoader(path).LoadOrCreate(generator{newFn: ed25519.NewSigner})
	if err != nil {
		return nil, xerrors.Errorf("failed to load key: %v", err)
	}

	signer, err := ed25519.NewSignerFromBytes(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal signer: %v", err)
	}

	return signer, nil
}
