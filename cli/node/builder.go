package node

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/jellybean"
	"go.dedis.ch/jellybean/cli"
	"go.dedis.ch/jellybean/cli/ucli"
	"golang.org/x/xerrors"
)

// ConfigFlag is the name of the global flag of the node directory.
const ConfigFlag = "config"

// DefaultDir is the default directory of the node.
const DefaultDir = ".jellybean"

// CLIBuilder is an application builder that will build a CLI to start and
// control a node.
//
// - implements node.Builder
// - implements cli.Builder
type CLIBuilder struct {
	cli.Builder

	daemonFactory DaemonFactory
	injector      Injector
	actions       *actionMap
	startFlags    []cli.Flag
	inits         []Initializer

	// The daemon is stopped by SIGINT or SIGTERM, or by the channel in tests.
	enableSignal bool
	sigs         chan os.Signal
}

// NewBuilder returns a new empty builder.
func NewBuilder(inits ...Initializer) *CLIBuilder {
	return NewBuilderWithCfg(nil, nil, inits...)
}

// NewBuilderWithCfg returns a new empty builder with specific configurations.
func NewBuilderWithCfg(sigs chan os.Signal, out io.Writer, inits ...Initializer) *CLIBuilder {
	if out == nil {
		out = os.Stdout
	}

	enabled := false

	if sigs == nil {
		sigs = make(chan os.Signal, 1)
		enabled = true
	}

	injector := NewInjector()

	actions := &actionMap{}

	factory := socketFactory{
		injector: injector,
		actions:  actions,
		out:      out,
	}

	builder := ucli.NewBuilder("jellybean", nil, cli.PathFlag{
		Name:  ConfigFlag,
		Usage: "path to the node directory",
		Value: DefaultDir,
	})

	builder.(*ucli.Builder).SetUsage("Jellybean machine ledger")

	return &CLIBuilder{
		Builder:       builder,
		injector:      injector,
		actions:       actions,
		daemonFactory: factory,
		enableSignal:  enabled,
		sigs:          sigs,
		inits:         inits,
	}
}

// SetStartFlags implements node.Builder. It appends the given flags to the list
// of flags that will be used to create the start command.
func (b *CLIBuilder) SetStartFlags(flags ...cli.Flag) {
	b.startFlags = append(b.startFlags, flags...)
}

// MakeAction implements node.Builder. It creates a CLI action from the
// template.
func (b *CLIBuilder) MakeAction(tmpl ActionTemplate) cli.Action {
	index := b.actions.Set(tmpl)

	return func(c cli.Flags) error {
		client, err := b.daemonFactory.ClientFromContext(c)
		if err != nil {
			return xerrors.Errorf("couldn't make client: %v", err)
		}

		// Encode the action ID over 2 bytes.
		id := make([]byte, 2)
		binary.LittleEndian.PutUint16(id, index)

		// The flags are transmitted to the daemon so that the action has
		// access to the same values.
		fset := make(FlagSet)

		ctx, ok := c.(*urfave.Context)
		if ok {
			lookupFlags(fset, ctx)
		}

		buf, err := json.Marshal(fset)
		if err != nil {
			return xerrors.Errorf("failed to marshal flag set: %v", err)
		}

		err = client.Send(append(id, buf...))
		if err != nil {
			return xerrors.Opaque(err)
		}

		return nil
	}
}

func lookupFlags(fset FlagSet, ctx *urfave.Context) {
	for _, ancestor := range ctx.Lineage() {
		if ancestor.Command != nil {
			fill(fset, ancestor.Command.Flags, ctx)
		}

		if ancestor.App != nil {
			fill(fset, ancestor.App.Flags, ctx)
		}
	}
}

// fill reads the value of the flags with the getters of the context, which
// look up the flag in the whole lineage.
func fill(fset FlagSet, flags []urfave.Flag, ctx *urfave.Context) {
	for _, flag := range flags {
		names := flag.Names()
		if len(names) == 0 {
			continue
		}

		name := names[0]

		_, found := fset[name]
		if found {
			continue
		}

		switch flag.(type) {
		case *urfave.StringSliceFlag:
			fset[name] = ctx.StringSlice(name)
		case *urfave.IntFlag:
			fset[name] = ctx.Int(name)
		case *urfave.BoolFlag:
			fset[name] = ctx.Bool(name)
		case *urfave.DurationFlag:
			fset[name] = ctx.Duration(name)
		case *urfave.PathFlag:
			fset[name] = ctx.Path(name)
		default:
			fset[name] = ctx.String(name)
		}
	}
}

// Build implements node.Builder. It returns the application.
func (b *CLIBuilder) Build() cli.Application {
	for _, controller := range b.inits {
		controller.SetCommands(b)
	}

	cmd := b.SetCommand("start")
	cmd.SetDescription("start the node")
	cmd.SetFlags(b.startFlags...)
	cmd.SetAction(b.start)

	return b.Builder.Build()
}

func (b *CLIBuilder) start(flags cli.Flags) error {
	if b.enableSignal {
		signal.Notify(b.sigs, syscall.SIGINT, syscall.SIGTERM)

		defer signal.Stop(b.sigs)
	}

	dir := flags.Path(ConfigFlag)
	if dir != "" {
		err := os.MkdirAll(dir, 0700)
		if err != nil {
			return xerrors.Errorf("couldn't make path: %v", err)
		}
	}

	daemon, err := b.daemonFactory.DaemonFromContext(flags)
	if err != nil {
		return xerrors.Errorf("couldn't make daemon: %v", err)
	}

	for _, controller := range b.inits {
		err = controller.OnStart(flags, b.injector)
		if err != nil {
			return xerrors.Errorf("couldn't run the controller: %v", err)
		}
	}

	// The daemon listens once every component has started.
	err = daemon.Listen()
	if err != nil {
		return xerrors.Errorf("couldn't start the daemon: %v", err)
	}

	defer daemon.Close()

	jellybean.Logger.Info().Str("dir", dir).Msg("node started")

	<-b.sigs

	// Controllers are stopped in reverse order so that the services stop
	// before the database.
	for i := len(b.inits) - 1; i >= 0; i-- {
		err = b.inits[i].OnStop(b.injector)
		if err != nil {
			return xerrors.Errorf("couldn't stop controller: %v", err)
		}
	}

	jellybean.Logger.Info().Msg("node has been stopped")

	return nil
}

// actionMap stores actions and assigns a unique index to each.
type actionMap struct {
	list []ActionTemplate
}

func (m *actionMap) Set(a ActionTemplate) uint16 {
	m.list = append(m.list, a)
	return uint16(len(m.list) - 1)
}

func (m *actionMap) Get(index uint16) ActionTemplate {
	if int(index) >= len(m.list) {
		return nil
	}

	return m.list[index]
}
