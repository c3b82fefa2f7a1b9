// Package ucli implements the cli builder over the urfave/cli library.
//
// Every flag can also be set through an environment variable named after the
// application and the flag, so that the flag "mint-authority" of the
// application "jellybean" is read from JELLYBEAN_MINT_AUTHORITY when it is not
// given on the command line.
package ucli

import (
	"fmt"
	"strings"

	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/jellybean/cli"
)

// Builder is the root of the application.
//
// - implements cli.Builder
type Builder struct {
	commands []*cmdBuilder
	name     string
	usage    string
	action   cli.Action
	flags    []cli.Flag
}

// NewBuilder returns a new builder. The action of the root command can be nil
// and the flags are global to every command.
func NewBuilder(name string, action cli.Action, flags ...cli.Flag) cli.Builder {
	return &Builder{
		name:   name,
		action: action,
		flags:  flags,
	}
}

// SetUsage sets the one line description of the application.
func (b *Builder) SetUsage(usage string) {
	b.usage = usage
}

// Build implements cli.Builder.
func (b Builder) Build() cli.Application {
	env := envPrefix(b.name)

	app := &urfave.App{
		Name:     b.name,
		Usage:    b.usage,
		Commands: buildCommands(env, b.commands),
		Action:   makeAction(b.action),
		Flags:    buildFlags(env, b.flags),
	}

	app.Setup()

	return app
}

// SetCommand implements cli.Builder.
func (b *Builder) SetCommand(name string) cli.CommandBuilder {
	cmd := &cmdBuilder{name: name}
	b.commands = append(b.commands, cmd)

	return cmd
}

// cmdBuilder collects the definition of a command until the application is
// built.
//
// - implements cli.CommandBuilder
type cmdBuilder struct {
	name        string
	description string
	action      cli.Action
	flags       []cli.Flag
	subcommands []*cmdBuilder
}

// SetDescription implements cli.CommandBuilder.
func (b *cmdBuilder) SetDescription(value string) {
	b.description = value
}

// SetFlags implements cli.CommandBuilder.
func (b *cmdBuilder) SetFlags(flags ...cli.Flag) {
	b.flags = flags
}

// SetAction implements cli.CommandBuilder.
func (b *cmdBuilder) SetAction(action cli.Action) {
	b.action = action
}

// SetSubCommand implements cli.CommandBuilder.
func (b *cmdBuilder) SetSubCommand(name string) cli.CommandBuilder {
	sub := &cmdBuilder{name: name}
	b.subcommands = append(b.subcommands, sub)

	return sub
}

func buildCommands(env string, cmds []*cmdBuilder) []*urfave.Command {
	commands := make([]*urfave.Command, len(cmds))

	for i, cmd := range cmds {
		commands[i] = &urfave.Command{
			Name:        cmd.name,
			Usage:       cmd.description,
			Action:      makeAction(cmd.action),
			Flags:       buildFlags(env, cmd.flags),
			Subcommands: buildCommands(env, cmd.subcommands),
		}
	}

	return commands
}

// buildFlags converts the definitions into urfave flags. It panics on an
// unknown kind of flag.
func buildFlags(env string, flags []cli.Flag) []urfave.Flag {
	res := make([]urfave.Flag, len(flags))

	for i, f := range flags {
		switch e := f.(type) {
		case cli.StringFlag:
			res[i] = &urfave.StringFlag{
				Name:     e.Name,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    e.Value,
				EnvVars:  envVars(env, e.Name),
			}
		case cli.StringSliceFlag:
			res[i] = &urfave.StringSliceFlag{
				Name:     e.Name,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    urfave.NewStringSlice(e.Value...),
				EnvVars:  envVars(env, e.Name),
			}
		case cli.PathFlag:
			res[i] = &urfave.PathFlag{
				Name:     e.Name,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    e.Value,
				EnvVars:  envVars(env, e.Name),
			}
		case cli.DurationFlag:
			res[i] = &urfave.DurationFlag{
				Name:     e.Name,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    e.Value,
				EnvVars:  envVars(env, e.Name),
			}
		case cli.IntFlag:
			res[i] = &urfave.IntFlag{
				Name:     e.Name,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    e.Value,
				EnvVars:  envVars(env, e.Name),
			}
		case cli.BoolFlag:
			res[i] = &urfave.BoolFlag{
				Name:     e.Name,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    e.Value,
				EnvVars:  envVars(env, e.Name),
			}
		default:
			panic(fmt.Sprintf("flag type '%T' not supported", f))
		}
	}

	return res
}

func envPrefix(name string) string {
	return envName(name) + "_"
}

func envVars(prefix, flag string) []string {
	return []string{prefix + envName(flag)}
}

func envName(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name))
}

func makeAction(action cli.Action) urfave.ActionFunc {
	if action == nil {
		return nil
	}

	return func(ctx *urfave.Context) error {
		return action(ctx)
	}
}
