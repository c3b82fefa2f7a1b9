// Package main implements the jellybean node and its command line.
//
// A node runs as a daemon in its directory and the other commands reach it
// through a UNIX socket of that directory:
//
//	jellybean --config ~/.jellybean start --http 127.0.0.1:8080
//	jellybean key new --save alice.key
//	jellybean bank airdrop --to <address> --amount 1000000000
//	jellybean asset collection --uri https://example.com/c.json --max-supply 100
//	jellybean machine initialize --fee-account <address>:10000
//	jellybean machine add-item --address <machine> --asset <collection>
//	jellybean machine start-sale --address <machine>
//	jellybean machine draw --address <machine> --buyer <address>
//	jellybean machine claim --address <machine> --buyer <address> --index 0
package main

import (
	"fmt"
	"io"
	"os"

	"go.dedis.ch/jellybean/cli/node"
	asset "go.dedis.ch/jellybean/contracts/asset/controller"
	bank "go.dedis.ch/jellybean/contracts/bank/controller"
	machine "go.dedis.ch/jellybean/contracts/machine/controller"
	ledger "go.dedis.ch/jellybean/core/ordering/serial/controller"
	"go.dedis.ch/jellybean/crypto/ed25519/command"
	http "go.dedis.ch/jellybean/server/http/controller"
)

type config struct {
	Channel chan os.Signal
	Writer  io.Writer
}

func main() {
	err := run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	return runWithCfg(args, config{Writer: os.Stdout})
}

// runWithCfg builds the application. The ledger comes first so that the
// contracts find its components when the node starts.
func runWithCfg(args []string, cfg config) error {
	builder := node.NewBuilderWithCfg(cfg.Channel, cfg.Writer,
		ledger.NewController(),
		bank.NewController(),
		asset.NewController(),
		machine.NewController(),
		http.NewController(),
	)

	command.Initializer{}.SetCommands(builder)

	return builder.Build().Run(args)
}
