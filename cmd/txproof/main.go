package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/config"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "txproof",
		Usage: "Merkle tree inclusion proofs and batch transaction signatures",
		Description: `Builds padded binary Merkle trees over transaction ids, produces and checks
partial trees that reveal only chosen leaves, and signs many transactions with
one signature over the tree root.

The notary subcommands batch notarisation requests and persist every signed
batch so per-transaction signatures can be recovered later.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvTxProofVerbose},
			},
		},
		Commands: []*cli.Command{
			hashCommand(),
			treeCommand(),
			keysCommand(),
			batchCommand(),
			signatureCommand(),
			notaryCommand(),
		},
	}
}
