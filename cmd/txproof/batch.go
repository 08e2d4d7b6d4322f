package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/eigenx-txproof-go/internal/bootstrap"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/codec"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/config"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signature"
)

type signedTransaction struct {
	TxID      digest.SecureHash               `json:"txId" cbor:"1,keyasint"`
	Signature *signature.TransactionSignature `json:"signature" cbor:"2,keyasint"`
}

type signedBatch struct {
	Root         digest.SecureHash   `json:"root" cbor:"1,keyasint"`
	Transactions []signedTransaction `json:"transactions" cbor:"2,keyasint"`
}

func signerFlags() []cli.Flag {
	return []cli.Flag{
		schemeFlag(),
		&cli.StringFlag{
			Name:    "signer",
			Usage:   "Signer type: inMemory or awsKms",
			Value:   string(config.SignerTypeInMemory),
			EnvVars: []string{config.EnvTxProofSignerType},
		},
		&cli.StringFlag{
			Name:    "private-key",
			Usage:   "Hex private key for the inMemory signer; empty generates an ephemeral key",
			EnvVars: []string{config.EnvTxProofPrivateKey},
		},
		&cli.StringFlag{
			Name:    "aws-region",
			Usage:   "AWS region of the KMS key",
			EnvVars: []string{config.EnvTxProofAWSRegion},
		},
		&cli.StringFlag{
			Name:    "aws-kms-key-id",
			Usage:   "KMS key id or alias for the awsKms signer",
			EnvVars: []string{config.EnvTxProofAWSKMSKeyID},
		},
		&cli.IntFlag{
			Name:    "platform-version",
			Usage:   "Platform version bound into every signature",
			Value:   config.DefaultPlatformVersion,
			EnvVars: []string{config.EnvTxProofPlatformVersion},
		},
	}
}

func batchCommand() *cli.Command {
	flags := append(signerFlags(),
		algorithmFlag(),
		formatFlag(),
		outFlag(),
		&cli.StringSliceFlag{
			Name:     "tx",
			Aliases:  []string{"t"},
			Usage:    "Transaction id digest (repeatable or comma separated)",
			Required: true,
		},
	)

	return &cli.Command{
		Name:  "batch",
		Usage: "Sign many transactions at once",
		Subcommands: []*cli.Command{
			{
				Name:   "sign",
				Usage:  "Sign the Merkle root over --tx ids and print a signature per transaction",
				Flags:  flags,
				Action: batchSignAction,
			},
		},
	}
}

func batchSignAction(c *cli.Context) error {
	l, err := newCLILogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	format, err := codec.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	cfg, err := parseTxProofConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	ds, err := cfg.DigestService()
	if err != nil {
		return err
	}
	ids, err := parseHashes(c.StringSlice("tx"))
	if err != nil {
		return err
	}

	s, err := bootstrap.NewSigner(c.Context, cfg, l)
	if err != nil {
		return err
	}

	metadata := signature.SignatureMetadata{PlatformVersion: cfg.PlatformVersion}
	batch, err := signature.SignBatch(c.Context, ds, ids, s, metadata)
	if err != nil {
		return err
	}

	out := signedBatch{Root: batch.Root()}
	seen := make(map[digest.SecureHash]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		sig, err := batch.ForParticipant(id)
		if err != nil {
			return err
		}
		out.Transactions = append(out.Transactions, signedTransaction{TxID: id, Signature: sig})
	}

	l.Sugar().Debugw("Signed batch", "root", batch.Root().String(), "transactions", len(out.Transactions))
	return writeEncoded(c, format, out)
}
