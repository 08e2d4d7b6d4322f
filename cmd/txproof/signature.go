package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/codec"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signature"
)

func signatureCommand() *cli.Command {
	return &cli.Command{
		Name:  "signature",
		Usage: "Inspect transaction signatures",
		Subcommands: []*cli.Command{
			{
				Name:  "verify",
				Usage: "Verify that a signature covers a transaction id",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringFlag{
						Name:     "signature",
						Aliases:  []string{"s"},
						Usage:    "Encoded transaction signature file, or - for stdin",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "tx",
						Aliases:  []string{"t"},
						Usage:    "Transaction id digest",
						Required: true,
					},
				},
				Action: signatureVerifyAction,
			},
		},
	}
}

func signatureVerifyAction(c *cli.Context) error {
	format, err := codec.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	txID, err := digest.Parse(c.String("tx"))
	if err != nil {
		return fmt.Errorf("invalid transaction id: %w", err)
	}
	data, err := readInput(c, c.String("signature"))
	if err != nil {
		return fmt.Errorf("failed to read signature: %w", err)
	}
	var sig signature.TransactionSignature
	if err := decodeEncoded(format, data, &sig); err != nil {
		return err
	}

	err = signature.Verify(txID, &sig)
	switch {
	case err == nil:
		_, err = fmt.Fprintf(c.App.Writer, "valid: signed by %s\n", sig.By().String())
		return err
	case errors.Is(err, signature.ErrTransactionNotCovered):
		return cli.Exit(fmt.Sprintf("not covered: %v", err), 2)
	case errors.Is(err, crypto.ErrSignatureVerification):
		return cli.Exit(fmt.Sprintf("invalid: %v", err), 1)
	default:
		return err
	}
}
