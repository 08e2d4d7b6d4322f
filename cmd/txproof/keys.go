package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/config"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signer/inMemorySigner"
)

func schemeFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "scheme",
		Usage:   "Signature scheme: secp256k1, secp256r1 (p256) or ed25519",
		Value:   crypto.DefaultSignatureScheme.String(),
		EnvVars: []string{config.EnvTxProofSignatureScheme},
	}
}

type generatedKey struct {
	Scheme     crypto.SignatureScheme `json:"scheme"`
	PrivateKey string                 `json:"privateKey"`
	PublicKey  crypto.PublicKey       `json:"publicKey"`
	Address    string                 `json:"address,omitempty"`
}

func keysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "Manage signing keys",
		Subcommands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "Generate a private key for the in-memory signer",
				Flags:  []cli.Flag{schemeFlag()},
				Action: keysGenerateAction,
			},
		},
	}
}

func keysGenerateAction(c *cli.Context) error {
	l, err := newCLILogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	scheme, err := crypto.ParseSignatureScheme(c.String("scheme"))
	if err != nil {
		return err
	}
	keyHex, err := inMemorySigner.GeneratePrivateKeyHex(scheme)
	if err != nil {
		return err
	}
	s, err := inMemorySigner.NewInMemorySignerFromHex(scheme, keyHex, l)
	if err != nil {
		return err
	}

	out := generatedKey{Scheme: scheme, PrivateKey: keyHex, PublicKey: s.Public()}
	if scheme == crypto.ECDSA_SECP256K1_KECCAK256 {
		address, err := s.Public().Address()
		if err != nil {
			return err
		}
		out.Address = address.Hex()
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}
