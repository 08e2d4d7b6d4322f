package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/codec"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/config"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/logger"
	"go.uber.org/zap"
)

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Encoding of proofs and signatures: json or cbor (cbor is printed as 0x hex)",
		Value:   codec.FormatJSON.String(),
		EnvVars: []string{config.EnvTxProofFormat},
	}
}

func algorithmFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "alg",
		Usage:   "Digest algorithm",
		Value:   string(digest.DefaultAlgorithm),
		EnvVars: []string{config.EnvTxProofDigestAlgorithm},
	}
}

func newCLILogger(c *cli.Context) (*zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

func digestServiceFromFlags(c *cli.Context) (*digest.DigestService, error) {
	return digest.NewDigestService(digest.Algorithm(c.String("alg")))
}

func parseHashes(values []string) ([]digest.SecureHash, error) {
	hashes := make([]digest.SecureHash, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			h, err := digest.Parse(part)
			if err != nil {
				return nil, err
			}
			hashes = append(hashes, h)
		}
	}
	return hashes, nil
}

// readInput reads a file, or stdin for "-".
func readInput(c *cli.Context, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(c.App.Reader)
	}
	return os.ReadFile(path)
}

// decodeEncoded accepts JSON as-is and CBOR as raw bytes or 0x hex.
func decodeEncoded(format codec.Format, data []byte, v any) error {
	if format == codec.FormatCBOR {
		trimmed := bytes.TrimSpace(data)
		if bytes.HasPrefix(trimmed, []byte("0x")) {
			raw, err := hexutil.Decode(string(trimmed))
			if err != nil {
				return fmt.Errorf("invalid cbor hex: %w", err)
			}
			data = raw
		}
	}
	return codec.Unmarshal(format, data, v)
}

// writeEncoded writes v to --out if set, otherwise prints it. CBOR printed to
// the terminal is hex encoded.
func writeEncoded(c *cli.Context, format codec.Format, v any) error {
	data, err := codec.Marshal(format, v)
	if err != nil {
		return err
	}
	if out := c.String("out"); out != "" {
		return os.WriteFile(out, data, 0o644)
	}
	if format == codec.FormatCBOR {
		_, err = fmt.Fprintln(c.App.Writer, hexutil.Encode(data))
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}

func outFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "out",
		Aliases: []string{"o"},
		Usage:   "Write the encoded output to this file instead of stdout",
	}
}
