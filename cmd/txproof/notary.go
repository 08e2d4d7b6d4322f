package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Layr-Labs/eigenx-txproof-go/internal/bootstrap"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/config"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/notary"
)

func persistenceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "persistence",
			Usage:   "Batch store: memory, badger or redis",
			Value:   string(config.PersistenceTypeMemory),
			EnvVars: []string{config.EnvTxProofPersistenceType},
		},
		&cli.StringFlag{
			Name:    "badger-path",
			Usage:   "Badger data directory",
			Value:   config.DefaultBadgerPath,
			EnvVars: []string{config.EnvTxProofBadgerPath},
		},
		&cli.StringFlag{
			Name:    "redis-address",
			Usage:   "Redis host:port",
			EnvVars: []string{config.EnvTxProofRedisAddress},
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password",
			EnvVars: []string{config.EnvTxProofRedisPassword},
		},
		&cli.IntFlag{
			Name:    "redis-db",
			Usage:   "Redis database number (0-15)",
			EnvVars: []string{config.EnvTxProofRedisDB},
		},
		&cli.StringFlag{
			Name:    "redis-key-prefix",
			Usage:   "Prefix for every Redis key",
			EnvVars: []string{config.EnvTxProofRedisKeyPrefix},
		},
	}
}

func batchingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "max-batch-size",
			Usage:   "Sign as soon as this many requests are pending",
			Value:   config.DefaultMaxBatchSize,
			EnvVars: []string{config.EnvTxProofMaxBatchSize},
		},
		&cli.DurationFlag{
			Name:    "batch-timeout",
			Usage:   "Sign a non-empty batch this long after its first request",
			Value:   config.DefaultBatchTimeout,
			EnvVars: []string{config.EnvTxProofBatchTimeout},
		},
		&cli.Float64Flag{
			Name:    "signing-rate",
			Usage:   "Maximum batch signatures per second (0 is unlimited)",
			EnvVars: []string{config.EnvTxProofSigningRate},
		},
	}
}

func notaryCommand() *cli.Command {
	runFlags := append(signerFlags(), algorithmFlag())
	runFlags = append(runFlags, persistenceFlags()...)
	runFlags = append(runFlags, batchingFlags()...)

	lookupFlags := append(persistenceFlags(), &cli.StringFlag{
		Name:     "tx",
		Aliases:  []string{"t"},
		Usage:    "Transaction id digest",
		Required: true,
	})

	return &cli.Command{
		Name:  "notary",
		Usage: "Batch and persist transaction signatures",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Notarise transaction ids read from stdin, one per line",
				Description: `Every line of stdin is a transaction id digest. Each is queued with the
notary and its signature is printed as one JSON object per line once the batch
holding it is signed and stored. Output order follows batch completion.`,
				Flags:  runFlags,
				Action: notaryRunAction,
			},
			{
				Name:   "lookup",
				Usage:  "Print the stored signature for a transaction id",
				Flags:  lookupFlags,
				Action: notaryLookupAction,
			},
		},
	}
}

// flagDefined reports whether the running command declares name.
func flagDefined(c *cli.Context, name string) bool {
	if c.Command == nil {
		return false
	}
	for _, f := range c.Command.Flags {
		for _, n := range f.Names() {
			if n == name {
				return true
			}
		}
	}
	return false
}

// parseTxProofConfig starts from defaults and applies every flag the running
// command declares.
func parseTxProofConfig(c *cli.Context) (*config.TxProofConfig, error) {
	cfg := config.NewDefaultTxProofConfig()
	cfg.Debug = c.Bool("verbose")

	if flagDefined(c, "alg") {
		cfg.DigestAlgorithm = c.String("alg")
	}
	if flagDefined(c, "scheme") {
		cfg.SignatureScheme = c.String("scheme")
	}
	if flagDefined(c, "platform-version") {
		cfg.PlatformVersion = c.Int("platform-version")
	}
	if flagDefined(c, "signer") {
		signerType, err := config.ParseSignerType(c.String("signer"))
		if err != nil {
			return nil, err
		}
		cfg.Signer = config.SignerConfig{
			Type:        signerType,
			PrivateKey:  c.String("private-key"),
			AWSRegion:   c.String("aws-region"),
			AWSKMSKeyID: c.String("aws-kms-key-id"),
		}
	}
	if flagDefined(c, "persistence") {
		persistenceType, err := config.ParsePersistenceType(c.String("persistence"))
		if err != nil {
			return nil, err
		}
		cfg.Persistence = config.PersistenceConfig{
			Type:       persistenceType,
			BadgerPath: c.String("badger-path"),
			Redis: config.RedisSettings{
				Address:   c.String("redis-address"),
				Password:  c.String("redis-password"),
				DB:        c.Int("redis-db"),
				KeyPrefix: c.String("redis-key-prefix"),
			},
		}
	}
	if flagDefined(c, "max-batch-size") {
		cfg.Batching = config.BatchingConfig{
			MaxBatchSize: c.Int("max-batch-size"),
			BatchTimeout: c.Duration("batch-timeout"),
			SigningRate:  c.Float64("signing-rate"),
		}
	}
	return cfg, nil
}

type notarisedLine struct {
	TxID      string          `json:"txId"`
	Signature json.RawMessage `json:"signature,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func notaryRunAction(c *cli.Context) error {
	l, err := newCLILogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	cfg, err := parseTxProofConfig(c)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, store, err := bootstrap.NewNotary(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := n.Start(ctx); err != nil {
		return fmt.Errorf("failed to start notary: %w", err)
	}
	defer n.Stop()

	var (
		outMu sync.Mutex
		enc   = json.NewEncoder(c.App.Writer)
	)
	emit := func(line notarisedLine) error {
		outMu.Lock()
		defer outMu.Unlock()
		return enc.Encode(line)
	}

	g, gctx := errgroup.WithContext(ctx)
	// Enough in flight to fill a batch.
	g.SetLimit(cfg.Batching.MaxBatchSize + 1)

	scanner := bufio.NewScanner(c.App.Reader)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		txID, err := digest.Parse(text)
		if err != nil {
			if err := emit(notarisedLine{TxID: text, Error: err.Error()}); err != nil {
				return err
			}
			continue
		}

		g.Go(func() error {
			sig, err := n.Notarise(gctx, txID)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, notary.ErrStopped) {
					return err
				}
				return emit(notarisedLine{TxID: txID.String(), Error: err.Error()})
			}
			encoded, err := json.Marshal(sig)
			if err != nil {
				return err
			}
			return emit(notarisedLine{TxID: txID.String(), Signature: encoded})
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read transaction ids: %w", err)
	}
	return g.Wait()
}

func notaryLookupAction(c *cli.Context) error {
	l, err := newCLILogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	cfg, err := parseTxProofConfig(c)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	txID, err := digest.Parse(c.String("tx"))
	if err != nil {
		return fmt.Errorf("invalid transaction id: %w", err)
	}

	store, err := bootstrap.NewPersistence(cfg, l)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	record, err := store.LoadBatchForTransaction(txID)
	if err != nil {
		return err
	}
	if record == nil {
		return cli.Exit(fmt.Sprintf("%v: %s", notary.ErrNotNotarised, txID), 1)
	}
	sig, err := notary.SignatureFromRecord(record, txID)
	if err != nil {
		return err
	}

	l.Sugar().Debugw("Found batch", "batch_id", record.BatchID, "created_at", record.CreatedAt)
	data, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}
