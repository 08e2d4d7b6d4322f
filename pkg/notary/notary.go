// Package notary batches notarisation requests, signs each batch once over
// its Merkle root, and hands every requester a signature carrying a partial
// tree for its own transaction.
package notary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/persistence"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signature"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signer"
)

const (
	DefaultMaxBatchSize = 256
	DefaultBatchTimeout = 200 * time.Millisecond

	requestQueueSize = 1024
)

var (
	ErrNotRunning   = errors.New("notary is not running")
	ErrStopped      = errors.New("notary stopped")
	ErrNotNotarised = errors.New("transaction has not been notarised")

	ErrAlgorithmMismatch = errors.New("transaction id digest algorithm does not match the notary")
)

// Config controls batching and signing.
type Config struct {
	// MaxBatchSize flushes the pending batch once this many requests are queued.
	MaxBatchSize int
	// BatchTimeout flushes a non-empty batch this long after its first request.
	BatchTimeout time.Duration
	// SigningRate caps batch signatures per second. Zero means unlimited.
	SigningRate float64
	// SigningBurst is the limiter bucket size. Defaults to 1.
	SigningBurst int
	// Metadata is bound into every batch signature.
	Metadata signature.SignatureMetadata
}

func DefaultConfig() Config {
	return Config{
		MaxBatchSize: DefaultMaxBatchSize,
		BatchTimeout: DefaultBatchTimeout,
		SigningBurst: 1,
		Metadata:     signature.SignatureMetadata{PlatformVersion: 1},
	}
}

func (c Config) Validate() error {
	if c.MaxBatchSize < 1 {
		return fmt.Errorf("max batch size must be at least 1, got %d", c.MaxBatchSize)
	}
	if c.BatchTimeout <= 0 {
		return fmt.Errorf("batch timeout must be positive, got %s", c.BatchTimeout)
	}
	if c.SigningRate < 0 {
		return fmt.Errorf("signing rate must not be negative, got %f", c.SigningRate)
	}
	return nil
}

type request struct {
	txID   digest.SecureHash
	result chan result
}

type result struct {
	sig *signature.TransactionSignature
	err error
}

// Notary owns a single goroutine that drains the request channel into batches.
type Notary struct {
	cfg     Config
	ds      *digest.DigestService
	signer  signer.ISigner
	store   persistence.IBatchPersistence
	limiter *rate.Limiter
	logger  *zap.Logger

	requests chan *request

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewNotary(
	cfg Config,
	ds *digest.DigestService,
	s signer.ISigner,
	store persistence.IBatchPersistence,
	logger *zap.Logger,
) (*Notary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid notary config: %w", err)
	}
	if ds == nil || s == nil || store == nil || logger == nil {
		return nil, fmt.Errorf("notary requires a digest service, signer, store and logger")
	}

	limit := rate.Inf
	if cfg.SigningRate > 0 {
		limit = rate.Limit(cfg.SigningRate)
	}
	burst := cfg.SigningBurst
	if burst < 1 {
		burst = 1
	}

	return &Notary{
		cfg:      cfg,
		ds:       ds,
		signer:   s,
		store:    store,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
		requests: make(chan *request, requestQueueSize),
	}, nil
}

// Start launches the batching loop. It runs until ctx is done or Stop is called.
func (n *Notary) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.running {
		return fmt.Errorf("notary already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.done = make(chan struct{})
	n.running = true

	go n.run(loopCtx, n.done)

	n.logger.Sugar().Infow("Notary started",
		"max_batch_size", n.cfg.MaxBatchSize,
		"batch_timeout", n.cfg.BatchTimeout,
		"scheme", n.signer.Scheme().String(),
		"digest", string(n.ds.Algorithm()),
	)
	return nil
}

// Stop cancels the loop and waits for it to exit. Pending requests fail with
// ErrStopped. Safe to call more than once.
func (n *Notary) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	cancel, done := n.cancel, n.done
	n.mu.Unlock()

	cancel()
	<-done
	n.logger.Sugar().Info("Notary stopped")
}

// Notarise queues txID for the next batch and blocks until that batch is
// signed and persisted, or ctx is done.
func (n *Notary) Notarise(ctx context.Context, txID digest.SecureHash) (*signature.TransactionSignature, error) {
	if txID.IsEmpty() {
		return nil, fmt.Errorf("transaction id is empty")
	}
	// A foreign id would fail SignBatch for everyone sharing its batch.
	if txID.Algorithm() != n.ds.Algorithm() {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrAlgorithmMismatch, txID.Algorithm(), n.ds.Algorithm())
	}

	n.mu.Lock()
	running, done := n.running, n.done
	n.mu.Unlock()
	if !running {
		return nil, ErrNotRunning
	}

	req := &request{txID: txID, result: make(chan result, 1)}
	select {
	case n.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
		return nil, ErrStopped
	}

	select {
	case res := <-req.result:
		return res.sig, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
		// The loop answers everything it drained before closing done.
		select {
		case res := <-req.result:
			return res.sig, res.err
		default:
			return nil, ErrStopped
		}
	}
}

// SignatureFor rebuilds txID's signature from the store, so requesters can
// recover it after a restart.
func (n *Notary) SignatureFor(txID digest.SecureHash) (*signature.TransactionSignature, error) {
	record, err := n.store.LoadBatchForTransaction(txID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up transaction %s: %w", txID, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotNotarised, txID)
	}
	return SignatureFromRecord(record, txID)
}

// SignatureFromRecord re-derives the batch tree and the partial tree for txID.
func SignatureFromRecord(record *persistence.BatchRecord, txID digest.SecureHash) (*signature.TransactionSignature, error) {
	ds, err := digest.NewDigestService(record.Root.Algorithm())
	if err != nil {
		return nil, err
	}
	batch, err := signature.RestoreBatchSignature(ds, record.TxIDs, record.Signature)
	if err != nil {
		return nil, fmt.Errorf("failed to restore batch %s: %w", record.BatchID, err)
	}
	if batch.Root() != record.Root {
		return nil, fmt.Errorf("batch %s root mismatch: stored %s, rebuilt %s", record.BatchID, record.Root, batch.Root())
	}
	return batch.ForParticipant(txID)
}

func (n *Notary) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	var (
		pending []*request
		timer   *time.Timer
		timerC  <-chan time.Time
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer, timerC = nil, nil
	}

	for {
		select {
		case req := <-n.requests:
			pending = append(pending, req)
			if len(pending) == 1 {
				timer = time.NewTimer(n.cfg.BatchTimeout)
				timerC = timer.C
			}
			if len(pending) >= n.cfg.MaxBatchSize {
				stopTimer()
				n.flush(ctx, pending)
				pending = nil
			}
		case <-timerC:
			timer, timerC = nil, nil
			n.flush(ctx, pending)
			pending = nil
		case <-ctx.Done():
			stopTimer()
			pending = append(pending, n.drain()...)
			n.fail(pending, ErrStopped)
			return
		}
	}
}

// drain empties the request channel without blocking.
func (n *Notary) drain() []*request {
	var drained []*request
	for {
		select {
		case req := <-n.requests:
			drained = append(drained, req)
		default:
			return drained
		}
	}
}

func (n *Notary) fail(pending []*request, err error) {
	for _, req := range pending {
		req.result <- result{err: err}
	}
}

func (n *Notary) flush(ctx context.Context, pending []*request) {
	if len(pending) == 0 {
		return
	}

	ids := uniqueTxIDs(pending)

	if err := n.limiter.Wait(ctx); err != nil {
		n.fail(pending, fmt.Errorf("%w: %v", ErrStopped, err))
		return
	}

	batch, err := signature.SignBatch(ctx, n.ds, ids, n.signer, n.cfg.Metadata)
	if err != nil {
		n.logger.Sugar().Errorw("Failed to sign batch", "size", len(ids), "error", err)
		n.fail(pending, fmt.Errorf("failed to sign batch: %w", err))
		return
	}

	record := &persistence.BatchRecord{
		BatchID:   uuid.New().String(),
		Root:      batch.Root(),
		TxIDs:     batch.TxIDs(),
		Signature: batch.Signature,
		CreatedAt: time.Now().UTC(),
	}
	if err := n.store.SaveBatch(record); err != nil {
		n.logger.Sugar().Errorw("Failed to persist batch", "batch_id", record.BatchID, "error", err)
		n.fail(pending, fmt.Errorf("failed to persist batch %s: %w", record.BatchID, err))
		return
	}

	n.logger.Sugar().Infow("Signed batch",
		"batch_id", record.BatchID,
		"root", record.Root.String(),
		"transactions", len(ids),
		"requests", len(pending),
	)

	for _, req := range pending {
		sig, err := batch.ForParticipant(req.txID)
		req.result <- result{sig: sig, err: err}
	}
}

// uniqueTxIDs keeps the first occurrence of each id, in request order.
func uniqueTxIDs(pending []*request) []digest.SecureHash {
	seen := make(map[digest.SecureHash]struct{}, len(pending))
	ids := make([]digest.SecureHash, 0, len(pending))
	for _, req := range pending {
		if _, ok := seen[req.txID]; ok {
			continue
		}
		seen[req.txID] = struct{}{}
		ids = append(ids, req.txID)
	}
	return ids
}
