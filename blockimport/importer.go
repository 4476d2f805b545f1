// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockimport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/emostov/substrate/database"
	"github.com/emostov/substrate/database/kvdb"
	"github.com/emostov/substrate/offchain"
	"github.com/emostov/substrate/offchain/storage"
	"github.com/emostov/substrate/utils/hashing"
	"github.com/emostov/substrate/utils/logging"
	"github.com/emostov/substrate/utils/wrappers"
)

var (
	// BestBlockKey is the metadata key of the best imported block.
	BestBlockKey = []byte("best_block")

	ErrUnknownParent = errors.New("parent is not the best block")
)

// DB is the part of the node database block import uses.
type DB interface {
	Get(column kvdb.Column, key []byte) ([]byte, error)
	Write(tx *kvdb.Transaction) error
}

// Importer appends blocks on top of the best block. Offchain writes of a block
// reach the database only if offchain indexing was resolved as enabled.
type Importer struct {
	log    logging.Logger
	db     DB
	config offchain.WorkerConfig

	lock sync.Mutex
	best Ref

	blocksImported prometheus.Counter
	offchainWrites prometheus.Counter
}

// New returns an importer continuing from the persisted best block, or from
// [genesis] if no block was imported yet.
//
// [config] is only available after the offchain indexing state was
// reconciled, so an importer can't be created before that.
func New(
	log logging.Logger,
	db DB,
	config offchain.WorkerConfig,
	genesis hashing.Hash256,
	registerer prometheus.Registerer,
) (*Importer, error) {
	i := &Importer{
		log:    log,
		db:     db,
		config: config,
		best: Ref{
			Hash: genesis,
		},
		blocksImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blocks_imported",
			Help: "number of blocks imported",
		}),
		offchainWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "offchain_index_writes",
			Help: "number of offchain index writes persisted during block import",
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(i.blocksImported),
		registerer.Register(i.offchainWrites),
	)
	if errs.Errored() {
		return nil, errs.Err
	}

	bestBytes, err := db.Get(kvdb.ColumnMeta, BestBlockKey)
	switch {
	case errors.Is(err, database.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to read best block: %w", err)
	default:
		i.best, err = parseRef(bestBytes)
		if err != nil {
			return nil, err
		}
	}

	log.Info("initialized block import",
		zap.Uint64("bestNumber", i.best.Number),
		zap.Binary("bestHash", i.best.Hash[:]),
		zap.Stringer("offchainIndexing", config.Indexing),
		zap.Bool("offchainWorkers", config.Enabled),
	)
	return i, nil
}

// Import persists [blk] as the new best block.
func (i *Importer) Import(blk *Block) (Ref, error) {
	i.lock.Lock()
	defer i.lock.Unlock()

	if blk.Number != i.best.Number+1 || blk.ParentHash != i.best.Hash {
		return Ref{}, fmt.Errorf("%w: block %d has parent %x but best is %d (%x)",
			ErrUnknownParent,
			blk.Number,
			blk.ParentHash,
			i.best.Number,
			i.best.Hash,
		)
	}

	ref := Ref{
		Number: blk.Number,
		Hash:   blk.Hash(),
	}
	key := ref.Bytes()

	tx := kvdb.NewTransaction()
	tx.Put(kvdb.ColumnHeader, key, blk.Header)
	tx.Put(kvdb.ColumnBody, key, blk.Body)

	api := storage.NewIndexingAPI(i.config.Indexing)
	for _, w := range blk.OffchainWrites {
		if w.Clear {
			api.Clear(w.Key)
		} else {
			api.Set(w.Key, w.Value)
		}
	}
	flushed := api.Flush(tx)

	tx.Put(kvdb.ColumnMeta, BestBlockKey, key)
	if err := i.db.Write(tx); err != nil {
		return Ref{}, fmt.Errorf("failed to write block %d: %w", blk.Number, err)
	}

	i.best = ref
	i.blocksImported.Inc()
	i.offchainWrites.Add(float64(flushed))

	i.log.Debug("imported block",
		zap.Uint64("number", ref.Number),
		zap.Binary("hash", ref.Hash[:]),
		zap.Int("offchainWrites", flushed),
		zap.Int("droppedOffchainWrites", len(blk.OffchainWrites)-flushed),
	)
	return ref, nil
}

// Best returns the best imported block.
func (i *Importer) Best() Ref {
	i.lock.Lock()
	defer i.lock.Unlock()

	return i.best
}

// Header returns the header of the block [ref].
func (i *Importer) Header(ref Ref) ([]byte, error) {
	return i.db.Get(kvdb.ColumnHeader, ref.Bytes())
}
