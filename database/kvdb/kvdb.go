// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package kvdb organises a single database into named columns and commits
// multi-column transactions atomically.
package kvdb

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/emostov/substrate/database"
	"github.com/emostov/substrate/database/prefixdb"
)

var (
	_ DB = (*Database)(nil)

	ErrUnknownColumn = errors.New("unknown column")
)

// Column identifies a key-space of the node database.
type Column uint8

const (
	// ColumnMeta holds node metadata such as the genesis hash and the offchain
	// indexing record.
	ColumnMeta Column = iota
	ColumnState
	ColumnHeader
	ColumnBody
	ColumnOffchain

	numColumns = iota
)

var columnNames = [numColumns]string{
	ColumnMeta:     "meta",
	ColumnState:    "state",
	ColumnHeader:   "header",
	ColumnBody:     "body",
	ColumnOffchain: "offchain",
}

func (c Column) String() string {
	if int(c) < len(columnNames) {
		return columnNames[c]
	}
	return fmt.Sprintf("column(%d)", uint8(c))
}

// Columns returns every column in prefix order.
func Columns() []Column {
	columns := make([]Column, numColumns)
	for i := range columns {
		columns[i] = Column(i)
	}
	return columns
}

func (c Column) prefix() []byte {
	return []byte{byte(c)}
}

// DB is a column organised key-value store.
type DB interface {
	// Get returns database.ErrNotFound if [key] is not present in [column].
	Get(column Column, key []byte) ([]byte, error)

	// Has reports whether [key] is present in [column].
	Has(column Column, key []byte) (bool, error)

	// Write applies every operation of [tx] or none of them.
	Write(tx *Transaction) error
}

// Database is the DB backed by one database.Database. Each column is a
// prefixdb partition of it.
type Database struct {
	db      database.Database
	columns [numColumns]*prefixdb.Database
}

// New wraps [db]. The returned Database does not take ownership of [db].
func New(db database.Database) *Database {
	d := &Database{db: db}
	for _, column := range Columns() {
		d.columns[column] = prefixdb.New(column.prefix(), db)
	}
	return d
}

// Column returns the partition of [column], for iteration or for handing to
// code written against database.Database.
func (d *Database) Column(column Column) (database.Database, error) {
	if int(column) >= len(d.columns) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	return d.columns[column], nil
}

func (d *Database) Get(column Column, key []byte) ([]byte, error) {
	db, err := d.Column(column)
	if err != nil {
		return nil, err
	}
	return db.Get(key)
}

func (d *Database) Has(column Column, key []byte) (bool, error) {
	db, err := d.Column(column)
	if err != nil {
		return false, err
	}
	return db.Has(key)
}

// Write commits [tx] as a single batch of the underlying database.
func (d *Database) Write(tx *Transaction) error {
	batch := d.db.NewBatch()
	for _, op := range tx.ops {
		if int(op.column) >= len(d.columns) {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, op.column)
		}
		key := prefixdb.PrefixKey(op.column.prefix(), op.key)
		var err error
		if op.delete {
			err = batch.Delete(key)
		} else {
			err = batch.Put(key, op.value)
		}
		if err != nil {
			return err
		}
	}
	return batch.Write()
}

type operation struct {
	column Column
	key    []byte
	value  []byte
	delete bool
}

// Transaction is an ordered list of writes spanning columns. It is not safe for
// concurrent use.
type Transaction struct {
	ops []operation
}

func NewTransaction() *Transaction {
	return &Transaction{}
}

// Put queues setting [key] in [column] to [value].
func (tx *Transaction) Put(column Column, key, value []byte) {
	tx.ops = append(tx.ops, operation{
		column: column,
		key:    slices.Clone(key),
		value:  slices.Clone(value),
	})
}

// Delete queues removing [key] from [column].
func (tx *Transaction) Delete(column Column, key []byte) {
	tx.ops = append(tx.ops, operation{
		column: column,
		key:    slices.Clone(key),
		delete: true,
	})
}

// Len returns the number of queued operations.
func (tx *Transaction) Len() int {
	return len(tx.ops)
}

// Replay calls [put] or [del] for every queued operation in order.
func (tx *Transaction) Replay(
	put func(column Column, key, value []byte) error,
	del func(column Column, key []byte) error,
) error {
	for _, op := range tx.ops {
		var err error
		if op.delete {
			err = del(op.column, op.key)
		} else {
			err = put(op.column, op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
