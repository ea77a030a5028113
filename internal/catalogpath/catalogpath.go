// Package catalogpath implements the deterministic mapping between logical
// chunk identities and object-store keys, and its inverse. Every key the
// catalog ever writes or reads is built and parsed through this package so
// that the two directions stay in lockstep.
//
// Canonical layout:
//
//	<server_id>/<db_name>/data/<partition_key>/<chunk_id>/<table_name>.parquet
//	<server_id>/<db_name>/transactions/<revision>/<uuid>.txn
package catalogpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"catalogstore/internal/objectstore"
)

const (
	dataSegment         = "data"
	transactionsSegment = "transactions"
	parquetExt          = "parquet"
	txnExt              = "txn"
)

// ErrLocationParse is returned by Parse when a key does not match the
// canonical chunk data path for this server/database.
var ErrLocationParse = errors.New("catalogpath: key does not match path scheme")

// Scheme binds the path builders and parsers to one (server, database)
// pair. Every catalog and rebuild operation is scoped to exactly one
// Scheme.
type Scheme struct {
	ServerID string
	DBName   string
}

// New returns a Scheme for the given server id and database name.
func New(serverID, dbName string) Scheme {
	return Scheme{ServerID: serverID, DBName: dbName}
}

// DataRoot returns the path prefix under which every chunk file for this
// scheme's database lives.
func (s Scheme) DataRoot() objectstore.Path {
	return objectstore.Path{s.ServerID, s.DBName, dataSegment}
}

// TransactionsRoot returns the path prefix under which every transaction
// record for this scheme's database lives.
func (s Scheme) TransactionsRoot() objectstore.Path {
	return objectstore.Path{s.ServerID, s.DBName, transactionsSegment}
}

// Location builds the object-store key for a chunk file. chunk_id is
// rendered as an unpadded decimal.
func (s Scheme) Location(partitionKey string, chunkID uint32, tableName string) objectstore.Path {
	return objectstore.Path{
		s.ServerID,
		s.DBName,
		dataSegment,
		partitionKey,
		strconv.FormatUint(uint64(chunkID), 10),
		tableName + "." + parquetExt,
	}
}

// Parse recovers (partition_key, chunk_id, table_name) from a chunk data
// key previously built by Location. It fails with ErrLocationParse unless
// the path has exactly five directory segments that match this scheme's
// server and database, the chunk-id segment parses as a u32, and the file
// name is exactly "<table>.parquet" with one dot separator.
func (s Scheme) Parse(key objectstore.Path) (partitionKey string, chunkID uint32, tableName string, err error) {
	if len(key) != 6 {
		return "", 0, "", fmt.Errorf("%w: expected 6 segments, got %d (%s)", ErrLocationParse, len(key), key)
	}

	serverID, dbName, dataSeg, partition, chunkSeg, fileName := key[0], key[1], key[2], key[3], key[4], key[5]

	if serverID != s.ServerID {
		return "", 0, "", fmt.Errorf("%w: server id %q does not match %q", ErrLocationParse, serverID, s.ServerID)
	}
	if dbName != s.DBName {
		return "", 0, "", fmt.Errorf("%w: db name %q does not match %q", ErrLocationParse, dbName, s.DBName)
	}
	if dataSeg != dataSegment {
		return "", 0, "", fmt.Errorf("%w: expected segment %q, got %q", ErrLocationParse, dataSegment, dataSeg)
	}

	id, err := strconv.ParseUint(chunkSeg, 10, 32)
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: chunk id %q is not a valid u32: %v", ErrLocationParse, chunkSeg, err)
	}

	table, ok := splitSingleDot(fileName, parquetExt)
	if !ok {
		return "", 0, "", fmt.Errorf("%w: file name %q is not a bare \"<table>.%s\"", ErrLocationParse, fileName, parquetExt)
	}

	return partition, uint32(id), table, nil
}

// TransactionKey builds the content-addressed key for a transaction
// record: <server>/<db>/transactions/<revision>/<uuid>.txn. Multiple
// uuids at the same revision coexist as siblings under the same
// revision directory, which is how divergent history is detected.
func (s Scheme) TransactionKey(revision uint64, uuid string) objectstore.Path {
	return objectstore.Path{
		s.ServerID,
		s.DBName,
		transactionsSegment,
		strconv.FormatUint(revision, 10),
		uuid + "." + txnExt,
	}
}

// TransactionRevisionPrefix returns the prefix under which every
// transaction record for a given revision lives, i.e. the directory that
// holds sibling transactions at the same revision.
func (s Scheme) TransactionRevisionPrefix(revision uint64) objectstore.Path {
	return objectstore.Path{
		s.ServerID,
		s.DBName,
		transactionsSegment,
		strconv.FormatUint(revision, 10),
	}
}

// ParseTransactionKey recovers (revision, uuid) from a transaction key
// previously built by TransactionKey.
func (s Scheme) ParseTransactionKey(key objectstore.Path) (revision uint64, txnUUID string, err error) {
	if len(key) != 5 {
		return 0, "", fmt.Errorf("%w: expected 5 segments, got %d (%s)", ErrLocationParse, len(key), key)
	}
	serverID, dbName, txSeg, revSeg, fileName := key[0], key[1], key[2], key[3], key[4]

	if serverID != s.ServerID {
		return 0, "", fmt.Errorf("%w: server id %q does not match %q", ErrLocationParse, serverID, s.ServerID)
	}
	if dbName != s.DBName {
		return 0, "", fmt.Errorf("%w: db name %q does not match %q", ErrLocationParse, dbName, s.DBName)
	}
	if txSeg != transactionsSegment {
		return 0, "", fmt.Errorf("%w: expected segment %q, got %q", ErrLocationParse, transactionsSegment, txSeg)
	}

	rev, err := strconv.ParseUint(revSeg, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: revision %q is not a valid u64: %v", ErrLocationParse, revSeg, err)
	}

	id, ok := splitSingleDot(fileName, txnExt)
	if !ok {
		return 0, "", fmt.Errorf("%w: file name %q is not a bare \"<uuid>.%s\"", ErrLocationParse, fileName, txnExt)
	}

	return rev, id, nil
}

// IsParquetFile reports whether key's final segment ends in ".parquet".
// Used by the rebuild scan to filter candidate chunk files before any
// stricter parsing is attempted.
func IsParquetFile(key objectstore.Path) bool {
	if len(key) == 0 {
		return false
	}
	return strings.HasSuffix(key[len(key)-1], "."+parquetExt)
}

// splitSingleDot reports whether name is exactly "<stem>.<ext>" with
// precisely one dot, and returns stem. Rejects bare names (no dot) and
// double extensions ("x.parquet.tmp").
func splitSingleDot(name, ext string) (stem string, ok bool) {
	parts := strings.Split(name, ".")
	if len(parts) != 2 {
		return "", false
	}
	if parts[0] == "" || parts[1] != ext {
		return "", false
	}
	return parts[0], true
}
