// Package store persists a write-through journal of request records so the
// registry's history survives restarts and can be listed without walking the
// in-memory ledger.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/speedrun-hq/execregistry/pkg/models"

	_ "modernc.org/sqlite"
)

const createRequestsTable = `
CREATE TABLE IF NOT EXISTS exec_requests (
    exec_hash        TEXT PRIMARY KEY,
    nonce            INTEGER NOT NULL,
    strategy         TEXT NOT NULL,
    calldata         BLOB,
    gas_limit        INTEGER NOT NULL,
    gas_price        TEXT NOT NULL,
    tip              TEXT NOT NULL,
    creator          TEXT NOT NULL,
    input_tokens     TEXT NOT NULL,
    unlock_timestamp INTEGER NOT NULL,
    status           TEXT NOT NULL,
    uncle            TEXT,
    successor        TEXT
)`

// ErrNotFound is returned when a request is not in the journal.
var ErrNotFound = errors.New("request not found")

// SQLiteStore journals request records in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createRequestsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create exec_requests table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is still alive.
func (s *SQLiteStore) Ping() error {
	return s.db.Ping()
}

// RecordRequest upserts the current state of a request record.
func (s *SQLiteStore) RecordRequest(ctx context.Context, req *models.Request) error {
	inputs, err := json.Marshal(req.InputTokens)
	if err != nil {
		return fmt.Errorf("marshal input tokens: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exec_requests (
			exec_hash, nonce, strategy, calldata, gas_limit, gas_price,
			tip, creator, input_tokens, unlock_timestamp, status, uncle, successor
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(exec_hash) DO UPDATE SET
			unlock_timestamp = excluded.unlock_timestamp,
			status           = excluded.status,
			successor        = excluded.successor`,
		req.ExecHash.Hex(), req.Nonce, req.Strategy.Hex(), req.Calldata,
		req.GasLimit, req.GasPrice.String(), req.Tip.String(), req.Creator.Hex(),
		string(inputs), req.UnlockTimestamp, string(req.Status),
		req.Uncle.Hex(), req.Successor.Hex(),
	)
	if err != nil {
		return fmt.Errorf("record request: %w", err)
	}
	return nil
}

// GetRequest retrieves a journaled request by exec hash.
func (s *SQLiteStore) GetRequest(ctx context.Context, execHash common.Hash) (*models.Request, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT exec_hash, nonce, strategy, calldata, gas_limit, gas_price,
			tip, creator, input_tokens, unlock_timestamp, status, uncle, successor
		FROM exec_requests WHERE exec_hash = ?`, execHash.Hex(),
	)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// ListRequests returns a paginated list of requests ordered by nonce DESC,
// along with the total count.
func (s *SQLiteStore) ListRequests(ctx context.Context, limit, offset int) ([]*models.Request, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM exec_requests").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT exec_hash, nonce, strategy, calldata, gas_limit, gas_price,
			tip, creator, input_tokens, unlock_timestamp, status, uncle, successor
		FROM exec_requests ORDER BY nonce DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate requests: %w", err)
	}

	return requests, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		req       models.Request
		execHash  string
		strategy  string
		gasPrice  string
		tip       string
		creator   string
		inputs    string
		status    string
		uncle     sql.NullString
		successor sql.NullString
	)
	if err := row.Scan(
		&execHash, &req.Nonce, &strategy, &req.Calldata, &req.GasLimit,
		&gasPrice, &tip, &creator, &inputs, &req.UnlockTimestamp,
		&status, &uncle, &successor,
	); err != nil {
		return nil, err
	}

	req.ExecHash = common.HexToHash(execHash)
	req.Strategy = common.HexToAddress(strategy)
	req.Creator = common.HexToAddress(creator)
	req.Status = models.RequestStatus(status)
	if uncle.Valid {
		req.Uncle = common.HexToHash(uncle.String)
	}
	if successor.Valid {
		req.Successor = common.HexToHash(successor.String)
	}

	var ok bool
	req.GasPrice, ok = new(big.Int).SetString(gasPrice, 10)
	if !ok {
		return nil, fmt.Errorf("invalid gas price %q", gasPrice)
	}
	req.Tip, ok = new(big.Int).SetString(tip, 10)
	if !ok {
		return nil, fmt.Errorf("invalid tip %q", tip)
	}

	if err := json.Unmarshal([]byte(inputs), &req.InputTokens); err != nil {
		return nil, fmt.Errorf("unmarshal input tokens: %w", err)
	}
	return &req, nil
}
