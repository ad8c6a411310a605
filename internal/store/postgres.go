package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/wallet_core/internal/domain"
)

const uniqueViolation = "23505"

// PostgresStore persists wallets, reservations and ledger entries in
// PostgreSQL. Apply runs inside one transaction guarded by the wallet's
// version column, so a Change is all-or-nothing.
//
// Expected schema: wallets (id uuid pk, account_id unique), reservations
// (id uuid pk, unique (wallet_id, reference_id)), entries (seq bigserial,
// indexed on (wallet_id, seq) and (wallet_id, reference_id)).
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed store.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateWallet inserts the wallet, returning the already-stored row when the
// account has one.
func (s *PostgresStore) CreateWallet(ctx context.Context, w domain.Wallet) (domain.Wallet, error) {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return domain.Wallet{}, fmt.Errorf("parse wallet id: %w", err)
	}
	tag, err := s.db.Exec(ctx, `INSERT INTO wallets (id, account_id, currency, balance, reserved, status, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (account_id) DO NOTHING`,
		walletID, w.AccountID, w.Currency, w.Balance, w.Reserved, w.Status, w.Version, w.CreatedAt.UTC(), w.UpdatedAt.UTC())
	if err != nil {
		return domain.Wallet{}, err
	}
	if tag.RowsAffected() == 0 {
		return s.WalletByAccount(ctx, w.AccountID)
	}
	return w, nil
}

const walletColumns = `id, account_id, currency, balance, reserved, status, version, created_at, updated_at`

// WalletByID fetches the wallet aggregate by identifier.
func (s *PostgresStore) WalletByID(ctx context.Context, id string) (domain.Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return domain.Wallet{}, domain.ErrWalletNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, walletID)
	return scanWallet(row)
}

// WalletByAccount fetches the wallet aggregate by its owning account.
func (s *PostgresStore) WalletByAccount(ctx context.Context, accountID string) (domain.Wallet, error) {
	row := s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE account_id = $1`, accountID)
	return scanWallet(row)
}

// Apply writes the change transactionally iff the stored version matches.
func (s *PostgresStore) Apply(ctx context.Context, change Change) error {
	walletID, err := uuid.Parse(change.Wallet.ID)
	if err != nil {
		return domain.ErrWalletNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w := change.Wallet
	tag, err := tx.Exec(ctx, `UPDATE wallets
        SET balance = $1, reserved = $2, status = $3, version = version + 1, updated_at = $4
        WHERE id = $5 AND version = $6`,
		w.Balance, w.Reserved, w.Status, time.Now().UTC(), walletID, w.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the version moved or the wallet is gone; disambiguate so the
		// guard only retries genuine conflicts.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE id = $1)`, walletID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrWalletNotFound
		}
		return domain.ErrConcurrencyConflict
	}

	if r := change.Reservation; r != nil {
		reservationID, err := uuid.Parse(r.ID)
		if err != nil {
			return fmt.Errorf("parse reservation id: %w", err)
		}
		_, err = tx.Exec(ctx, `INSERT INTO reservations (id, wallet_id, reference_id, amount, status, created_at, expires_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`,
			reservationID, walletID, r.ReferenceID, r.Amount, r.Status, r.CreatedAt.UTC(), r.ExpiresAt.UTC())
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConcurrencyConflict
			}
			return err
		}
	}

	if e := change.Entry; e != nil {
		entryID, err := uuid.Parse(e.ID)
		if err != nil {
			return fmt.Errorf("parse entry id: %w", err)
		}
		_, err = tx.Exec(ctx, `INSERT INTO entries (id, wallet_id, reference_id, entry_type, amount, balance_after, description, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			entryID, walletID, e.ReferenceID, e.Type, e.Amount, e.BalanceAfter, e.Description, e.CreatedAt.UTC())
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConcurrencyConflict
			}
			return err
		}
	}

	return tx.Commit(ctx)
}

const reservationColumns = `id, wallet_id, reference_id, amount, status, created_at, expires_at`

// ReservationByID fetches a reservation by identifier.
func (s *PostgresStore) ReservationByID(ctx context.Context, id string) (domain.Reservation, error) {
	reservationID, err := uuid.Parse(id)
	if err != nil {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, reservationID)
	return scanReservation(row)
}

// ReservationByReference fetches a reservation by its idempotency key.
func (s *PostgresStore) ReservationByReference(ctx context.Context, walletID, referenceID string) (domain.Reservation, error) {
	wID, err := uuid.Parse(walletID)
	if err != nil {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE wallet_id = $1 AND reference_id = $2`, wID, referenceID)
	return scanReservation(row)
}

// ExpiredReservations lists reservations the sweep must reclaim: live ones
// past expiry plus any stranded in the expired state by an interrupted sweep.
func (s *PostgresStore) ExpiredReservations(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	rows, err := s.db.Query(ctx, `SELECT `+reservationColumns+` FROM reservations
        WHERE status IN ($1, $2) AND expires_at < $3
        ORDER BY expires_at ASC
        LIMIT $4`, domain.ReservationReserved, domain.ReservationExpired, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stale []domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		stale = append(stale, r)
	}
	return stale, rows.Err()
}

const entryColumns = `seq, id, wallet_id, reference_id, entry_type, amount, balance_after, description, created_at`

// EntryByReference fetches the ledger entry written for a reference, if any;
// a non-empty entryType narrows the lookup to that type.
func (s *PostgresStore) EntryByReference(ctx context.Context, walletID, referenceID, entryType string) (domain.LedgerEntry, error) {
	wID, err := uuid.Parse(walletID)
	if err != nil {
		return domain.LedgerEntry{}, domain.ErrEntryNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries
        WHERE wallet_id = $1 AND reference_id = $2 AND ($3::text = '' OR entry_type = $3)`, wID, referenceID, entryType)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LedgerEntry{}, domain.ErrEntryNotFound
	}
	return e, err
}

// EntriesByWallet pages the ledger log ascending by sequence.
func (s *PostgresStore) EntriesByWallet(ctx context.Context, walletID string, afterSeq int64, limit int) ([]domain.LedgerEntry, error) {
	wID, err := uuid.Parse(walletID)
	if err != nil {
		return nil, domain.ErrWalletNotFound
	}
	rows, err := s.db.Query(ctx, `SELECT `+entryColumns+` FROM entries
        WHERE wallet_id = $1 AND seq > $2
        ORDER BY seq ASC
        LIMIT $3`, wID, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var page []domain.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		page = append(page, e)
	}
	return page, rows.Err()
}

func scanWallet(row pgx.Row) (domain.Wallet, error) {
	var w domain.Wallet
	var id uuid.UUID
	var createdAt, updatedAt time.Time
	if err := row.Scan(&id, &w.AccountID, &w.Currency, &w.Balance, &w.Reserved, &w.Status, &w.Version, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Wallet{}, domain.ErrWalletNotFound
		}
		return domain.Wallet{}, err
	}
	w.ID = id.String()
	w.CreatedAt = createdAt.UTC()
	w.UpdatedAt = updatedAt.UTC()
	return w, nil
}

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var r domain.Reservation
	var id, walletID uuid.UUID
	var createdAt, expiresAt time.Time
	if err := row.Scan(&id, &walletID, &r.ReferenceID, &r.Amount, &r.Status, &createdAt, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, err
	}
	r.ID = id.String()
	r.WalletID = walletID.String()
	r.CreatedAt = createdAt.UTC()
	r.ExpiresAt = expiresAt.UTC()
	return r, nil
}

func scanEntry(row pgx.Row) (domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var id, walletID uuid.UUID
	var createdAt time.Time
	if err := row.Scan(&e.Sequence, &id, &walletID, &e.ReferenceID, &e.Type, &e.Amount, &e.BalanceAfter, &e.Description, &createdAt); err != nil {
		return domain.LedgerEntry{}, err
	}
	e.ID = id.String()
	e.WalletID = walletID.String()
	e.CreatedAt = createdAt.UTC()
	return e, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
