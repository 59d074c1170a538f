package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Repos bundles every repo bound to the same connection or transaction.
type Repos struct {
	Users        UserRepo
	Guides       GuideRepo
	Themes       ThemeRepo
	Slots        SlotRepo
	Reservations ReservationRepo
}

// NewRepos binds every repo to db.
func NewRepos(db db) Repos {
	return Repos{
		Users:        NewUserRepo(db),
		Guides:       NewGuideRepo(db),
		Themes:       NewThemeRepo(db),
		Slots:        NewSlotRepo(db),
		Reservations: NewReservationRepo(db),
	}
}

// Transactor runs fn with repos bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	InTx(ctx context.Context, fn func(Repos) error) error
}

// txBeginner is satisfied by *pgxpool.Pool and by pgx.Tx (nested transactions
// become savepoints, which lets integration tests run inside an outer tx).
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type pgTransactor struct {
	db txBeginner
}

// NewTransactor constructs a Transactor over a pool or an outer transaction.
func NewTransactor(db txBeginner) Transactor {
	return &pgTransactor{db: db}
}

func (t *pgTransactor) InTx(ctx context.Context, fn func(Repos) error) error {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.Transactor.InTx: begin: %w", err)
	}
	defer func() {
		// Rollback after a successful Commit is a no-op returning ErrTxClosed.
		_ = tx.Rollback(ctx)
	}()

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.Transactor.InTx: commit: %w", err)
	}
	return nil
}
