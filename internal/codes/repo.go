package codes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres-backed Store. Row locks (SELECT ... FOR UPDATE)
// close the window between counting available codes and marking them
// reserved, so overlapping purchase attempts serialize per code row.
type Repo struct {
	DB                  *pgxpool.Pool
	ConfirmationNumbers ConfirmationNumberGenerator
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{DB: db, ConfirmationNumbers: RandomConfirmationNumberGenerator{}}
}

func (r *Repo) AddCodes(ctx context.Context, productID string, codes []NewCode) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, nc := range codes {
		_, err := tx.Exec(ctx, `
			INSERT INTO codes(product_id, period, serial_number, price)
			VALUES ($1, $2, $3, $4)`,
			productID, nc.Period, nc.SerialNumber, nc.Price,
		)
		if err != nil {
			return fmt.Errorf("insert code %s: %w", nc.SerialNumber, err)
		}
	}
	return tx.Commit(ctx)
}

func (r *Repo) ReserveCodes(ctx context.Context, productID string, cart []CartLine) ([]CodeGroup, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	groups := make([]CodeGroup, 0, len(cart))

	for _, line := range cart {
		// Lock the candidate rows before touching them. If a concurrent
		// attempt holds any of these rows we block here until it commits,
		// then see its reservations and pick (or fail) accordingly.
		rows, err := tx.Query(ctx, `
			SELECT id, product_id, period, serial_number, price
			FROM codes
			WHERE product_id = $1 AND period = $2
			  AND order_id IS NULL AND reserved_at IS NULL
			ORDER BY id
			LIMIT $3
			FOR UPDATE`,
			productID, line.Period, line.Quantity,
		)
		if err != nil {
			return nil, err
		}

		group := CodeGroup{Period: line.Period, Codes: make([]Code, 0, line.Quantity)}
		for rows.Next() {
			var c Code
			if err := rows.Scan(&c.ID, &c.ProductID, &c.Period, &c.SerialNumber, &c.Price); err != nil {
				rows.Close()
				return nil, err
			}
			at := now
			c.ReservedAt = &at
			group.Codes = append(group.Codes, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		// Fewer rows than asked means the line is unsatisfiable: abort the
		// whole cart, rollback drops the locks and unmarks everything.
		if len(group.Codes) < line.Quantity {
			return nil, ErrInsufficientInventory
		}

		// Mark before the next line's SELECT runs, so a second line for
		// the same period cannot pick these rows again.
		ids := codeIDs(group.Codes)
		ct, err := tx.Exec(ctx,
			`UPDATE codes SET reserved_at = $2 WHERE id = ANY($1)`,
			ids, now,
		)
		if err != nil {
			return nil, err
		}
		if int(ct.RowsAffected()) != len(ids) {
			return nil, fmt.Errorf("reserve marked %d of %d codes", ct.RowsAffected(), len(ids))
		}
		groups = append(groups, group)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *Repo) ReleaseCodes(ctx context.Context, codeIDs []int64) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE codes SET reserved_at = NULL
		WHERE id = ANY($1) AND order_id IS NULL`,
		codeIDs,
	)
	return err
}

func (r *Repo) CreateOrder(ctx context.Context, email string, amount int64, groups []CodeGroup) (*Order, error) {
	var ids []int64
	for _, g := range groups {
		ids = append(ids, codeIDs(g.Codes)...)
	}
	if len(ids) == 0 {
		return nil, ErrCodesNotListed
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order := &Order{
		ID:                 uuid.NewString(),
		ConfirmationNumber: r.ConfirmationNumbers.Generate(),
		Email:              email,
		Amount:             amount,
		CodeQuantity:       len(ids),
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, confirmation_number, email, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		order.ID, order.ConfirmationNumber, order.Email, order.Amount,
	).Scan(&order.CreatedAt)
	if err != nil {
		return nil, err
	}

	// The unsold guard makes a double sell impossible: if any code was
	// claimed by another order in the meantime the count comes up short
	// and the whole order rolls back.
	ct, err := tx.Exec(ctx, `
		UPDATE codes SET order_id = $2
		WHERE id = ANY($1) AND order_id IS NULL`,
		ids, order.ID,
	)
	if err != nil {
		return nil, err
	}
	if int(ct.RowsAffected()) != len(ids) {
		return nil, ErrCodeSold
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repo) ReleaseExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE codes SET reserved_at = NULL
		WHERE reserved_at < $1 AND order_id IS NULL`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *Repo) CodesRemaining(ctx context.Context, productID string) (int64, error) {
	var n int64
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM codes
		WHERE product_id = $1 AND order_id IS NULL AND reserved_at IS NULL`,
		productID,
	).Scan(&n)
	return n, err
}

func (r *Repo) HasOrderFor(ctx context.Context, productID, email string) (bool, error) {
	var n int64
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(DISTINCT o.id)
		FROM orders o
		JOIN codes c ON c.order_id = o.id
		WHERE c.product_id = $1 AND o.email = $2`,
		productID, email,
	).Scan(&n)
	return n > 0, err
}

func (r *Repo) OrdersFor(ctx context.Context, productID, email string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT o.id, o.confirmation_number, o.email, o.amount, o.created_at,
		       COUNT(c.id) AS code_quantity
		FROM orders o
		JOIN codes c ON c.order_id = o.id
		WHERE c.product_id = $1 AND o.email = $2
		GROUP BY o.id, o.confirmation_number, o.email, o.amount, o.created_at
		ORDER BY o.created_at`,
		productID, email,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.ConfirmationNumber, &o.Email, &o.Amount, &o.CreatedAt, &o.CodeQuantity); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func codeIDs(cs []Code) []int64 {
	ids := make([]int64, 0, len(cs))
	for _, c := range cs {
		ids = append(ids, c.ID)
	}
	return ids
}
