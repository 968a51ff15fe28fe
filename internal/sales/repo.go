package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFoundOrForbidden deliberately does not distinguish a missing sale
// from someone else's sale, so callers cannot probe for record existence.
var ErrNotFoundOrForbidden = errors.New("sale not found")

type Repo struct{ DB *pgxpool.Pool }

// Insert persists a sale and its item snapshots in one transaction. The sale
// carries a server-computed total; there is no code path that writes a
// caller-supplied one.
func (r *Repo) Insert(ctx context.Context, s *Sale) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO sales(id, user_id, customer, total_cents, payment_method, installments, status1, status2, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.UserID, s.Customer, s.TotalCents, s.PaymentMethod, s.Installments, s.Status1, s.Status2, s.CreatedAt,
	)
	if err != nil {
		return err
	}
	for _, it := range s.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO sale_items(sale_id, product_name, price_cents)
			VALUES ($1,$2,$3)`,
			s.ID, it.ProductName, it.PriceCents,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListByOwner returns the owner's sales, newest first. The user_id filter is
// part of the query, not a post-filter.
func (r *Repo) ListByOwner(ctx context.Context, ownerID string) ([]Sale, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, customer, total_cents, payment_method, installments, status1, status2, created_at
		FROM sales WHERE user_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Sale{}
	idx := map[string]int{}
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.UserID, &s.Customer, &s.TotalCents, &s.PaymentMethod,
			&s.Installments, &s.Status1, &s.Status2, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Items = []SaleItem{}
		idx[s.ID] = len(out)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(out))
	for _, s := range out {
		ids = append(ids, s.ID)
	}
	irows, err := r.DB.Query(ctx, `
		SELECT sale_id, product_name, price_cents
		FROM sale_items WHERE sale_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer irows.Close()
	for irows.Next() {
		var saleID string
		var it SaleItem
		if err := irows.Scan(&saleID, &it.ProductName, &it.PriceCents); err != nil {
			return nil, err
		}
		if i, ok := idx[saleID]; ok {
			out[i].Items = append(out[i].Items, it)
		}
	}
	return out, irows.Err()
}

// UpdateInstallment sets one status column. The predicate conjoins id and
// user_id; zero affected rows is reported uniformly as ErrNotFoundOrForbidden.
func (r *Repo) UpdateInstallment(ctx context.Context, ownerID, saleID string, field InstallmentField, status Status) error {
	q := fmt.Sprintf(`UPDATE sales SET %s=$1 WHERE id=$2 AND user_id=$3`, field.Column())
	if field == Installment2 {
		// a 1-installment sale has no second status to set
		q += ` AND installments=2`
	}
	ct, err := r.DB.Exec(ctx, q, status, saleID, ownerID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFoundOrForbidden
	}
	return nil
}

// Delete removes a sale owned by ownerID. Item rows go with it via FK cascade.
func (r *Repo) Delete(ctx context.Context, ownerID, saleID string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM sales WHERE id=$1 AND user_id=$2`, saleID, ownerID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFoundOrForbidden
	}
	return nil
}

// Settle marks an installment paid on behalf of the gateway. It targets the
// sale by primary key only (the gateway is a system principal, not a user)
// and the PENDING guard makes the transition one-directional, so a replayed
// confirmation changes nothing.
func (r *Repo) Settle(ctx context.Context, saleID string, field InstallmentField) (bool, error) {
	q := fmt.Sprintf(`UPDATE sales SET %s=$1 WHERE id=$2 AND %s=$3`, field.Column(), field.Column())
	ct, err := r.DB.Exec(ctx, q, StatusPaid, saleID, StatusPending)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
