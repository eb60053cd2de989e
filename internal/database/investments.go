package database

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
)

var ErrInvestmentNotFound = errors.New("investment not found")

// ListInvestments returns every holding owned by the user, most recently
// updated first.
func (r *Repo) ListInvestments(ctx context.Context, userID string) ([]Investment, error) {
	investments := []Investment{}
	err := r.db.SelectContext(ctx, &investments,
		`SELECT * FROM investments WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return investments, nil
}

func (r *Repo) GetInvestment(ctx context.Context, userID, id string) (*Investment, error) {
	var inv Investment
	err := r.db.GetContext(ctx, &inv,
		`SELECT * FROM investments WHERE id = $1 AND user_id = $2`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvestmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *Repo) InsertInvestment(ctx context.Context, inv Investment) (string, error) {
	var id string
	q := `INSERT INTO investments
		(id, user_id, ticker, name, type, quantity, average_price, total_invested,
		 current_value, currency, notes, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, now(), now())
		RETURNING id`
	err := r.db.QueryRowContext(ctx, q,
		inv.UserID, strings.ToUpper(inv.Ticker), inv.Name, inv.Type,
		inv.Quantity.String(), inv.AveragePrice, inv.TotalInvested,
		inv.CurrentValue, inv.Currency, inv.Notes).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateInvestment applies the non-nil fields; ownership is enforced in the
// WHERE clause so one user can never touch another's holding.
func (r *Repo) UpdateInvestment(ctx context.Context, userID, id string, update InvestmentUpdate) error {
	set := []string{"updated_at = now()"}
	args := []interface{}{id, userID}

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, column+" = $"+strconv.Itoa(len(args)))
	}
	if update.Quantity != nil {
		add("quantity", update.Quantity.String())
	}
	if update.AveragePrice != nil {
		add("average_price", *update.AveragePrice)
	}
	if update.TotalInvested != nil {
		add("total_invested", *update.TotalInvested)
	}
	if update.CurrentValue != nil {
		add("current_value", *update.CurrentValue)
	}
	if update.Notes != nil {
		add("notes", *update.Notes)
	}

	q := `UPDATE investments SET ` + strings.Join(set, ", ") + ` WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvestmentNotFound
	}
	return nil
}

func (r *Repo) DeleteInvestment(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM investments WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvestmentNotFound
	}
	return nil
}
