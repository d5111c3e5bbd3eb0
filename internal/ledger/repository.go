package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onlytop/finanzas-core/internal/bank"
	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// Repository encapsulates DB operations for the ledger.
type Repository interface {
	Get(ctx context.Context, id int64) (Transaction, error)
	List(ctx context.Context, filter ListFilter) ([]Transaction, shared.Pagination, error)
	SummarizePeriod(ctx context.Context, periodo string) (PeriodSummary, error)
	// MovementBalanceFromEntries recomputes what the bank movement figure
	// should be from live entries alone; the reconciliation sweep compares
	// it to the stored singleton.
	MovementBalanceFromEntries(ctx context.Context) (money.Amount, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction. Bank movement
// adjustment is duplicated here rather than imported from the bank package
// because it must execute on this transaction's connection; pairing the
// ledger write with the balance write in one commit is the whole point.
type TxRepository interface {
	Insert(ctx context.Context, txn Transaction) (Transaction, error)
	GetForUpdate(ctx context.Context, id int64) (Transaction, error)
	MarkReversed(ctx context.Context, originalID, reversalID int64, motivo string, at time.Time) error
	AdjustBankMovement(ctx context.Context, delta money.Amount) (bank.Bank, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const txnColumns = `id, periodo, tipo, origen, monto_usd, ref_kind, ref_id, descripcion, estado, created_by, revertida_por, motivo_reversion, revertida_at, created_at, updated_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	var monto int64
	err := row.Scan(&t.ID, &t.Periodo, &t.Tipo, &t.Origen, &monto, &t.Referencia.Kind, &t.Referencia.ID,
		&t.Descripcion, &t.Estado, &t.CreatedBy, &t.RevertidaPor, &t.MotivoReversion, &t.RevertidaAt,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, fmt.Errorf("ledger: transaction: %w", shared.ErrNotFound)
		}
		return Transaction{}, err
	}
	t.MontoUSD = money.Amount(monto)
	return t, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Transaction, error) {
	return scanTransaction(r.db.QueryRow(ctx, `SELECT `+txnColumns+` FROM ledger_transactions WHERE id=$1`, id))
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Transaction, shared.Pagination, error) {
	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Periodo != "" {
		where = append(where, "periodo = "+arg(filter.Periodo))
	}
	if filter.Tipo != "" {
		where = append(where, "tipo = "+arg(string(filter.Tipo)))
	}
	if filter.Origen != "" {
		where = append(where, "origen = "+arg(string(filter.Origen)))
	}
	if filter.Estado != "" {
		where = append(where, "estado = "+arg(string(filter.Estado)))
	}
	if filter.DateFrom != nil {
		where = append(where, "created_at >= "+arg(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		where = append(where, "created_at < "+arg(*filter.DateTo))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_transactions WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}
	page := shared.NewPagination(filter.Page, filter.PerPage, total)

	query := `SELECT ` + txnColumns + ` FROM ledger_transactions WHERE ` + cond +
		` ORDER BY created_at DESC, id DESC LIMIT ` + arg(page.PerPage) + ` OFFSET ` + arg(page.Offset())
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		out = append(out, t)
	}
	return out, page, rows.Err()
}

func (r *repository) SummarizePeriod(ctx context.Context, periodo string) (PeriodSummary, error) {
	rows, err := r.db.Query(ctx, `SELECT origen,
  COALESCE(SUM(monto_usd) FILTER (WHERE tipo='INGRESO'), 0),
  COALESCE(SUM(monto_usd) FILTER (WHERE tipo='EGRESO'), 0),
  COUNT(*)
FROM ledger_transactions
WHERE periodo=$1 AND estado IN ('EN_MOVIMIENTO','CONSOLIDADO')
GROUP BY origen ORDER BY origen`, periodo)
	if err != nil {
		return PeriodSummary{}, err
	}
	defer rows.Close()
	summary := PeriodSummary{Periodo: periodo}
	for rows.Next() {
		var ot OriginTotal
		var ingresos, egresos int64
		var count int
		if err := rows.Scan(&ot.Origen, &ingresos, &egresos, &count); err != nil {
			return PeriodSummary{}, err
		}
		ot.Ingresos = money.Amount(ingresos)
		ot.Egresos = money.Amount(egresos)
		summary.PorOrigen = append(summary.PorOrigen, ot)
		summary.Ingresos = summary.Ingresos.Add(ot.Ingresos)
		summary.Egresos = summary.Egresos.Add(ot.Egresos)
		summary.Cantidad += count
	}
	summary.Neto = summary.Ingresos.Sub(summary.Egresos)
	return summary, rows.Err()
}

func (r *repository) MovementBalanceFromEntries(ctx context.Context) (money.Amount, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(CASE WHEN tipo='INGRESO' THEN monto_usd ELSE -monto_usd END), 0)
FROM ledger_transactions WHERE estado='EN_MOVIMIENTO'`).Scan(&balance)
	if err != nil {
		return 0, err
	}
	return money.Amount(balance), nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) Insert(ctx context.Context, txn Transaction) (Transaction, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO ledger_transactions
  (periodo, tipo, origen, monto_usd, ref_kind, ref_id, descripcion, estado, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id, created_at, updated_at`,
		txn.Periodo, txn.Tipo, txn.Origen, int64(txn.MontoUSD), txn.Referencia.Kind, txn.Referencia.ID,
		txn.Descripcion, txn.Estado, txn.CreatedBy)
	if err := row.Scan(&txn.ID, &txn.CreatedAt, &txn.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Transaction, error) {
	return scanTransaction(r.tx.QueryRow(ctx, `SELECT `+txnColumns+` FROM ledger_transactions WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) MarkReversed(ctx context.Context, originalID, reversalID int64, motivo string, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ledger_transactions
SET estado='REVERTIDO', revertida_por=$2, motivo_reversion=$3, revertida_at=$4, updated_at=NOW()
WHERE id=$1 AND estado='EN_MOVIMIENTO'`, originalID, reversalID, motivo, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("ledger: mark reversed: %w", shared.ErrAlreadyConsolidated)
	}
	return nil
}

// AdjustBankMovement is a single-statement increment; the movement figure is
// never read into memory and written back.
func (r *txRepository) AdjustBankMovement(ctx context.Context, delta money.Amount) (bank.Bank, error) {
	return bank.ScanRow(r.tx.QueryRow(ctx, `UPDATE bank SET dinero_movimiento_usd = dinero_movimiento_usd + $2, updated_at = NOW()
WHERE id=$1 RETURNING `+bank.Columns,
		bank.SingletonID, int64(delta)))
}
