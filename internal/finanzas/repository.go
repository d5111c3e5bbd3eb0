package finanzas

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// Repository encapsulates DB operations for model finance records.
type Repository interface {
	Get(ctx context.Context, id int64) (ModelFinance, error)
	GetByModeloPeriodo(ctx context.Context, modeloID string, mes, anio int) (ModelFinance, error)
	ListByPeriodo(ctx context.Context, mes, anio int) ([]ModelFinance, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, modeloID string, mes, anio int) (ModelFinance, bool, error)
	// Upsert overwrites in place on (modelo_id, mes, anio) conflict; the
	// unique index carries the one-record-per-model-per-month invariant.
	Upsert(ctx context.Context, rec ModelFinance) (ModelFinance, error)
	UpdateEstado(ctx context.Context, id int64, estado Status) error
	SetLedgerTxn(ctx context.Context, id int64, txnID *int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const financeColumns = `id, modelo_id, mes, anio, periodo, periodo_id, ventas_netas_usd, comision_agencia_usd, comision_banco_usd, ganancia_modelo_usd, ganancia_onlytop_usd, agency_pct_bp, bank_pct_bp, estado, ledger_txn_id, created_at, updated_at`

func scanFinance(row pgx.Row) (ModelFinance, error) {
	var f ModelFinance
	var ventas, agencia, banco, modelo, onlytop, agencyBP, bankBP int64
	err := row.Scan(&f.ID, &f.ModeloID, &f.Mes, &f.Anio, &f.Periodo, &f.PeriodoID,
		&ventas, &agencia, &banco, &modelo, &onlytop, &agencyBP, &bankBP,
		&f.Estado, &f.LedgerTxnID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ModelFinance{}, fmt.Errorf("finanzas: record: %w", shared.ErrNotFound)
		}
		return ModelFinance{}, err
	}
	f.VentasNetasUSD = money.Amount(ventas)
	f.ComisionAgenciaUSD = money.Amount(agencia)
	f.ComisionBancoUSD = money.Amount(banco)
	f.GananciaModeloUSD = money.Amount(modelo)
	f.GananciaOnlyTopUSD = money.Amount(onlytop)
	f.AgencyPctBP = money.BasisPoints(agencyBP)
	f.BankPctBP = money.BasisPoints(bankBP)
	return f, nil
}

func (r *repository) Get(ctx context.Context, id int64) (ModelFinance, error) {
	return scanFinance(r.db.QueryRow(ctx, `SELECT `+financeColumns+` FROM model_finances WHERE id=$1`, id))
}

func (r *repository) GetByModeloPeriodo(ctx context.Context, modeloID string, mes, anio int) (ModelFinance, error) {
	return scanFinance(r.db.QueryRow(ctx, `SELECT `+financeColumns+` FROM model_finances WHERE modelo_id=$1 AND mes=$2 AND anio=$3`, modeloID, mes, anio))
}

func (r *repository) ListByPeriodo(ctx context.Context, mes, anio int) ([]ModelFinance, error) {
	rows, err := r.db.Query(ctx, `SELECT `+financeColumns+` FROM model_finances WHERE mes=$1 AND anio=$2 ORDER BY modelo_id ASC`, mes, anio)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ModelFinance
	for rows.Next() {
		f, err := scanFinance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
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

func (r *txRepository) GetForUpdate(ctx context.Context, modeloID string, mes, anio int) (ModelFinance, bool, error) {
	f, err := scanFinance(r.tx.QueryRow(ctx, `SELECT `+financeColumns+` FROM model_finances WHERE modelo_id=$1 AND mes=$2 AND anio=$3 FOR UPDATE`, modeloID, mes, anio))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return ModelFinance{}, false, nil
		}
		return ModelFinance{}, false, err
	}
	return f, true, nil
}

func (r *txRepository) Upsert(ctx context.Context, rec ModelFinance) (ModelFinance, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO model_finances
  (modelo_id, mes, anio, periodo, ventas_netas_usd, comision_agencia_usd, comision_banco_usd, ganancia_modelo_usd, ganancia_onlytop_usd, agency_pct_bp, bank_pct_bp, estado)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (modelo_id, mes, anio) DO UPDATE SET
  ventas_netas_usd=EXCLUDED.ventas_netas_usd,
  comision_agencia_usd=EXCLUDED.comision_agencia_usd,
  comision_banco_usd=EXCLUDED.comision_banco_usd,
  ganancia_modelo_usd=EXCLUDED.ganancia_modelo_usd,
  ganancia_onlytop_usd=EXCLUDED.ganancia_onlytop_usd,
  agency_pct_bp=EXCLUDED.agency_pct_bp,
  bank_pct_bp=EXCLUDED.bank_pct_bp,
  estado=EXCLUDED.estado,
  updated_at=NOW()
RETURNING `+financeColumns,
		rec.ModeloID, rec.Mes, rec.Anio, rec.Periodo,
		int64(rec.VentasNetasUSD), int64(rec.ComisionAgenciaUSD), int64(rec.ComisionBancoUSD),
		int64(rec.GananciaModeloUSD), int64(rec.GananciaOnlyTopUSD),
		int64(rec.AgencyPctBP), int64(rec.BankPctBP), rec.Estado)
	return scanFinance(row)
}

func (r *txRepository) UpdateEstado(ctx context.Context, id int64, estado Status) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE model_finances SET estado=$2, updated_at=NOW() WHERE id=$1`, id, estado)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("finanzas: %w", shared.ErrNotFound)
	}
	return nil
}

func (r *txRepository) SetLedgerTxn(ctx context.Context, id int64, txnID *int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE model_finances SET ledger_txn_id=$2, updated_at=NOW() WHERE id=$1`, id, txnID)
	return err
}
