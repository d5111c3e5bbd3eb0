package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onlytop/finanzas-core/internal/bank"
	"github.com/onlytop/finanzas-core/internal/money"
)

// ReconcileJob cross-checks the bank's running movement balance against the
// signed sum of live ledger entries. The two are written in the same store
// transaction, so any drift means a bug or manual surgery and is logged
// loudly for follow-up; retrying would not repair it.
type ReconcileJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewReconcileJob initialises the reconciliation handler.
func NewReconcileJob(pool *pgxpool.Pool, logger *slog.Logger) *ReconcileJob {
	return &ReconcileJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the reconciliation sweep.
func (j *ReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("reconcile: handler not configured")
	}
	var payload ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := j.now()
	logger := j.logger()
	if payload.Periodo != "" {
		logger = logger.With(slog.String("periodo", payload.Periodo))
	}
	logger.Info("starting balance reconciliation")

	ledgerBalance, err := j.ledgerBalance(ctx, payload.Periodo)
	if err != nil {
		logger.Error("reconcile: ledger sum failed", slog.Any("error", err))
		return err
	}
	b, err := j.bankState(ctx)
	if err != nil {
		logger.Error("reconcile: bank read failed", slog.Any("error", err))
		return err
	}

	drift := b.DineroMovimientoUSD.Sub(ledgerBalance)
	if drift != 0 {
		logger.Error("movement balance drift detected",
			slog.String("bank_movimiento", b.DineroMovimientoUSD.String()),
			slog.String("ledger_balance", ledgerBalance.String()),
			slog.String("drift", drift.String()),
		)
	} else {
		logger.Info("movement balance reconciled",
			slog.String("balance", ledgerBalance.String()),
			slog.Duration("duration", time.Since(start)),
		)
	}
	return nil
}

func (j *ReconcileJob) ledgerBalance(ctx context.Context, periodo string) (money.Amount, error) {
	query := `SELECT COALESCE(SUM(CASE WHEN tipo = 'INGRESO' THEN monto_usd ELSE -monto_usd END), 0)
		FROM ledger_transactions WHERE estado = 'EN_MOVIMIENTO'`
	args := []any{}
	if periodo != "" {
		query += ` AND periodo = $1`
		args = append(args, periodo)
	}
	var balance money.Amount
	err := j.Pool.QueryRow(ctx, query, args...).Scan(&balance)
	return balance, err
}

func (j *ReconcileJob) bankState(ctx context.Context) (bank.Bank, error) {
	row := j.Pool.QueryRow(ctx, `SELECT `+bank.Columns+` FROM bank WHERE id = $1`, bank.SingletonID)
	return bank.ScanRow(row)
}

func (j *ReconcileJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *ReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
