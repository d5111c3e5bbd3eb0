package bank

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlytop/finanzas-core/internal/money"
)

// fakeRow hands a fixed value list to Scan the way a pgx row would,
// rejecting any destination-count mismatch.
type fakeRow struct {
	values []any
}

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) != len(r.values) {
		return fmt.Errorf("number of field descriptions must equal number of destinations, got %d and %d", len(r.values), len(dest))
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *int64:
			*d = v.(int64)
		case *int:
			*d = v.(int)
		case *string:
			*d = v.(string)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("unsupported destination %T", dest[i])
		}
	}
	return nil
}

func TestScanRowMatchesColumnList(t *testing.T) {
	cols := strings.Split(Columns, ",")
	now := time.Now().UTC()
	values := []any{int64(1324075000), int64(0), int64(50000000), "2025-04", 6, now}
	require.Len(t, values, len(cols), "scan destinations must track the column list")

	b, err := ScanRow(fakeRow{values: values})
	require.NoError(t, err)
	assert.Equal(t, money.Amount(1324075000), b.DineroConsolidadoUSD)
	assert.Equal(t, money.Amount(0), b.DineroMovimientoUSD)
	assert.Equal(t, money.Amount(50000000), b.SimulacionAfectoGastosFijosUSD)
	assert.Equal(t, "2025-04", b.PeriodoActual)
	assert.Equal(t, 6, b.TotalPeriodosConsolidados)
	assert.Equal(t, now, b.UpdatedAt)
}

func TestScanRowRejectsExtraColumns(t *testing.T) {
	// A leading id column is the classic drift; pgx refuses the scan.
	values := []any{int64(1), int64(0), int64(0), int64(0), "2025-04", 6, time.Now().UTC()}
	_, err := ScanRow(fakeRow{values: values})
	assert.Error(t, err)
}
