package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Transaction repositories across the codebase pass closures of exactly this
// shape; the assignment fails to compile if the signature drifts.
var _ func(context.Context, *pgxpool.Pool, func(pgx.Tx) error) error = WithTx
