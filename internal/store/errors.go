package store

import (
	"database/sql"
	stderrors "errors"

	apperrors "greencrew/internal/common/errors"

	"github.com/lib/pq"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapError turns driver errors into the error taxonomy.
func mapError(op, entity, id string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFoundError(entity, id)
	}
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgUniqueViolation:
			return apperrors.NewConflictError(entity+" already exists", pqErr.Constraint)
		case pgForeignKeyViolation:
			return apperrors.NewNotFoundError("referenced entity", pqErr.Constraint)
		}
	}
	return apperrors.NewDatabaseError(op, err)
}

// staleStatus reports a compare-and-set that matched no row.
func staleStatus(entity, id, from, to string) error {
	return apperrors.NewStateError(entity, from, "move to "+to).
		WithMetadata("id", id).
		WithMetadata("reason", "status changed concurrently or row missing")
}
