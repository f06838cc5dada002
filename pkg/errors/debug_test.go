package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpUntypedDefaultsToInternal(t *testing.T) {
	d := Dump(fmt.Errorf("outer: %w", stdErrors.New("inner")))

	assert.Equal(t, "outer: inner", d.TopMessage)
	assert.Empty(t, d.Code)
	assert.Equal(t, http.StatusInternalServerError, d.HTTPStatus)
	require.Len(t, d.Chain, 2)
}

func TestDumpExtractsPostgresDiagnostics(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_contacts_user_cpf", TableName: "contacts"}
	d := Dump(Wrap(CodeValidation, pgErr, "duplicate cpf"))

	assert.Equal(t, CodeValidation, d.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, d.HTTPStatus)
	assert.Equal(t, "23505", d.PGCode)
	assert.Equal(t, "idx_contacts_user_cpf", d.PGConstraint)
	assert.Equal(t, "contacts", d.PGTable)
}

func TestDumpNil(t *testing.T) {
	assert.Equal(t, ErrorDump{}, Dump(nil))
}
