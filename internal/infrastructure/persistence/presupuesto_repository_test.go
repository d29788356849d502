package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgi/backend/internal/domain/presupuesto"
	"github.com/sgi/backend/internal/domain/shared"
)

func newMockPresupuestoRepository(t *testing.T) (*GormPresupuestoRepository, sqlmock.Sqlmock) {
	gormDB, mock, mockDB := newMockGorm(t, false)
	t.Cleanup(func() { mockDB.Close() })
	return NewGormPresupuestoRepository(gormDB), mock
}

func TestGormPresupuestoRepository_FindByID(t *testing.T) {
	repo, mock := newMockPresupuestoRepository(t)
	issue := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT \\* FROM `presupuestos` WHERE id = \\? AND `presupuestos`.`deleted_at` IS NULL").
		WithArgs(int64(3), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "number", "year", "cliente_id", "title", "issue_date", "valid_until", "status", "subtotal", "iva_rate", "iva_amount", "total"}).
			AddRow(3, "P-2024-0003", 2024, 5, "Ampliación nave", issue, issue.AddDate(0, 0, 30), "ENVIADO", "1000.00", "21.00", "210.00", "1210.00"))
	mock.ExpectQuery("SELECT \\* FROM `presupuesto_items` WHERE `presupuesto_items`.`presupuesto_id` = \\? ORDER BY position ASC").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "presupuesto_id", "position", "description", "quantity", "unit_price", "amount"}).
			AddRow(11, 3, 1, "Mano de obra", "10", "100", "1000.00"))

	p, err := repo.FindByID(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, "P-2024-0003", p.Number)
	assert.Equal(t, presupuesto.StatusEnviado, p.Status)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "Mano de obra", p.Items[0].Description)
	assert.True(t, decimal.NewFromInt(1210).Equal(p.Total))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPresupuestoRepository_FindAll(t *testing.T) {
	repo, mock := newMockPresupuestoRepository(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	filter := shared.DefaultFilter().With("cliente_id", int64(5))
	filter.From = &from
	filter.OrderBy = "total"

	mock.ExpectQuery("SELECT \\* FROM `presupuestos` WHERE cliente_id = \\? AND issue_date >= \\? AND `presupuestos`.`deleted_at` IS NULL ORDER BY total DESC LIMIT \\?").
		WithArgs(int64(5), from, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "number"}).AddRow(1, "P-2024-0001"))

	list, err := repo.FindAll(context.Background(), filter)

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPresupuestoRepository_Save(t *testing.T) {
	repo, mock := newMockPresupuestoRepository(t)

	p, err := presupuesto.NewPresupuesto(5, "Ampliación nave", time.Now(), decimal.NewFromInt(21))
	require.NoError(t, err)
	p.Number = presupuesto.FormatNumber(2024, 1)

	l1, err := shared.NewLine("Mano de obra", decimal.NewFromInt(10), decimal.NewFromInt(100))
	require.NoError(t, err)
	l2, err := shared.NewLine("Materiales", decimal.NewFromInt(1), decimal.NewFromInt(500))
	require.NoError(t, err)
	require.NoError(t, p.ReplaceItems([]shared.Line{l1, l2}))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `presupuestos`").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec("DELETE FROM `presupuesto_items` WHERE presupuesto_id = \\?").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO `presupuesto_items`").
		WillReturnResult(sqlmock.NewResult(20, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), p))

	assert.Equal(t, int64(9), p.ID)
	assert.Equal(t, int64(20), p.Items[0].ID)
	assert.Equal(t, int64(21), p.Items[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPresupuestoRepository_Save_RollsBackOnItemFailure(t *testing.T) {
	repo, mock := newMockPresupuestoRepository(t)

	p, err := presupuesto.NewPresupuesto(5, "Ampliación nave", time.Now(), decimal.NewFromInt(21))
	require.NoError(t, err)
	p.ID = 9
	l1, err := shared.NewLine("Mano de obra", decimal.NewFromInt(10), decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NoError(t, p.ReplaceItems([]shared.Line{l1}))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `presupuestos` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `presupuesto_items`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `presupuesto_items`").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = repo.Save(context.Background(), p)

	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPresupuestoRepository_Save_DuplicateNumber(t *testing.T) {
	repo, mock := newMockPresupuestoRepository(t)

	p, err := presupuesto.NewPresupuesto(5, "Ampliación nave", time.Now(), decimal.NewFromInt(21))
	require.NoError(t, err)
	p.Number = presupuesto.FormatNumber(2026, 7)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `presupuestos`").
		WillReturnError(&gomysql.MySQLError{Number: 1062, Message: "Duplicate entry 'P-2026-0007' for key 'idx_presupuestos_number'"})
	mock.ExpectRollback()

	err = repo.Save(context.Background(), p)

	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	assert.Zero(t, p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPresupuestoRepository_NextNumber(t *testing.T) {
	t.Run("continues after the highest number", func(t *testing.T) {
		repo, mock := newMockPresupuestoRepository(t)

		mock.ExpectQuery("SELECT COALESCE\\(MAX\\(CAST\\(SUBSTRING_INDEX\\(number, '-', -1\\) AS UNSIGNED\\)\\), 0\\) FROM `presupuestos` WHERE year = \\?$").
			WithArgs(2024).
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(41))

		n, err := repo.NextNumber(context.Background(), 2024)

		require.NoError(t, err)
		assert.Equal(t, 42, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("first of the year", func(t *testing.T) {
		repo, mock := newMockPresupuestoRepository(t)

		mock.ExpectQuery("FROM `presupuestos` WHERE year = \\?").
			WithArgs(2025).
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(0))

		n, err := repo.NextNumber(context.Background(), 2025)

		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestGormPresupuestoRepository_FindExpirable(t *testing.T) {
	repo, mock := newMockPresupuestoRepository(t)
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)
	today := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT \\* FROM `presupuestos` WHERE \\(status = \\? AND valid_until < \\?\\) AND `presupuestos`.`deleted_at` IS NULL ORDER BY valid_until ASC LIMIT \\?").
		WithArgs("ENVIADO", today, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(1, "ENVIADO"))

	list, err := repo.FindExpirable(context.Background(), now, 50)

	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPresupuestoRepository_CountByStatus(t *testing.T) {
	repo, mock := newMockPresupuestoRepository(t)

	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\) AS count FROM `presupuestos` WHERE `presupuestos`.`deleted_at` IS NULL GROUP BY `status`").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("BORRADOR", 2).
			AddRow("APROBADO", 5))

	counts, err := repo.CountByStatus(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[presupuesto.StatusBorrador])
	assert.Equal(t, int64(5), counts[presupuesto.StatusAprobado])
	assert.Zero(t, counts[presupuesto.StatusVencido])
}
