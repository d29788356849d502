package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/domain/usuario"
)

func newMockUsuarioRepository(t *testing.T) (*GormUsuarioRepository, sqlmock.Sqlmock) {
	gormDB, mock, mockDB := newMockGorm(t, false)
	t.Cleanup(func() { mockDB.Close() })
	return NewGormUsuarioRepository(gormDB), mock
}

func TestGormUsuarioRepository_FindByUsername(t *testing.T) {
	t.Run("lookup is case insensitive", func(t *testing.T) {
		repo, mock := newMockUsuarioRepository(t)
		now := time.Now()

		mock.ExpectQuery("SELECT \\* FROM `usuarios` WHERE username = \\? ORDER BY `usuarios`.`id` LIMIT \\?").
			WithArgs("admin", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "active", "failed_attempts", "created_at", "updated_at"}).
				AddRow(1, "admin", "$2a$10$hash", "ADMIN", true, 0, now, now))

		u, err := repo.FindByUsername(context.Background(), " Admin ")

		require.NoError(t, err)
		assert.Equal(t, usuario.RoleAdmin, u.Role)
		assert.True(t, u.Active)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown username", func(t *testing.T) {
		repo, mock := newMockUsuarioRepository(t)

		mock.ExpectQuery("SELECT \\* FROM `usuarios`").WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByUsername(context.Background(), "nadie")

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormUsuarioRepository_Count(t *testing.T) {
	repo, mock := newMockUsuarioRepository(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `usuarios`$").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	count, err := repo.Count(context.Background())

	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUsuarioRepository_Save(t *testing.T) {
	repo, mock := newMockUsuarioRepository(t)

	u, err := usuario.NewUsuario("operador1", "op@example.com", "Operador", "secreto123", usuario.RoleOperador)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO `usuarios`").
		WillReturnResult(sqlmock.NewResult(2, 1))

	require.NoError(t, repo.Save(context.Background(), u))
	assert.Equal(t, int64(2), u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
