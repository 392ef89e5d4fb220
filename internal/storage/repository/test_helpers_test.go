package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/marketing-simulator/internal/migrations"
	"github.com/magabrotheeeer/marketing-simulator/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя с заданной ролью
func (f *TestDataFactory) CreateUser(t *testing.T, email, name string, role models.Role) int64 {
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO users (email, password_hash, name, role)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		email, "hashedpassword", name, string(role)).Scan(&id)
	require.NoError(t, err)
	return id
}

// TestVerification содержит общие функции для проверки результатов тестов
type TestVerification struct {
	storage *Storage
}

// NewTestVerification создает новый объект для проверки результатов
func NewTestVerification(storage *Storage) *TestVerification {
	return &TestVerification{storage: storage}
}

// VerifyUserRole проверяет роль пользователя в БД
func (v *TestVerification) VerifyUserRole(t *testing.T, id int64, expected models.Role) {
	var role string
	err := v.storage.DB.QueryRow("SELECT role FROM users WHERE id = $1", id).Scan(&role)
	require.NoError(t, err)
	require.Equal(t, string(expected), role)
}

// VerifyPasswordHash проверяет хэш пароля пользователя
func (v *TestVerification) VerifyPasswordHash(t *testing.T, id int64, expected string) {
	var hash string
	err := v.storage.DB.QueryRow("SELECT password_hash FROM users WHERE id = $1", id).Scan(&hash)
	require.NoError(t, err)
	require.Equal(t, expected, hash)
}

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, connStr)
	require.NoError(t, err, "failed to create storage")

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath), "failed to apply migrations")
	require.NoError(t, CheckDatabaseReady(ctx, storage))

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return storage, cleanup
}
