package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/khoahotran/devconnect/internal/domain/account"
	"github.com/khoahotran/devconnect/pkg/apperror"
	"github.com/khoahotran/devconnect/pkg/logger"
)

type AccountRepoIntegrationTestSuite struct {
	suite.Suite
	dbPool      *pgxpool.Pool
	pgContainer *postgres.PostgresContainer
	accountRepo account.Repository
}

func (s *AccountRepoIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(1*time.Minute),
		),
	)
	if err != nil {
		s.T().Fatalf("Failed to start postgres container: %s", err)
	}
	s.pgContainer = pgContainer

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		s.T().Fatalf("Failed to get connection string: %s", err)
	}

	m, err := migrate.New("file://../../migrations", dsn)
	if err != nil {
		s.T().Fatalf("Failed to create migrate instance: %s", err)
	}
	if err := m.Up(); err != nil {
		s.T().Fatalf("Failed to run migrations: %s", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		s.T().Fatalf("Failed to create pgxpool: %s", err)
	}
	s.dbPool = pool
	s.accountRepo = NewPostgresAccountRepo(s.dbPool, logger.NewNopLogger())
}

func (s *AccountRepoIntegrationTestSuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(context.Background()); err != nil {
			s.T().Fatalf("Failed to terminate postgres container: %s", err)
		}
	}
}

func TestAccountRepoIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode.")
	}
	suite.Run(t, new(AccountRepoIntegrationTestSuite))
}

func (s *AccountRepoIntegrationTestSuite) newAccount(name string) *account.Account {
	a := &account.Account{
		ID:           uuid.New(),
		Name:         name,
		Email:        name + "-" + uuid.NewString()[:8] + "@example.com",
		Avatar:       "//www.gravatar.com/avatar/" + name,
		PasswordHash: "hashedpassword",
	}
	s.Require().NoError(s.accountRepo.Save(context.Background(), a))
	return a
}

func (s *AccountRepoIntegrationTestSuite) Test_Save_And_FindByID() {
	a := s.newAccount("ada")

	found, err := s.accountRepo.FindByID(context.Background(), a.ID)

	s.NoError(err)
	s.Equal(a.Name, found.Name)
	s.Equal(a.Avatar, found.Avatar)
	s.Equal(a.PasswordHash, found.PasswordHash)
}

func (s *AccountRepoIntegrationTestSuite) Test_FindByIDs_SkipsMissing() {
	a := s.newAccount("ada")
	b := s.newAccount("grace")
	missing := uuid.New()

	found, err := s.accountRepo.FindByIDs(context.Background(), []uuid.UUID{a.ID, b.ID, missing})

	s.NoError(err)
	s.Len(found, 2)
	s.Equal("grace", found[b.ID].Name)
	s.NotContains(found, missing)
}

func (s *AccountRepoIntegrationTestSuite) Test_Delete() {
	ctx := context.Background()
	a := s.newAccount("ada")

	s.NoError(s.accountRepo.Delete(ctx, a.ID))

	err := s.accountRepo.Delete(ctx, a.ID)
	s.ErrorIs(err, account.ErrAccountNotFound)
	s.ErrorIs(err, apperror.ErrNotFound)
	_, err = s.accountRepo.FindByID(ctx, a.ID)
	s.ErrorIs(err, account.ErrAccountNotFound)
}
