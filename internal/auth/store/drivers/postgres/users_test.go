package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/internal/auth/store"
	"github.com/eduflowhub/eduflow/internal/auth/store/drivers/postgres"
	"github.com/eduflowhub/eduflow/pkg/idx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newStore starts a throwaway PostgreSQL container. Skipped with -short or
// when no Docker daemon is reachable.
func newStore(t *testing.T) *postgres.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres driver tests need docker")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "eduflow",
			"POSTGRES_PASSWORD": "eduflow",
			"POSTGRES_DB":       "eduflow",
		},
		// The server restarts once after init, so wait for the second line.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://eduflow:eduflow@%s:%s/eduflow?sslmode=disable", host, port.Port())
	s, err := postgres.NewStore(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newUser(email string) domain.User {
	return domain.User{
		ID:           idx.New().String(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "$2a$10$hash",
		Role:         domain.RoleStudent,
		Status:       domain.StatusPending,
	}
}

// One container serves every subtest; each works on its own users.
func TestPostgresUsers(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	users := s.Users()

	t.Run("create and find", func(t *testing.T) {
		u := newUser(" Lan.Teacher@EduFlow.com")
		u.Role = domain.RoleTeacher
		require.NoError(t, users.Create(ctx, u))

		got, err := users.FindByEmail(ctx, "lan.teacher@eduflow.com")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.Equal(t, domain.RoleTeacher, got.Role)
		require.Empty(t, got.PasswordHash)

		got, err = users.FindByEmailWithPassword(ctx, "LAN.TEACHER@eduflow.com")
		require.NoError(t, err)
		require.Equal(t, "$2a$10$hash", got.PasswordHash)

		require.ErrorIs(t, users.Create(ctx, newUser("lan.teacher@eduflow.com")), store.ErrAlreadyExists)

		_, err = users.FindByID(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("refresh token rotation has one winner", func(t *testing.T) {
		u := newUser("rotate@eduflow.com")
		require.NoError(t, users.Create(ctx, u))
		first := "fp-1"
		require.NoError(t, users.UpdateRefreshToken(ctx, u.ID, &first))

		var (
			wg   sync.WaitGroup
			mu    sync.Mutex
			wins  int
			stale int
		)
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.Users().RotateRefreshToken(ctx, u.ID, "fp-1", fmt.Sprintf("fp-next-%d", i))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, store.ErrStale):
					stale++
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, wins)
		require.Equal(t, 7, stale)

		require.NoError(t, users.UpdateRefreshToken(ctx, u.ID, nil))
		got, err := users.FindByIDWithRefreshToken(ctx, u.ID)
		require.NoError(t, err)
		require.Empty(t, got.RefreshToken)
	})

	t.Run("verification code", func(t *testing.T) {
		u := newUser("verify@eduflow.com")
		require.NoError(t, users.Create(ctx, u))

		now := time.Now().UTC()
		require.NoError(t, users.UpdateVerificationCode(ctx, u.ID, "digest", now.Add(5*time.Minute)))

		got, err := users.FindByVerificationCode(ctx, "digest", now)
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)

		_, err = users.FindByVerificationCode(ctx, "digest", now.Add(5*time.Minute))
		require.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, users.MarkEmailVerified(ctx, u.ID))
		got, err = users.FindByID(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, got.IsEmailVerified)
		require.Equal(t, domain.StatusActive, got.Status)

		_, err = users.FindByVerificationCode(ctx, "digest", now)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("consume verification code once", func(t *testing.T) {
		u := newUser("consume@eduflow.com")
		u.Status = domain.StatusSuspended
		require.NoError(t, users.Create(ctx, u))
		now := time.Now().UTC()
		require.NoError(t, users.UpdateVerificationCode(ctx, u.ID, "consume-digest", now.Add(5*time.Minute)))

		const racers = 8
		var wg sync.WaitGroup
		results := make(chan error, racers)
		for range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := users.ConsumeVerificationCode(ctx, "consume-digest", now)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		wins := 0
		for err := range results {
			if err == nil {
				wins++
				continue
			}
			require.ErrorIs(t, err, store.ErrNotFound)
		}
		require.Equal(t, 1, wins)

		got, err := users.FindByID(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, got.IsEmailVerified)
		require.Equal(t, domain.StatusSuspended, got.Status, "only PENDING is activated")
	})

	t.Run("update fields", func(t *testing.T) {
		u := newUser("patch@eduflow.com")
		require.NoError(t, users.Create(ctx, u))
		require.NoError(t, users.Create(ctx, newUser("taken@eduflow.com")))

		name := "Renamed"
		active := domain.StatusActive
		got, err := users.UpdateFields(ctx, u.ID, domain.UserPatch{Name: &name, Status: &active})
		require.NoError(t, err)
		require.Equal(t, "Renamed", got.Name)
		require.True(t, got.IsEmailVerified)

		taken := "Taken@eduflow.com"
		_, err = users.UpdateFields(ctx, u.ID, domain.UserPatch{Email: &taken})
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		_, err = users.UpdateFields(ctx, "missing", domain.UserPatch{Name: &name})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("list count and delete", func(t *testing.T) {
		admin := newUser("list.admin@eduflow.com")
		admin.Role = domain.RoleAdmin
		require.NoError(t, users.Create(ctx, admin))

		list, err := users.List(ctx, domain.UserFilter{Role: domain.RoleAdmin, Limit: 10})
		require.NoError(t, err)
		require.Len(t, list, 1)

		n, err := users.Count(ctx, domain.UserFilter{Search: "LIST.ADMIN"})
		require.NoError(t, err)
		require.Equal(t, 1, n)

		require.NoError(t, users.Delete(ctx, admin.ID))
		require.ErrorIs(t, users.Delete(ctx, admin.ID), store.ErrNotFound)
	})

	t.Run("transaction rollback", func(t *testing.T) {
		u := newUser("rollback@eduflow.com")
		err := s.WithTx(ctx, func(tx store.Tx) error {
			require.NoError(t, tx.Users().Create(ctx, u))
			return store.ErrStale
		})
		require.ErrorIs(t, err, store.ErrStale)

		_, err = users.FindByID(ctx, u.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
