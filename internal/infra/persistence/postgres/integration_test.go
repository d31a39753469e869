package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"intactcore/pkg/domain"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("intact"),
		postgres.WithUsername("intact"),
		postgres.WithPassword("intact"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	})
	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

func TestPostgresStoreIntegration(t *testing.T) {
	ctx := context.Background()
	dsn := startPostgres(t)

	version, err := MigrateDSN(ctx, dsn)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	store, err := NewStore(ctx, dsn, domain.NewRulesEngine(), WithBlockSize(10))
	require.NoError(t, err)

	var pubAC, interactionAC string
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.SaveUser(&domain.User{Login: "alice", Roles: []domain.Role{domain.RoleCurator}}); err != nil {
			return err
		}
		pub := &domain.Publication{ShortLabel: "12345", Curation: domain.Curation{Status: domain.StatusNew, CurrentOwner: domain.UserStub("alice")}}
		exp := &domain.Experiment{ShortLabel: "exp-1"}
		pub.AddExperiment(exp)
		in := &domain.Interaction{ShortLabel: "a-b"}
		exp.AddInteraction(in)
		comp := &domain.Component{Interactor: &domain.Interactor{ShortLabel: "a"}, Stoichiometry: 2}
		in.AddComponent(comp)
		comp.AddFeature(&domain.Feature{ShortLabel: "region", Ranges: []domain.Range{{FromStart: 1, FromEnd: 1, ToStart: 10, ToEnd: 10}}})
		created, err := tx.CreatePublication(pub)
		if err != nil {
			return err
		}
		pubAC = created.AC
		interactionAC = created.Experiments[0].Interactions[0].AC
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "EBI-1", pubAC)

	t.Run("reload", func(t *testing.T) {
		reloaded, err := NewStore(ctx, dsn, domain.NewRulesEngine(), WithBlockSize(10))
		require.NoError(t, err)
		defer func() { _ = reloaded.Close() }()

		pub, ok := reloaded.GetPublication(pubAC)
		require.True(t, ok)
		assert.Equal(t, "alice", pub.Curation.CurrentOwner.Login)
		require.Len(t, pub.Experiments, 1)
		require.Len(t, pub.Experiments[0].Interactions, 1)
		comp := pub.Experiments[0].Interactions[0].Components[0]
		assert.Equal(t, 2.0, comp.Stoichiometry)
		require.Len(t, comp.Features, 1)
		assert.Equal(t, "1-10", comp.Features[0].Ranges[0].String())

		// the second store reserves the next block of the shared sequence
		var ac string
		_, err = reloaded.RunInTransaction(ctx, func(tx domain.Transaction) error {
			inst, err := tx.CreateInstitution(&domain.Institution{ShortLabel: "ebi"})
			if err != nil {
				return err
			}
			ac = inst.AC
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "EBI-11", ac)
	})

	t.Run("delete", func(t *testing.T) {
		_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.DeleteInteraction(interactionAC)
		})
		require.NoError(t, err)

		var count int
		err = store.DB().NewSelect().TableExpr("intact_component").ColumnExpr("count(*)").Scan(ctx, &count)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	require.NoError(t, store.Close())
}
