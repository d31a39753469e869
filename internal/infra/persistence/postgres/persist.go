package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"intactcore/internal/records"
	"intactcore/pkg/domain"
)

type rootKey struct {
	entity domain.EntityType
	ac     string
}

// touched returns the roots named by changes in first-seen order.
func touched(changes []domain.Change) []rootKey {
	seen := make(map[rootKey]struct{}, len(changes))
	keys := make([]rootKey, 0, len(changes))
	for _, c := range changes {
		k := rootKey{c.Entity, c.AC}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// persist writes every touched root as it stands in view: present roots are
// upserted, absent ones deleted. Participants and features of interactions
// and complexes are replaced wholesale.
func (s *Store) persist(ctx context.Context, view domain.TransactionView, changes []domain.Change) error {
	keys := touched(changes)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, k := range keys {
			if err := write(ctx, tx, view, k); err != nil {
				return fmt.Errorf("write %s %s: %w", k.entity, k.ac, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Debug("state persisted", "roots", len(keys), "changes", len(changes))
	return nil
}

func write(ctx context.Context, tx bun.Tx, v domain.TransactionView, k rootKey) error {
	switch k.entity {
	case domain.EntityInstitution:
		if o, ok := v.FindInstitution(k.ac); ok {
			return upsert(ctx, tx, records.FromInstitution(o), "ac")
		}
		return remove(ctx, tx, (*records.InstitutionRecord)(nil), "ac", k.ac)
	case domain.EntityCvObject:
		if o, ok := v.FindCvObject(k.ac); ok {
			return upsert(ctx, tx, records.FromCvObject(o), "ac")
		}
		return remove(ctx, tx, (*records.CvObjectRecord)(nil), "ac", k.ac)
	case domain.EntityBioSource:
		if o, ok := v.FindBioSource(k.ac); ok {
			return upsert(ctx, tx, records.FromBioSource(o), "ac")
		}
		return remove(ctx, tx, (*records.BioSourceRecord)(nil), "ac", k.ac)
	case domain.EntityInteractor:
		if o, ok := v.FindInteractor(k.ac); ok {
			return upsert(ctx, tx, records.FromInteractor(o), "ac")
		}
		return remove(ctx, tx, (*records.InteractorRecord)(nil), "ac", k.ac)
	case domain.EntityPublication:
		if o, ok := v.FindPublication(k.ac); ok {
			return upsert(ctx, tx, records.FromPublication(o), "ac")
		}
		return remove(ctx, tx, (*records.PublicationRecord)(nil), "ac", k.ac)
	case domain.EntityExperiment:
		if o, ok := v.FindExperiment(k.ac); ok {
			return upsert(ctx, tx, records.FromExperiment(o), "ac")
		}
		return remove(ctx, tx, (*records.ExperimentRecord)(nil), "ac", k.ac)
	case domain.EntityInteraction:
		if err := dropParticipants(ctx, tx, "interaction_ac", k.ac); err != nil {
			return err
		}
		o, ok := v.FindInteraction(k.ac)
		if !ok {
			return remove(ctx, tx, (*records.InteractionRecord)(nil), "ac", k.ac)
		}
		if err := upsert(ctx, tx, records.FromInteraction(o), "ac"); err != nil {
			return err
		}
		return insertParticipants(ctx, tx, o.Components)
	case domain.EntityComplex:
		if err := dropParticipants(ctx, tx, "parent_complex_ac", k.ac); err != nil {
			return err
		}
		o, ok := v.FindComplex(k.ac)
		if !ok {
			return remove(ctx, tx, (*records.ComplexRecord)(nil), "ac", k.ac)
		}
		if err := upsert(ctx, tx, records.FromComplex(o), "ac"); err != nil {
			return err
		}
		return insertParticipants(ctx, tx, o.Participants)
	case domain.EntityUser:
		if u, ok := v.FindUser(k.ac); ok {
			return upsert(ctx, tx, records.FromUser(u), "login")
		}
		return remove(ctx, tx, (*records.UserRecord)(nil), "login", k.ac)
	}
	return fmt.Errorf("unknown entity %q", k.entity)
}

func upsert[T any](ctx context.Context, tx bun.Tx, row T, pk string) error {
	_, err := tx.NewInsert().Model(&row).On("CONFLICT (?) DO UPDATE", bun.Ident(pk)).Returning("NULL").Exec(ctx)
	return err
}

func remove(ctx context.Context, tx bun.Tx, model any, col, value string) error {
	_, err := tx.NewDelete().Model(model).Where("? = ?", bun.Ident(col), value).Exec(ctx)
	return err
}

func dropParticipants(ctx context.Context, tx bun.Tx, parentCol, parentAC string) error {
	owned := tx.NewSelect().
		Model((*records.ComponentRecord)(nil)).
		Column("ac").
		Where("? = ?", bun.Ident(parentCol), parentAC)
	if _, err := tx.NewDelete().
		Model((*records.FeatureRecord)(nil)).
		Where("component_ac IN (?)", owned).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete features: %w", err)
	}
	if err := remove(ctx, tx, (*records.ComponentRecord)(nil), parentCol, parentAC); err != nil {
		return fmt.Errorf("delete components: %w", err)
	}
	return nil
}

func insertParticipants(ctx context.Context, tx bun.Tx, cs []*domain.Component) error {
	comps, feats := records.Owned(cs)
	if len(comps) > 0 {
		if _, err := tx.NewInsert().Model(&comps).On("CONFLICT (ac) DO UPDATE").Returning("NULL").Exec(ctx); err != nil {
			return fmt.Errorf("insert components: %w", err)
		}
	}
	if len(feats) > 0 {
		if _, err := tx.NewInsert().Model(&feats).On("CONFLICT (ac) DO UPDATE").Returning("NULL").Exec(ctx); err != nil {
			return fmt.Errorf("insert features: %w", err)
		}
	}
	return nil
}
