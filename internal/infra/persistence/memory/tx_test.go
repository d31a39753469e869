package memory

import (
	"context"
	"errors"
	"testing"

	"intactcore/pkg/domain"
)

func TestCreateRejectsInvalidInput(t *testing.T) {
	store := newTestStore()
	dbAC, _ := seed(t, store)
	_, _ = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreatePublication(nil); err == nil {
			t.Fatalf("expected nil publication error")
		}
		stub := &domain.Institution{IntactObject: domain.Stub("EBI-50")}
		if _, err := tx.CreateInstitution(stub); err == nil {
			t.Fatalf("expected stub error")
		}
		_, err := tx.CreateCvObject(&domain.CvObject{IntactObject: domain.IntactObject{AC: dbAC}, ShortLabel: "again"})
		if !errors.Is(err, domain.ErrDuplicate) {
			t.Fatalf("expected duplicate error, got %v", err)
		}
		return nil
	})
}

func TestCreateKeepsSuppliedAccession(t *testing.T) {
	store := newTestStore()
	run(t, store, func(tx domain.Transaction) error {
		in, err := tx.CreateInstitution(&domain.Institution{IntactObject: domain.IntactObject{AC: "EBI-500"}, ShortLabel: "ebi"})
		if err != nil {
			return err
		}
		if in.AC != "EBI-500" {
			t.Fatalf("expected supplied accession, got %s", in.AC)
		}
		return nil
	})
}

func TestCreateCopiesInput(t *testing.T) {
	store := newTestStore()
	input := &domain.Institution{ShortLabel: "ebi"}
	run(t, store, func(tx domain.Transaction) error {
		stored, err := tx.CreateInstitution(input)
		if err != nil {
			return err
		}
		if stored == input {
			t.Fatalf("expected the store to keep a copy")
		}
		return nil
	})
	if input.AC != "" {
		t.Fatalf("input must not be modified")
	}
}

func TestUpdatePublication(t *testing.T) {
	store := newTestStore()
	_, pubAC := seed(t, store)
	var changes []domain.Change
	store.SetPersister(func(_ context.Context, _ domain.TransactionView, c []domain.Change) error {
		changes = c
		return nil
	})
	run(t, store, func(tx domain.Transaction) error {
		_, err := tx.UpdatePublication(pubAC, func(p *domain.Publication) error {
			p.ShortLabel = "smith-2024b"
			p.AC = "EBI-999"
			p.AddExperiment(&domain.Experiment{ShortLabel: "smith-2024b-2"})
			return nil
		})
		return err
	})
	pub, ok := store.GetPublication(pubAC)
	if !ok || pub.ShortLabel != "smith-2024b" {
		t.Fatalf("expected updated publication")
	}
	if len(pub.Experiments) != 2 || pub.Experiments[1].AC != "EBI-8" {
		t.Fatalf("expected new experiment to be attached with a fresh accession")
	}
	if len(changes) != 2 {
		t.Fatalf("expected experiment create and publication update, got %d", len(changes))
	}
	if changes[0].Entity != domain.EntityExperiment || changes[0].Action != domain.ActionCreate {
		t.Fatalf("unexpected first change %+v", changes[0])
	}
	upd := changes[1]
	if upd.Action != domain.ActionUpdate || upd.AC != pubAC {
		t.Fatalf("unexpected update change %+v", upd)
	}
	if before := upd.Before.(*domain.Publication); before.ShortLabel != "smith-2024" {
		t.Fatalf("expected before to keep the old label, got %s", before.ShortLabel)
	}
}

func TestUpdateErrors(t *testing.T) {
	store := newTestStore()
	_, pubAC := seed(t, store)
	boom := errors.New("boom")
	_, _ = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.UpdateComplex("EBI-404", func(*domain.Complex) error { return nil }); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		if _, err := tx.UpdatePublication(pubAC, func(*domain.Publication) error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("expected mutator error, got %v", err)
		}
		return nil
	})
}

func TestUpdateKeepsEventHistoryInBefore(t *testing.T) {
	store := newTestStore()
	_, pubAC := seed(t, store)
	run(t, store, func(tx domain.Transaction) error {
		_, err := tx.UpdatePublication(pubAC, func(p *domain.Publication) error {
			p.Events = append(p.Events, &domain.LifecycleEvent{ID: "1", Event: domain.EventCreated}, &domain.LifecycleEvent{ID: "2", Event: domain.EventReserved})
			return nil
		})
		return err
	})
	var before *domain.Publication
	store.SetPersister(func(_ context.Context, _ domain.TransactionView, c []domain.Change) error {
		before = c[0].Before.(*domain.Publication)
		return nil
	})
	run(t, store, func(tx domain.Transaction) error {
		_, err := tx.UpdatePublication(pubAC, func(p *domain.Publication) error {
			p.RemoveLastEventOf(domain.EventCreated)
			return nil
		})
		return err
	})
	if len(before.Events) != 2 || before.Events[0].ID != "1" || before.Events[1].ID != "2" {
		t.Fatalf("before history was modified")
	}
}

func TestDeletePublicationCascades(t *testing.T) {
	store := newTestStore()
	_, pubAC := seed(t, store)
	run(t, store, func(tx domain.Transaction) error {
		return tx.DeletePublication(pubAC)
	})
	_ = store.View(context.Background(), func(v domain.TransactionView) error {
		if len(v.ListPublications()) != 0 || len(v.ListExperiments()) != 0 || len(v.ListInteractions()) != 0 {
			t.Fatalf("expected cascade delete")
		}
		if len(v.ListInteractors()) != 1 {
			t.Fatalf("interactors are not owned by publications")
		}
		return nil
	})
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeletePublication(pubAC)
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteExperimentUnlinks(t *testing.T) {
	store := newTestStore()
	_, pubAC := seed(t, store)
	run(t, store, func(tx domain.Transaction) error {
		return tx.DeleteExperiment("EBI-3")
	})
	pub, _ := store.GetPublication(pubAC)
	if len(pub.Experiments) != 0 {
		t.Fatalf("expected experiment to be unlinked from the publication")
	}
	_ = store.View(context.Background(), func(v domain.TransactionView) error {
		in, ok := v.FindInteraction("EBI-4")
		if !ok || len(in.Experiments) != 0 {
			t.Fatalf("expected interaction to survive without experiments")
		}
		return nil
	})
}

func TestDeleteInteractionUnlinks(t *testing.T) {
	store := newTestStore()
	seed(t, store)
	run(t, store, func(tx domain.Transaction) error {
		return tx.DeleteInteraction("EBI-4")
	})
	_ = store.View(context.Background(), func(v domain.TransactionView) error {
		exp, _ := v.FindExperiment("EBI-3")
		if len(exp.Interactions) != 0 {
			t.Fatalf("expected interaction to be unlinked")
		}
		return nil
	})
}

func TestCvObjectLinksBothSides(t *testing.T) {
	store := newTestStore()
	run(t, store, func(tx domain.Transaction) error {
		parent, err := tx.CreateCvObject(&domain.CvObject{Class: domain.CvInteractionType, Identifier: "MI:0190", ShortLabel: "interaction type"})
		if err != nil {
			return err
		}
		child, err := tx.CreateCvObject(&domain.CvObject{Class: domain.CvInteractionType, Identifier: "MI:0915", ShortLabel: "physical association", Parents: []*domain.CvObject{parent}})
		if err != nil {
			return err
		}
		if len(parent.Children) != 1 || parent.Children[0] != child {
			t.Fatalf("expected parent to list the child")
		}
		return nil
	})
	run(t, store, func(tx domain.Transaction) error { return tx.DeleteCvObject("EBI-2") })
	parent, _ := store.GetCvObject("EBI-1")
	if len(parent.Children) != 0 {
		t.Fatalf("expected child to be unlinked from its parent")
	}
}

func TestCreateExperimentJoinsPublication(t *testing.T) {
	store := newTestStore()
	_, pubAC := seed(t, store)
	pub, _ := store.GetPublication(pubAC)
	run(t, store, func(tx domain.Transaction) error {
		exp, err := tx.CreateExperiment(&domain.Experiment{ShortLabel: "extra", Publication: pub})
		if err != nil {
			return err
		}
		stored, _ := tx.FindPublication(pubAC)
		if exp.Publication != stored || len(stored.Experiments) != 2 {
			t.Fatalf("expected experiment to join the stored publication")
		}
		return nil
	})
}

func TestComplexAccessions(t *testing.T) {
	store := newTestStore()
	run(t, store, func(tx domain.Transaction) error {
		x, err := tx.CreateComplex(&domain.Complex{ShortLabel: "mediator"})
		if err != nil {
			return err
		}
		x.AddParticipant(&domain.Component{Interactor: &domain.Interactor{ShortLabel: "med1"}, Stoichiometry: 1})
		if _, err := tx.UpdateComplex(x.AC, func(*domain.Complex) error { return nil }); err != nil {
			return err
		}
		if x.ComplexAC != "CPX-1" || x.Version != 1 || x.VersionedAC() != "CPX-1.1" {
			t.Fatalf("unexpected complex accession %s", x.VersionedAC())
		}
		if x.Participants[0].AC == "" || x.Participants[0].Complex != x {
			t.Fatalf("expected participant to be attached")
		}
		return nil
	})
	run(t, store, func(tx domain.Transaction) error { return tx.DeleteComplex("EBI-1") })
	if len(store.ListComplexes()) != 0 {
		t.Fatalf("expected complex to be deleted")
	}
}

func TestSaveUserKeepsIdentity(t *testing.T) {
	store := newTestStore()
	run(t, store, func(tx domain.Transaction) error {
		_, err := tx.SaveUser(&domain.User{Login: "alice", FirstName: "Alice", Roles: []domain.Role{domain.RoleCurator}})
		return err
	})
	var pubAC string
	run(t, store, func(tx domain.Transaction) error {
		pub, err := tx.CreatePublication(&domain.Publication{
			ShortLabel: "p",
			Curation:   domain.Curation{Status: domain.StatusNew, CurrentOwner: domain.UserStub("alice")},
		})
		pubAC = pub.AC
		return err
	})
	run(t, store, func(tx domain.Transaction) error {
		u, err := tx.SaveUser(&domain.User{Login: "alice", FirstName: "Alicia"})
		if err != nil {
			return err
		}
		if !u.Created.Equal(fixedNow) {
			t.Fatalf("expected created time to survive")
		}
		return nil
	})
	pub, _ := store.GetPublication(pubAC)
	if pub.CurrentOwner.FirstName != "Alicia" || pub.CurrentOwner.IsStub() {
		t.Fatalf("expected owner to follow the saved user, got %+v", pub.CurrentOwner)
	}
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.SaveUser(&domain.User{}); err == nil {
			t.Fatalf("expected login error")
		}
		if err := tx.DeleteUser("bob"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		return tx.DeleteUser("alice")
	})
	if err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, ok := store.GetUser("alice"); ok {
		t.Fatalf("expected user to be deleted")
	}
}

func TestStubReferencesAreLeftInPlace(t *testing.T) {
	store := newTestStore()
	run(t, store, func(tx domain.Transaction) error {
		it, err := tx.CreateInteractor(&domain.Interactor{
			ShortLabel: "brca2",
			BioSource:  &domain.BioSource{IntactObject: domain.Stub("EBI-77")},
		})
		if err != nil {
			return err
		}
		if !it.BioSource.IsStub() || it.BioSource.AC != "EBI-77" {
			t.Fatalf("expected stub to survive")
		}
		if len(tx.ListBioSources()) != 0 {
			t.Fatalf("stubs must not be registered")
		}
		return nil
	})
}
