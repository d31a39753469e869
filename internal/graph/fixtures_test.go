package graph

import "intactcore/pkg/domain"

type fixture struct {
	db          *domain.CvObject
	psiMi       *domain.CvObject
	owner       *domain.Institution
	human       *domain.BioSource
	protein     *domain.Interactor
	curator     *domain.User
	publication *domain.Publication
	experiment  *domain.Experiment
	interaction *domain.Interaction
	bait        *domain.Component
	prey        *domain.Component
	featureA    *domain.Feature
	featureB    *domain.Feature
}

func newFixture() *fixture {
	f := &fixture{}
	f.psiMi = &domain.CvObject{IntactObject: domain.IntactObject{AC: "EBI-1"}, Class: domain.CvDatabase, Identifier: "MI:0488", ShortLabel: "psi-mi"}
	f.db = &domain.CvObject{IntactObject: domain.IntactObject{AC: "EBI-2"}, Class: domain.CvDatabase, Identifier: "MI:0469", ShortLabel: "intact"}
	f.psiMi.AddChild(f.db)
	f.owner = &domain.Institution{IntactObject: domain.IntactObject{AC: "EBI-3"}, ShortLabel: "ebi"}
	f.human = &domain.BioSource{IntactObject: domain.IntactObject{AC: "EBI-4"}, ShortLabel: "human", TaxID: "9606"}
	f.protein = &domain.Interactor{IntactObject: domain.IntactObject{AC: "EBI-5"}, ShortLabel: "p53", BioSource: f.human}
	f.curator = &domain.User{Login: "alice", Roles: []domain.Role{domain.RoleCurator}, Preferences: map[string]string{"k": "v"}}

	f.publication = &domain.Publication{IntactObject: domain.IntactObject{AC: "EBI-10"}, ShortLabel: "pub-1", Owner: f.owner}
	f.publication.Xrefs = []domain.Xref{{Database: f.db, PrimaryID: "12345"}}
	f.publication.Status = domain.StatusCurationInProgress
	f.publication.CurrentOwner = f.curator
	f.publication.Events = []*domain.LifecycleEvent{{ID: "e1", Event: domain.EventCreated, Who: f.curator}}

	f.experiment = &domain.Experiment{IntactObject: domain.IntactObject{AC: "EBI-11"}, ShortLabel: "exp-1", Owner: f.owner, HostOrganism: f.human}
	f.publication.AddExperiment(f.experiment)
	f.interaction = &domain.Interaction{IntactObject: domain.IntactObject{AC: "EBI-12"}, ShortLabel: "int-1", Owner: f.owner}
	f.experiment.AddInteraction(f.interaction)

	f.bait = &domain.Component{IntactObject: domain.IntactObject{AC: "EBI-13"}, Interactor: f.protein, Stoichiometry: 1}
	f.prey = &domain.Component{IntactObject: domain.IntactObject{AC: "EBI-14"}, Interactor: f.protein, Stoichiometry: 1}
	f.interaction.AddComponent(f.bait)
	f.interaction.AddComponent(f.prey)
	f.featureA = &domain.Feature{IntactObject: domain.IntactObject{AC: "EBI-15"}, ShortLabel: "a", Ranges: []domain.Range{{FromStart: 1, FromEnd: 1, ToStart: 5, ToEnd: 5}}}
	f.featureB = &domain.Feature{IntactObject: domain.IntactObject{AC: "EBI-16"}, ShortLabel: "b"}
	f.bait.AddFeature(f.featureA)
	f.prey.AddFeature(f.featureB)
	f.featureA.Binds = f.featureB
	f.featureB.Binds = f.featureA
	return f
}
