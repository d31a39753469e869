// Package domain contains the IntAct object model shared by the core service,
// the lifecycle machinery and the persistence backends.
package domain

import (
	"strconv"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	EntityInstitution EntityType = "institution"
	EntityCvObject    EntityType = "cv_object"
	EntityBioSource   EntityType = "biosource"
	EntityInteractor  EntityType = "interactor"
	EntityPublication EntityType = "publication"
	EntityExperiment  EntityType = "experiment"
	EntityInteraction EntityType = "interaction"
	EntityComplex     EntityType = "complex"
	EntityUser        EntityType = "user"
)

// IntactObject carries the identity and audit columns every persistent object shares.
type IntactObject struct {
	AC      string
	Created time.Time
	Updated time.Time
	Creator string
	Updator string

	stub bool
}

// Stub returns the base of a reference placeholder: an object known only by its
// accession whose state has not been loaded.
func Stub(ac string) IntactObject {
	return IntactObject{AC: ac, stub: true}
}

// Identity exposes the embedded base for generic code.
func (o *IntactObject) Identity() *IntactObject { return o }

// IsStub reports whether the object is an unloaded reference.
func (o *IntactObject) IsStub() bool { return o.stub }

// Initialized is the inverse of IsStub.
func (o *IntactObject) Initialized() bool { return !o.stub }

// Identifiable is implemented by every type embedding IntactObject.
type Identifiable interface {
	Identity() *IntactObject
}

// Xref links an object to an entry in an external database.
type Xref struct {
	Database    *CvObject
	Qualifier   *CvObject
	PrimaryID   string
	SecondaryID string
	Version     string
}

// Alias is an alternative name of a given type.
type Alias struct {
	Type *CvObject
	Name string
}

// Annotation is free text filed under a topic term.
type Annotation struct {
	Topic *CvObject
	Text  string
}

// Annotated groups the cross references, aliases and annotations most objects carry.
type Annotated struct {
	Xrefs       []Xref
	Aliases     []Alias
	Annotations []Annotation
}

// XrefByDatabase returns the first xref whose database term has the given identifier.
func (a *Annotated) XrefByDatabase(identifier string) (Xref, bool) {
	for _, x := range a.Xrefs {
		if x.Database != nil && x.Database.Identifier == identifier {
			return x, true
		}
	}
	return Xref{}, false
}

// AnnotationByTopic returns the text of the first annotation filed under the topic label.
func (a *Annotated) AnnotationByTopic(topic string) (string, bool) {
	for _, an := range a.Annotations {
		if an.Topic != nil && an.Topic.ShortLabel == topic {
			return an.Text, true
		}
	}
	return "", false
}

// CvClass names the vocabulary a term belongs to.
type CvClass string

// Controlled vocabularies used by the object model.
const (
	CvDatabase           CvClass = "database"
	CvXrefQualifier      CvClass = "xref_qualifier"
	CvTopic              CvClass = "topic"
	CvAliasType          CvClass = "alias_type"
	CvInteractionType    CvClass = "interaction_type"
	CvInteractorType     CvClass = "interactor_type"
	CvExperimentalRole   CvClass = "experimental_role"
	CvBiologicalRole     CvClass = "biological_role"
	CvFeatureType        CvClass = "feature_type"
	CvFuzzyType          CvClass = "fuzzy_type"
	CvDetectionMethod    CvClass = "interaction_detection_method"
	CvIdentification     CvClass = "participant_identification_method"
	CvTissue             CvClass = "tissue"
	CvCellType           CvClass = "cell_type"
	CvComplexType        CvClass = "complex_type"
	CvEvidenceType       CvClass = "evidence_type"
	CvLifecycleEventType CvClass = "lifecycle_event"
)

// CvObject is a term of a controlled vocabulary. Terms form a directed acyclic
// graph through Parents and Children; both sides are kept in memory.
type CvObject struct {
	IntactObject
	Annotated
	Class      CvClass
	Identifier string
	ShortLabel string
	FullName   string
	Parents    []*CvObject
	Children   []*CvObject
}

// AddChild links child below c on both sides of the relation.
func (c *CvObject) AddChild(child *CvObject) {
	c.Children = append(c.Children, child)
	child.Parents = append(child.Parents, c)
}

// Institution is the owner of curated records.
type Institution struct {
	IntactObject
	Annotated
	ShortLabel    string
	FullName      string
	URL           string
	PostalAddress string
}

// BioSource describes an organism, optionally narrowed to a cell type or tissue.
type BioSource struct {
	IntactObject
	Annotated
	ShortLabel string
	FullName   string
	TaxID      string
	CellType   *CvObject
	Tissue     *CvObject
}

// Publication groups the experiments described by one paper or dataset.
type Publication struct {
	IntactObject
	Annotated
	Curation
	ShortLabel  string
	FullName    string
	Owner       *Institution
	Experiments []*Experiment
}

// AddExperiment appends e and points it back at p.
func (p *Publication) AddExperiment(e *Experiment) {
	e.Publication = p
	p.Experiments = append(p.Experiments, e)
}

// ReleasableAC implements Releasable.
func (p *Publication) ReleasableAC() string { return p.AC }

// ReleasableKind implements Releasable.
func (p *Publication) ReleasableKind() ReleasableKind { return KindPublication }

// CurationState implements Releasable.
func (p *Publication) CurationState() *Curation { return &p.Curation }

// Experiment is a set of interactions determined with one method in one host.
type Experiment struct {
	IntactObject
	Annotated
	ShortLabel                string
	FullName                  string
	Publication               *Publication
	Owner                     *Institution
	HostOrganism              *BioSource
	DetectionMethod           *CvObject
	ParticipantIdentification *CvObject
	Interactions              []*Interaction
}

// AddInteraction links i and e on both sides.
func (e *Experiment) AddInteraction(i *Interaction) {
	e.Interactions = append(e.Interactions, i)
	i.Experiments = append(i.Experiments, e)
}

// Interaction is an evidence of molecules interacting.
type Interaction struct {
	IntactObject
	Annotated
	ShortLabel      string
	Owner           *Institution
	InteractionType *CvObject
	Experiments     []*Experiment
	Components      []*Component
	KD              *float64
	Negative        bool
}

// AddComponent appends c and points it back at i.
func (i *Interaction) AddComponent(c *Component) {
	c.Interaction = i
	c.Complex = nil
	i.Components = append(i.Components, c)
}

// Interactor is a molecule taking part in interactions.
type Interactor struct {
	IntactObject
	Annotated
	ShortLabel string
	FullName   string
	Type       *CvObject
	BioSource  *BioSource
	Sequence   string
}

// Component is a participant: an interactor in a given role within one
// interaction or one complex.
type Component struct {
	IntactObject
	Annotated
	Interaction       *Interaction
	Complex           *Complex
	Interactor        *Interactor
	ExperimentalRoles []*CvObject
	BiologicalRole    *CvObject
	ExpressedIn       *BioSource
	Stoichiometry     float64
	Features          []*Feature
}

// AddFeature appends f and points it back at c.
func (c *Component) AddFeature(f *Feature) {
	f.Component = c
	c.Features = append(c.Features, f)
}

// Feature is a region of a participant, optionally binding another feature.
type Feature struct {
	IntactObject
	Annotated
	ShortLabel string
	Component  *Component
	Type       *CvObject
	Ranges     []Range
	Binds      *Feature
}

// Complex is a curated macromolecular complex.
type Complex struct {
	IntactObject
	Annotated
	Curation
	ShortLabel   string
	ComplexAC    string
	Version      int
	Organism     *BioSource
	Type         *CvObject
	EvidenceType *CvObject
	Participants []*Component
}

// AddParticipant appends c and points it back at x.
func (x *Complex) AddParticipant(c *Component) {
	c.Complex = x
	c.Interaction = nil
	x.Participants = append(x.Participants, c)
}

// ReleasableAC implements Releasable.
func (x *Complex) ReleasableAC() string { return x.AC }

// ReleasableKind implements Releasable.
func (x *Complex) ReleasableKind() ReleasableKind { return KindComplex }

// CurationState implements Releasable.
func (x *Complex) CurationState() *Curation { return &x.Curation }

// VersionedAC renders the complex accession with its version, e.g. CPX-12.2.
func (x *Complex) VersionedAC() string {
	if x.ComplexAC == "" {
		return ""
	}
	v := x.Version
	if v == 0 {
		v = 1
	}
	return x.ComplexAC + "." + strconv.Itoa(v)
}
