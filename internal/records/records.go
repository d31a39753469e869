// Package records maps the object graph onto flat rows keyed by accession.
// References between objects become accession columns, owned children carry a
// rank inside their parent, and small value lists are stored as JSON columns.
// The same rows back the sqlite buckets, the postgres tables and release
// archives.
package records

import (
	"cmp"
	"slices"
	"time"

	"github.com/uptrace/bun"
)

// Base holds the columns every row shares.
type Base struct {
	AC          string            `bun:"ac,pk" json:"ac"`
	Created     time.Time         `bun:"created_at,nullzero" json:"created,omitzero"`
	Updated     time.Time         `bun:"updated_at,nullzero" json:"updated,omitzero"`
	Creator     string            `bun:"creator" json:"creator,omitempty"`
	Updator     string            `bun:"updator" json:"updator,omitempty"`
	Xrefs       []XrefValue       `bun:"xrefs,type:jsonb" json:"xrefs,omitempty"`
	Aliases     []AliasValue      `bun:"aliases,type:jsonb" json:"aliases,omitempty"`
	Annotations []AnnotationValue `bun:"annotations,type:jsonb" json:"annotations,omitempty"`
}

// XrefValue is a stored cross reference.
type XrefValue struct {
	DatabaseAC  string `json:"database"`
	QualifierAC string `json:"qualifier,omitempty"`
	PrimaryID   string `json:"primary_id"`
	SecondaryID string `json:"secondary_id,omitempty"`
	Version     string `json:"version,omitempty"`
}

// AliasValue is a stored alias.
type AliasValue struct {
	TypeAC string `json:"type,omitempty"`
	Name   string `json:"name"`
}

// AnnotationValue is a stored annotation.
type AnnotationValue struct {
	TopicAC string `json:"topic,omitempty"`
	Text    string `json:"text,omitempty"`
}

// RangeValue is a stored feature range.
type RangeValue struct {
	FromFuzzyAC  string `json:"from_fuzzy,omitempty"`
	ToFuzzyAC    string `json:"to_fuzzy,omitempty"`
	FromStart    int    `json:"from_start,omitempty"`
	FromEnd      int    `json:"from_end,omitempty"`
	ToStart      int    `json:"to_start,omitempty"`
	ToEnd        int    `json:"to_end,omitempty"`
	Undetermined bool   `json:"undetermined,omitempty"`
}

// EventValue is a stored lifecycle event.
type EventValue struct {
	ID    string    `json:"id"`
	Event string    `json:"event"`
	Who   string    `json:"who,omitempty"`
	When  time.Time `json:"when"`
	Note  string    `json:"note,omitempty"`
}

// CurationValue holds the workflow columns of releasables.
type CurationValue struct {
	Status        string       `bun:"status" json:"status,omitempty"`
	OwnerLogin    string       `bun:"owner_login" json:"owner_login,omitempty"`
	ReviewerLogin string       `bun:"reviewer_login" json:"reviewer_login,omitempty"`
	OnHold        string       `bun:"on_hold" json:"on_hold,omitempty"`
	ToBeReviewed  string       `bun:"to_be_reviewed" json:"to_be_reviewed,omitempty"`
	Events        []EventValue `bun:"events,type:jsonb" json:"events,omitempty"`
}

// InstitutionRecord is a stored institution.
type InstitutionRecord struct {
	bun.BaseModel `bun:"table:intact_institution,alias:ins" json:"-"`
	Base
	ShortLabel    string `bun:"short_label" json:"short_label"`
	FullName      string `bun:"full_name" json:"full_name,omitempty"`
	URL           string `bun:"url" json:"url,omitempty"`
	PostalAddress string `bun:"postal_address" json:"postal_address,omitempty"`
}

// CvObjectRecord is a stored vocabulary term.
type CvObjectRecord struct {
	bun.BaseModel `bun:"table:intact_cv_object,alias:cv" json:"-"`
	Base
	Class      string   `bun:"class" json:"class"`
	Identifier string   `bun:"identifier" json:"identifier,omitempty"`
	ShortLabel string   `bun:"short_label" json:"short_label"`
	FullName   string   `bun:"full_name" json:"full_name,omitempty"`
	ParentACs  []string `bun:"parent_acs,type:jsonb" json:"parents,omitempty"`
}

// BioSourceRecord is a stored biosource.
type BioSourceRecord struct {
	bun.BaseModel `bun:"table:intact_biosource,alias:bs" json:"-"`
	Base
	ShortLabel string `bun:"short_label" json:"short_label"`
	FullName   string `bun:"full_name" json:"full_name,omitempty"`
	TaxID      string `bun:"tax_id" json:"tax_id"`
	CellTypeAC string `bun:"cell_type_ac" json:"cell_type,omitempty"`
	TissueAC   string `bun:"tissue_ac" json:"tissue,omitempty"`
}

// InteractorRecord is a stored interactor.
type InteractorRecord struct {
	bun.BaseModel `bun:"table:intact_interactor,alias:itr" json:"-"`
	Base
	ShortLabel  string `bun:"short_label" json:"short_label"`
	FullName    string `bun:"full_name" json:"full_name,omitempty"`
	TypeAC      string `bun:"type_ac" json:"type,omitempty"`
	BioSourceAC string `bun:"biosource_ac" json:"biosource,omitempty"`
	Sequence    string `bun:"sequence" json:"sequence,omitempty"`
}

// PublicationRecord is a stored publication.
type PublicationRecord struct {
	bun.BaseModel `bun:"table:intact_publication,alias:pub" json:"-"`
	Base
	CurationValue
	ShortLabel    string   `bun:"short_label" json:"short_label"`
	FullName      string   `bun:"full_name" json:"full_name,omitempty"`
	OwnerAC       string   `bun:"owner_ac" json:"owner,omitempty"`
	ExperimentACs []string `bun:"experiment_acs,type:jsonb" json:"experiments,omitempty"`
}

// ExperimentRecord is a stored experiment.
type ExperimentRecord struct {
	bun.BaseModel `bun:"table:intact_experiment,alias:exp" json:"-"`
	Base
	ShortLabel                  string   `bun:"short_label" json:"short_label"`
	FullName                    string   `bun:"full_name" json:"full_name,omitempty"`
	PublicationAC               string   `bun:"publication_ac" json:"publication,omitempty"`
	OwnerAC                     string   `bun:"owner_ac" json:"owner,omitempty"`
	HostOrganismAC              string   `bun:"host_organism_ac" json:"host_organism,omitempty"`
	DetectionMethodAC           string   `bun:"detection_method_ac" json:"detection_method,omitempty"`
	ParticipantIdentificationAC string   `bun:"participant_identification_ac" json:"participant_identification,omitempty"`
	InteractionACs              []string `bun:"interaction_acs,type:jsonb" json:"interactions,omitempty"`
}

// InteractionRecord is a stored interaction. Its participants are ComponentRecords.
type InteractionRecord struct {
	bun.BaseModel `bun:"table:intact_interaction,alias:ia" json:"-"`
	Base
	ShortLabel        string   `bun:"short_label" json:"short_label"`
	OwnerAC           string   `bun:"owner_ac" json:"owner,omitempty"`
	InteractionTypeAC string   `bun:"interaction_type_ac" json:"interaction_type,omitempty"`
	ExperimentACs     []string `bun:"experiment_acs,type:jsonb" json:"experiments,omitempty"`
	KD                *float64 `bun:"kd" json:"kd,omitempty"`
	Negative          bool     `bun:"negative" json:"negative,omitempty"`
}

// ComponentRecord is a stored participant, owned by exactly one interaction or complex.
type ComponentRecord struct {
	bun.BaseModel `bun:"table:intact_component,alias:cmp" json:"-"`
	Base
	InteractionAC       string   `bun:"interaction_ac" json:"interaction,omitempty"`
	ParentComplexAC     string   `bun:"parent_complex_ac" json:"complex,omitempty"`
	Rank                int      `bun:"rank" json:"rank"`
	InteractorAC        string   `bun:"interactor_ac" json:"interactor,omitempty"`
	ExperimentalRoleACs []string `bun:"experimental_role_acs,type:jsonb" json:"experimental_roles,omitempty"`
	BiologicalRoleAC    string   `bun:"biological_role_ac" json:"biological_role,omitempty"`
	ExpressedInAC       string   `bun:"expressed_in_ac" json:"expressed_in,omitempty"`
	Stoichiometry       float64  `bun:"stoichiometry" json:"stoichiometry,omitempty"`
}

// FeatureRecord is a stored feature, owned by a component.
type FeatureRecord struct {
	bun.BaseModel `bun:"table:intact_feature,alias:ftr" json:"-"`
	Base
	ComponentAC string       `bun:"component_ac" json:"component"`
	Rank        int          `bun:"rank" json:"rank"`
	ShortLabel  string       `bun:"short_label" json:"short_label,omitempty"`
	TypeAC      string       `bun:"type_ac" json:"type,omitempty"`
	Ranges      []RangeValue `bun:"ranges,type:jsonb" json:"ranges,omitempty"`
	BindsAC     string       `bun:"binds_ac" json:"binds,omitempty"`
}

// ComplexRecord is a stored complex. Its participants are ComponentRecords.
type ComplexRecord struct {
	bun.BaseModel `bun:"table:intact_complex,alias:cpx" json:"-"`
	Base
	CurationValue
	ShortLabel     string `bun:"short_label" json:"short_label"`
	ComplexAC      string `bun:"complex_ac" json:"complex_ac,omitempty"`
	Version        int    `bun:"version" json:"version,omitempty"`
	OrganismAC     string `bun:"organism_ac" json:"organism,omitempty"`
	TypeAC         string `bun:"type_ac" json:"type,omitempty"`
	EvidenceTypeAC string `bun:"evidence_type_ac" json:"evidence_type,omitempty"`
}

// UserRecord is a stored user.
type UserRecord struct {
	bun.BaseModel `bun:"table:intact_user,alias:usr" json:"-"`
	Login       string            `bun:"login,pk" json:"login"`
	FirstName   string            `bun:"first_name" json:"first_name,omitempty"`
	LastName    string            `bun:"last_name" json:"last_name,omitempty"`
	Email       string            `bun:"email" json:"email,omitempty"`
	Disabled    bool              `bun:"disabled" json:"disabled,omitempty"`
	Roles       []string          `bun:"roles,type:jsonb" json:"roles,omitempty"`
	Preferences map[string]string `bun:"preferences,type:jsonb" json:"preferences,omitempty"`
	Created     time.Time         `bun:"created_at,nullzero" json:"created,omitzero"`
	Updated     time.Time         `bun:"updated_at,nullzero" json:"updated,omitzero"`
}

// Bundle is a set of rows, one slice per table.
type Bundle struct {
	Institutions []InstitutionRecord `json:"institutions,omitempty"`
	CvObjects    []CvObjectRecord    `json:"cv_objects,omitempty"`
	BioSources   []BioSourceRecord   `json:"biosources,omitempty"`
	Interactors  []InteractorRecord  `json:"interactors,omitempty"`
	Publications []PublicationRecord `json:"publications,omitempty"`
	Experiments  []ExperimentRecord  `json:"experiments,omitempty"`
	Interactions []InteractionRecord `json:"interactions,omitempty"`
	Components   []ComponentRecord   `json:"components,omitempty"`
	Features     []FeatureRecord     `json:"features,omitempty"`
	Complexes    []ComplexRecord     `json:"complexes,omitempty"`
	Users        []UserRecord        `json:"users,omitempty"`
}

// Len counts every row.
func (b *Bundle) Len() int {
	return len(b.Institutions) + len(b.CvObjects) + len(b.BioSources) + len(b.Interactors) +
		len(b.Publications) + len(b.Experiments) + len(b.Interactions) + len(b.Components) +
		len(b.Features) + len(b.Complexes) + len(b.Users)
}

func byAC[T any](ac func(*T) string) func(a, b T) int {
	return func(a, b T) int { return cmp.Compare(ac(&a), ac(&b)) }
}

// Sort orders every table by key so bundles of equal content compare equal.
// Components and features keep their parent grouping and rank.
func (b *Bundle) Sort() {
	slices.SortStableFunc(b.Institutions, byAC(func(r *InstitutionRecord) string { return r.AC }))
	slices.SortStableFunc(b.CvObjects, byAC(func(r *CvObjectRecord) string { return r.AC }))
	slices.SortStableFunc(b.BioSources, byAC(func(r *BioSourceRecord) string { return r.AC }))
	slices.SortStableFunc(b.Interactors, byAC(func(r *InteractorRecord) string { return r.AC }))
	slices.SortStableFunc(b.Publications, byAC(func(r *PublicationRecord) string { return r.AC }))
	slices.SortStableFunc(b.Experiments, byAC(func(r *ExperimentRecord) string { return r.AC }))
	slices.SortStableFunc(b.Interactions, byAC(func(r *InteractionRecord) string { return r.AC }))
	slices.SortStableFunc(b.Complexes, byAC(func(r *ComplexRecord) string { return r.AC }))
	slices.SortStableFunc(b.Users, byAC(func(r *UserRecord) string { return r.Login }))
	slices.SortStableFunc(b.Components, func(x, y ComponentRecord) int {
		return cmp.Or(
			cmp.Compare(x.InteractionAC, y.InteractionAC),
			cmp.Compare(x.ParentComplexAC, y.ParentComplexAC),
			cmp.Compare(x.Rank, y.Rank),
			cmp.Compare(x.AC, y.AC),
		)
	})
	slices.SortStableFunc(b.Features, func(x, y FeatureRecord) int {
		return cmp.Or(cmp.Compare(x.ComponentAC, y.ComponentAC), cmp.Compare(x.Rank, y.Rank), cmp.Compare(x.AC, y.AC))
	})
}
