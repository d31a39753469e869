package domain

import "testing"

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"NEW":               StatusNew,
		"PL:0012":           StatusReleased,
		"ACCEPTED_ON_HOLD":  StatusAcceptedOnHold,
		"READY_FOR_RELEASE": StatusReadyForRelease,
	}
	for in, want := range cases {
		got, err := ParseStatus(in)
		if err != nil || got != want {
			t.Fatalf("ParseStatus(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseStatus("bogus"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestStatusOrdering(t *testing.T) {
	if !StatusDiscarded.Terminal() || StatusReleased.Terminal() {
		t.Fatalf("only DISCARDED is terminal")
	}
	if StatusNew.Rank() >= StatusReadyForChecking.Rank() {
		t.Fatalf("NEW must rank before READY_FOR_CHECKING")
	}
	if Status("").Rank() != -1 || Status("").Valid() {
		t.Fatalf("zero status must be unknown")
	}
	for _, s := range Statuses() {
		if s.Identifier() == "" {
			t.Fatalf("status %s lacks an identifier", s)
		}
	}
}

func TestCurationEvents(t *testing.T) {
	c := Curation{}
	if c.LastEvent() != nil {
		t.Fatalf("expected no events")
	}
	c.Events = append(c.Events,
		&LifecycleEvent{ID: "1", Event: EventCreated},
		&LifecycleEvent{ID: "2", Event: EventReadyForChecking},
		&LifecycleEvent{ID: "3", Event: EventRejected},
		&LifecycleEvent{ID: "4", Event: EventReadyForChecking},
	)
	if c.LastEvent().ID != "4" {
		t.Fatalf("unexpected last event %s", c.LastEvent().ID)
	}
	if c.LastEventOf(EventRejected).ID != "3" {
		t.Fatalf("expected rejection event")
	}
	if !c.RemoveLastEventOf(EventReadyForChecking) {
		t.Fatalf("expected removal")
	}
	if len(c.Events) != 3 || c.LastEvent().ID != "3" {
		t.Fatalf("expected most recent READY_FOR_CHECKING removed, got %d events", len(c.Events))
	}
	if c.RemoveLastEventOf(EventReleased) {
		t.Fatalf("no RELEASED event to remove")
	}
}

func TestUserPreferences(t *testing.T) {
	u := &User{Login: "curator", Roles: []Role{RoleCurator}, Preferences: map[string]string{
		PrefMentorReviewer:       "mentor",
		PrefReviewerAvailability: "250",
	}}
	if !u.HasRole(RoleCurator) || u.HasRole(RoleReviewer) {
		t.Fatalf("unexpected roles")
	}
	if u.Mentor() != "mentor" {
		t.Fatalf("unexpected mentor %q", u.Mentor())
	}
	if u.ReviewerAvailability() != 100 {
		t.Fatalf("availability must clamp to 100, got %d", u.ReviewerAvailability())
	}
	u.Preferences[PrefReviewerAvailability] = "x"
	if u.ReviewerAvailability() != DefaultReviewerAvailability {
		t.Fatalf("invalid availability must fall back to default")
	}
	var nobody *User
	if nobody.HasRole(RoleAdmin) || nobody.Mentor() != "" {
		t.Fatalf("nil user has no roles")
	}
	if !SameUser(u, &User{Login: "curator"}) || SameUser(u, nil) {
		t.Fatalf("users compare by login")
	}
	if !UserStub("ghost").IsStub() || u.IsStub() {
		t.Fatalf("stub flag mismatch")
	}
}

func TestReleasableKinds(t *testing.T) {
	var r Releasable = &Publication{IntactObject: IntactObject{AC: "EBI-1"}}
	if r.ReleasableKind() != KindPublication || r.ReleasableAC() != "EBI-1" {
		t.Fatalf("unexpected publication releasable")
	}
	r.CurationState().Status = StatusNew
	if r.(*Publication).Status != StatusNew {
		t.Fatalf("curation state must alias the embedded value")
	}
	if _, err := ParseReleasableKind("complex"); err != nil {
		t.Fatalf("complex is a releasable kind")
	}
	if _, err := ParseReleasableKind("experiment"); err == nil {
		t.Fatalf("experiment is not a releasable kind")
	}
}
