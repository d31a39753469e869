package lifecycle

import (
	"fmt"

	"intactcore/pkg/domain"
)

// Gate checks a releasable is complete enough to be sent for review. It returns
// one message per problem found.
type Gate func(r domain.Releasable) []string

// PublicationGate requires at least one experiment and at least one
// interaction in every experiment.
func PublicationGate(r domain.Releasable) []string {
	p, ok := r.(*domain.Publication)
	if !ok {
		return nil
	}
	if len(p.Experiments) == 0 {
		return []string{fmt.Sprintf("publication %s has no experiments", p.AC)}
	}
	var problems []string
	for _, e := range p.Experiments {
		if e == nil {
			continue
		}
		if len(e.Interactions) == 0 {
			problems = append(problems, fmt.Sprintf("experiment %s has no interactions", label(e.AC, e.ShortLabel)))
		}
	}
	return problems
}

// ComplexGate requires an organism and at least one participant.
func ComplexGate(r domain.Releasable) []string {
	x, ok := r.(*domain.Complex)
	if !ok {
		return nil
	}
	var problems []string
	if len(x.Participants) == 0 {
		problems = append(problems, fmt.Sprintf("complex %s has no participants", x.AC))
	}
	if x.Organism == nil {
		problems = append(problems, fmt.Sprintf("complex %s has no organism", x.AC))
	}
	return problems
}

func label(ac, shortLabel string) string {
	if ac != "" {
		return ac
	}
	return shortLabel
}
