package domain

import "fmt"

// Range locates a feature on the participant sequence. Start and end positions
// are intervals themselves so fuzzy boundaries can be expressed.
type Range struct {
	FromFuzzyType *CvObject
	ToFuzzyType   *CvObject
	FromStart     int
	FromEnd       int
	ToStart       int
	ToEnd         int
	Undetermined  bool
}

// Validate checks the positions are ordered. Undetermined ranges carry no positions.
func (r Range) Validate() error {
	if r.Undetermined {
		if r.FromStart != 0 || r.FromEnd != 0 || r.ToStart != 0 || r.ToEnd != 0 {
			return fmt.Errorf("undetermined range must not carry positions")
		}
		return nil
	}
	if r.FromStart < 1 {
		return fmt.Errorf("range start %d must be positive", r.FromStart)
	}
	if r.FromStart > r.FromEnd || r.FromEnd > r.ToStart || r.ToStart > r.ToEnd {
		return fmt.Errorf("range positions out of order: %d-%d..%d-%d", r.FromStart, r.FromEnd, r.ToStart, r.ToEnd)
	}
	return nil
}

// String renders the range in the usual start..end notation.
func (r Range) String() string {
	if r.Undetermined {
		return "?-?"
	}
	from := fmt.Sprint(r.FromStart)
	if r.FromEnd != r.FromStart {
		from = fmt.Sprintf("%d..%d", r.FromStart, r.FromEnd)
	}
	to := fmt.Sprint(r.ToEnd)
	if r.ToStart != r.ToEnd {
		to = fmt.Sprintf("%d..%d", r.ToStart, r.ToEnd)
	}
	return from + "-" + to
}
