package profile

import "github.com/google/uuid"

// NewEntryID returns a fresh identifier for an experience or education
// entry. Ids are assigned once and never rewritten.
func NewEntryID() string {
	return uuid.NewString()
}

func (p *Profile) PrependExperience(exp Experience) {
	p.Experience = append([]Experience{exp}, p.Experience...)
}

// RemoveExperience drops the entry whose id equals id and reports whether
// one was found. Nothing matching is not an error.
func (p *Profile) RemoveExperience(id string) bool {
	kept := make([]Experience, 0, len(p.Experience))
	for _, exp := range p.Experience {
		if exp.ID != id {
			kept = append(kept, exp)
		}
	}
	removed := len(kept) != len(p.Experience)
	p.Experience = kept
	return removed
}

func (p *Profile) PrependEducation(edu Education) {
	p.Education = append([]Education{edu}, p.Education...)
}

func (p *Profile) RemoveEducation(id string) bool {
	kept := make([]Education, 0, len(p.Education))
	for _, edu := range p.Education {
		if edu.ID != id {
			kept = append(kept, edu)
		}
	}
	removed := len(kept) != len(p.Education)
	p.Education = kept
	return removed
}
