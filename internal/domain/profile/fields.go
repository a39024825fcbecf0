package profile

import (
	"strings"
	"time"
)

// Fields is a sparse set of top-level profile fields. A nil pointer, a nil
// Skills slice or a missing Social key means "not provided": it is left
// untouched on update and omitted on create.
type Fields struct {
	Handle   *string
	Company  *string
	Website  *string
	Location *string
	Bio      *string
	Status   *string
	Skills   []string
	Social   map[string]string
}

// SplitSkills splits a comma delimited list as-is. Entries are not trimmed
// and empty entries are kept, so "" yields [""].
func SplitSkills(raw string) []string {
	return strings.Split(raw, ",")
}

// SocialFrom keeps only the known platforms that carry a value.
func SocialFrom(in map[string]string) map[string]string {
	out := map[string]string{}
	for _, platform := range SocialPlatforms {
		if v, ok := in[platform]; ok && v != "" {
			out[platform] = v
		}
	}
	return out
}

func (f Fields) IsEmpty() bool {
	return f.Handle == nil && f.Company == nil && f.Website == nil && f.Location == nil &&
		f.Bio == nil && f.Status == nil && f.Skills == nil && len(f.Social) == 0
}

// ApplyTo merges the provided fields into p. Experience and Education are
// never touched. An empty handle is ignored; a handle is never cleared.
func (f Fields) ApplyTo(p *Profile, now time.Time) {
	if f.HasHandle() {
		p.Handle = *f.Handle
	}
	setString(&p.Company, f.Company)
	setString(&p.Website, f.Website)
	setString(&p.Location, f.Location)
	setString(&p.Bio, f.Bio)
	setString(&p.Status, f.Status)
	if f.Skills != nil {
		p.Skills = append([]string{}, f.Skills...)
	}
	if len(f.Social) > 0 {
		if p.Social == nil {
			p.Social = map[string]string{}
		}
		for k, v := range f.Social {
			p.Social[k] = v
		}
	}
	p.UpdatedAt = now
}

// HasHandle reports whether f claims a handle. An empty handle is the same
// as no handle and never takes the unique key.
func (f Fields) HasHandle() bool {
	return f.Handle != nil && *f.Handle != ""
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
