package resume

import "fmt"

// FieldKind names a free-text field that can be rewritten by refinement.
type FieldKind string

const (
	FieldSummary     FieldKind = "summary"
	FieldExperience  FieldKind = "experience"
	FieldProject     FieldKind = "project"
	FieldAchievement FieldKind = "achievement"
)

// Field addresses one free-text field. Index is ignored for the summary.
type Field struct {
	Kind  FieldKind `json:"target" validate:"required,oneof=summary experience project achievement"`
	Index int       `json:"index" validate:"gte=0"`
}

func (f Field) String() string {
	if f.Kind == FieldSummary {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s[%d]", f.Kind, f.Index)
}

// FieldText returns the current text of f.
func (r Record) FieldText(f Field) (string, error) {
	switch f.Kind {
	case FieldSummary:
		return r.Summary, nil
	case FieldExperience:
		if f.Index < 0 || f.Index >= len(r.Experience) {
			return "", indexOutOfRange(SectionExperience, f.Index, len(r.Experience))
		}
		return r.Experience[f.Index].Description, nil
	case FieldProject:
		if f.Index < 0 || f.Index >= len(r.Projects) {
			return "", indexOutOfRange(SectionProjects, f.Index, len(r.Projects))
		}
		return r.Projects[f.Index].Description, nil
	case FieldAchievement:
		if f.Index < 0 || f.Index >= len(r.Achievements) {
			return "", indexOutOfRange(SectionAchievements, f.Index, len(r.Achievements))
		}
		return r.Achievements[f.Index].Description, nil
	}
	return "", invalidSection(string(f.Kind))
}

// SetFieldText returns a copy of r with f replaced by text.
func (r Record) SetFieldText(f Field, text string) (Record, error) {
	switch f.Kind {
	case FieldSummary:
		return r.WithSummary(text), nil
	case FieldExperience:
		if f.Index < 0 || f.Index >= len(r.Experience) {
			return r, indexOutOfRange(SectionExperience, f.Index, len(r.Experience))
		}
		e := r.Experience[f.Index]
		e.Description = text
		return r.UpdateExperience(f.Index, e)
	case FieldProject:
		if f.Index < 0 || f.Index >= len(r.Projects) {
			return r, indexOutOfRange(SectionProjects, f.Index, len(r.Projects))
		}
		p := r.Projects[f.Index]
		p.Description = text
		return r.UpdateProject(f.Index, p)
	case FieldAchievement:
		return r.UpdateAchievement(f.Index, Achievement{Description: text})
	}
	return r, invalidSection(string(f.Kind))
}
