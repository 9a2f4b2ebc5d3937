package resume

import (
	"fmt"
	"strings"

	"cvforge/internal/errors"
)

// Merge overlays the non-empty parts of src onto r. Strings replace only
// when non-empty, sections replace only when they hold at least one entry,
// and personal info merges field by field.
func (r Record) Merge(src Record) Record {
	out := r.Clone()

	out.PersonalInfo = mergeInfo(out.PersonalInfo, src.PersonalInfo)
	if src.Summary != "" {
		out.Summary = src.Summary
	}
	if len(src.Experience) > 0 {
		out.Experience = cloneSlice(src.Experience)
	}
	if len(src.Projects) > 0 {
		out.Projects = cloneSlice(src.Projects)
	}
	if len(src.Achievements) > 0 {
		out.Achievements = cloneSlice(src.Achievements)
	}
	if len(src.Education) > 0 {
		out.Education = cloneSlice(src.Education)
	}
	if len(src.Skills) > 0 {
		out.Skills = dedupe(src.Skills)
	}
	return out.Normalize()
}

func mergeInfo(dst, src PersonalInfo) PersonalInfo {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Email != "" {
		dst.Email = src.Email
	}
	if src.Phone != "" {
		dst.Phone = src.Phone
	}
	if src.LinkedIn != "" {
		dst.LinkedIn = src.LinkedIn
	}
	return dst
}

func (r Record) WithPersonalInfo(info PersonalInfo) Record {
	out := r.Clone()
	out.PersonalInfo = info
	return out
}

func (r Record) WithSummary(summary string) Record {
	out := r.Clone()
	out.Summary = summary
	return out
}

func (r Record) AppendExperience(e Experience) Record {
	out := r.Clone()
	out.Experience = append(out.Experience, e)
	return out
}

func (r Record) UpdateExperience(i int, e Experience) (Record, error) {
	items, err := replaceAt(r.Experience, i, e, SectionExperience)
	if err != nil {
		return r, err
	}
	out := r.Clone()
	out.Experience = items
	return out, nil
}

func (r Record) AppendProject(p Project) Record {
	out := r.Clone()
	out.Projects = append(out.Projects, p)
	return out
}

func (r Record) UpdateProject(i int, p Project) (Record, error) {
	items, err := replaceAt(r.Projects, i, p, SectionProjects)
	if err != nil {
		return r, err
	}
	out := r.Clone()
	out.Projects = items
	return out, nil
}

func (r Record) AppendAchievement(a Achievement) Record {
	out := r.Clone()
	out.Achievements = append(out.Achievements, a)
	return out
}

func (r Record) UpdateAchievement(i int, a Achievement) (Record, error) {
	items, err := replaceAt(r.Achievements, i, a, SectionAchievements)
	if err != nil {
		return r, err
	}
	out := r.Clone()
	out.Achievements = items
	return out, nil
}

func (r Record) AppendEducation(e Education) Record {
	out := r.Clone()
	out.Education = append(out.Education, e)
	return out
}

func (r Record) UpdateEducation(i int, e Education) (Record, error) {
	items, err := replaceAt(r.Education, i, e, SectionEducation)
	if err != nil {
		return r, err
	}
	out := r.Clone()
	out.Education = items
	return out, nil
}

// DeleteEntry removes entry i of section. Later entries shift down by one.
func (r Record) DeleteEntry(section Section, i int) (Record, error) {
	out := r.Clone()
	var err error
	switch section {
	case SectionExperience:
		out.Experience, err = deleteAt(r.Experience, i, section)
	case SectionProjects:
		out.Projects, err = deleteAt(r.Projects, i, section)
	case SectionAchievements:
		out.Achievements, err = deleteAt(r.Achievements, i, section)
	case SectionEducation:
		out.Education, err = deleteAt(r.Education, i, section)
	case SectionSkills:
		out.Skills, err = deleteAt(r.Skills, i, section)
	default:
		return r, invalidSection(string(section))
	}
	if err != nil {
		return r, err
	}
	return out, nil
}

// AddSkill appends skill unless it is blank or already present. Matching is
// exact and case-sensitive.
func (r Record) AddSkill(skill string) Record {
	skill = strings.TrimSpace(skill)
	if skill == "" || r.HasSkill(skill) {
		return r.Clone()
	}
	out := r.Clone()
	out.Skills = append(out.Skills, skill)
	return out
}

func (r Record) HasSkill(skill string) bool {
	for _, s := range r.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

func (r Record) RemoveSkill(i int) (Record, error) {
	return r.DeleteEntry(SectionSkills, i)
}

func replaceAt[T any](items []T, i int, v T, section Section) ([]T, error) {
	if i < 0 || i >= len(items) {
		return nil, indexOutOfRange(section, i, len(items))
	}
	out := cloneSlice(items)
	out[i] = v
	return out, nil
}

func deleteAt[T any](items []T, i int, section Section) ([]T, error) {
	if i < 0 || i >= len(items) {
		return nil, indexOutOfRange(section, i, len(items))
	}
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	out = append(out, items[i+1:]...)
	return out, nil
}

func indexOutOfRange(section Section, i, n int) error {
	return errors.NewValidationError(errors.ErrCodeIndexOutOfRange,
		fmt.Sprintf("%s index %d out of range (have %d entries)", section, i, n), nil).
		WithContext("section", string(section)).
		WithContext("index", i)
}

func invalidSection(name string) error {
	return errors.NewValidationError(errors.ErrCodeInvalidSection,
		fmt.Sprintf("unknown section %q", name), nil)
}
