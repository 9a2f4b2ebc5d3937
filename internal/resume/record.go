// Package resume holds the resume record and the pure operations that
// produce modified copies of it.
package resume

// Section names a repeating part of a record.
type Section string

const (
	SectionExperience   Section = "experience"
	SectionProjects     Section = "projects"
	SectionAchievements Section = "achievements"
	SectionEducation    Section = "education"
	SectionSkills       Section = "skills"
)

// Sections lists the repeating sections in render order.
var Sections = []Section{SectionExperience, SectionProjects, SectionAchievements, SectionEducation, SectionSkills}

// ParseSection maps a path or flag value to a Section.
func ParseSection(s string) (Section, bool) {
	for _, sec := range Sections {
		if string(sec) == s {
			return sec, true
		}
	}
	return "", false
}

// PersonalInfo is the contact block at the top of a resume.
type PersonalInfo struct {
	Name     string `json:"name" yaml:"name"`
	Email    string `json:"email" yaml:"email"`
	Phone    string `json:"phone" yaml:"phone"`
	LinkedIn string `json:"linkedin" yaml:"linkedin"`
}

type Experience struct {
	Title       string `json:"title" yaml:"title" validate:"max=300"`
	Company     string `json:"company" yaml:"company" validate:"max=300"`
	Dates       string `json:"dates" yaml:"dates" validate:"max=100"`
	Description string `json:"description" yaml:"description" validate:"max=10000"`
}

type Project struct {
	Title       string `json:"title" yaml:"title" validate:"max=300"`
	Dates       string `json:"dates" yaml:"dates" validate:"max=100"`
	Description string `json:"description" yaml:"description" validate:"max=10000"`
}

type Achievement struct {
	Description string `json:"description" yaml:"description" validate:"max=5000"`
}

type Education struct {
	Degree           string `json:"degree" yaml:"degree" validate:"max=300"`
	InstitutionDates string `json:"institution_dates" yaml:"institution_dates" validate:"max=300"`
}

// Record is the structured resume. Treat it as a value: every mutation in
// this package returns a new Record and leaves its argument untouched.
type Record struct {
	PersonalInfo PersonalInfo  `json:"personal_info" yaml:"personal_info"`
	Summary      string        `json:"summary" yaml:"summary"`
	Experience   []Experience  `json:"experience" yaml:"experience"`
	Projects     []Project     `json:"projects" yaml:"projects"`
	Achievements []Achievement `json:"achievements" yaml:"achievements"`
	Education    []Education   `json:"education" yaml:"education"`
	Skills       []string      `json:"skills" yaml:"skills"`
}

// New returns an empty record whose sections are empty, non-nil slices.
func New() Record {
	return Record{
		Experience:   []Experience{},
		Projects:     []Project{},
		Achievements: []Achievement{},
		Education:    []Education{},
		Skills:       []string{},
	}
}

// Normalize replaces nil sections with empty slices and drops duplicate
// skills, keeping the first occurrence.
func (r Record) Normalize() Record {
	out := r.Clone()
	if out.Experience == nil {
		out.Experience = []Experience{}
	}
	if out.Projects == nil {
		out.Projects = []Project{}
	}
	if out.Achievements == nil {
		out.Achievements = []Achievement{}
	}
	if out.Education == nil {
		out.Education = []Education{}
	}
	out.Skills = dedupe(out.Skills)
	return out
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := r
	out.Experience = cloneSlice(r.Experience)
	out.Projects = cloneSlice(r.Projects)
	out.Achievements = cloneSlice(r.Achievements)
	out.Education = cloneSlice(r.Education)
	out.Skills = cloneSlice(r.Skills)
	return out
}

// Len returns the number of entries in a section.
func (r Record) Len(section Section) int {
	switch section {
	case SectionExperience:
		return len(r.Experience)
	case SectionProjects:
		return len(r.Projects)
	case SectionAchievements:
		return len(r.Achievements)
	case SectionEducation:
		return len(r.Education)
	case SectionSkills:
		return len(r.Skills)
	}
	return 0
}

// IsEmpty reports whether the record carries no content at all.
func (r Record) IsEmpty() bool {
	if r.PersonalInfo != (PersonalInfo{}) || r.Summary != "" {
		return false
	}
	for _, s := range Sections {
		if r.Len(s) > 0 {
			return false
		}
	}
	return true
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func dedupe(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
