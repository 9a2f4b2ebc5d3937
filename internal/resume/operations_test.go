package resume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvforge/internal/errors"
)

func sampleRecord() Record {
	r := New()
	r.PersonalInfo = PersonalInfo{Name: "Jane Doe", Email: "jane@example.com"}
	r.Summary = "Backend engineer."
	r.Experience = []Experience{
		{Title: "Engineer", Company: "Acme", Dates: "2020-2023", Description: "Built things"},
		{Title: "Lead", Company: "Globex", Dates: "2023-", Description: "Led things"},
		{Title: "Staff", Company: "Initech", Dates: "2024-", Description: "Planned things"},
	}
	r.Skills = []string{"Go", "SQL"}
	return r
}

func TestMergeKeepsExistingWhenSourceEmpty(t *testing.T) {
	base := sampleRecord()

	merged := base.Merge(Record{Summary: ""})

	assert.Equal(t, "Backend engineer.", merged.Summary)
	assert.Equal(t, base.Experience, merged.Experience)
	assert.Equal(t, base.Skills, merged.Skills)
	assert.Equal(t, base.PersonalInfo, merged.PersonalInfo)
}

func TestMergeOverwritesNonEmptyValues(t *testing.T) {
	base := sampleRecord()
	src := Record{
		PersonalInfo: PersonalInfo{Phone: "555-0100"},
		Summary:      "New summary",
		Skills:       []string{"Rust", "Rust", "Go"},
		Education:    []Education{{Degree: "BSc", InstitutionDates: "MIT 2016"}},
	}

	merged := base.Merge(src)

	assert.Equal(t, "New summary", merged.Summary)
	assert.Equal(t, PersonalInfo{Name: "Jane Doe", Email: "jane@example.com", Phone: "555-0100"}, merged.PersonalInfo)
	assert.Equal(t, []string{"Rust", "Go"}, merged.Skills)
	assert.Len(t, merged.Education, 1)
	assert.Len(t, merged.Experience, 3, "empty source section must not clear existing entries")
	assert.NotNil(t, merged.Projects)
}

func TestOperationsDoNotMutateInput(t *testing.T) {
	base := sampleRecord()
	snapshot := base.Clone()

	_, err := base.UpdateExperience(0, Experience{Title: "Changed"})
	require.NoError(t, err)
	_, err = base.DeleteEntry(SectionExperience, 1)
	require.NoError(t, err)
	_ = base.AddSkill("Kubernetes")
	_ = base.AppendProject(Project{Title: "X"})

	assert.Equal(t, snapshot, base)
}

func TestDeleteEntryPreservesOrder(t *testing.T) {
	base := sampleRecord()

	out, err := base.DeleteEntry(SectionExperience, 1)
	require.NoError(t, err)

	require.Len(t, out.Experience, 2)
	assert.Equal(t, "Engineer", out.Experience[0].Title)
	assert.Equal(t, "Staff", out.Experience[1].Title)
}

func TestDeleteEntryOutOfRange(t *testing.T) {
	base := sampleRecord()

	for _, idx := range []int{-1, 3, 10} {
		out, err := base.DeleteEntry(SectionExperience, idx)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeIndexOutOfRange))
		assert.Equal(t, base, out)
	}

	_, err := base.DeleteEntry(Section("hobbies"), 0)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSection))
}

func TestAddSkill(t *testing.T) {
	base := sampleRecord()

	tests := []struct {
		name  string
		skill string
		want  []string
	}{
		{"new skill", "Docker", []string{"Go", "SQL", "Docker"}},
		{"duplicate is a no-op", "Go", []string{"Go", "SQL"}},
		{"case differs", "go", []string{"Go", "SQL", "go"}},
		{"blank ignored", "   ", []string{"Go", "SQL"}},
		{"trimmed", " Docker ", []string{"Go", "SQL", "Docker"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.AddSkill(tt.skill).Skills)
		})
	}
}

func TestRemoveSkill(t *testing.T) {
	out, err := sampleRecord().RemoveSkill(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"SQL"}, out.Skills)
}

func TestUpdateEntries(t *testing.T) {
	r := New().
		AppendProject(Project{Title: "P1"}).
		AppendAchievement(Achievement{Description: "A1"}).
		AppendEducation(Education{Degree: "BSc"})

	r, err := r.UpdateProject(0, Project{Title: "P2"})
	require.NoError(t, err)
	r, err = r.UpdateAchievement(0, Achievement{Description: "A2"})
	require.NoError(t, err)
	r, err = r.UpdateEducation(0, Education{Degree: "MSc"})
	require.NoError(t, err)

	assert.Equal(t, "P2", r.Projects[0].Title)
	assert.Equal(t, "A2", r.Achievements[0].Description)
	assert.Equal(t, "MSc", r.Education[0].Degree)

	_, err = r.UpdateEducation(1, Education{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeIndexOutOfRange))
}

func TestFieldText(t *testing.T) {
	r := sampleRecord().AppendAchievement(Achievement{Description: "Shipped X"})

	text, err := r.FieldText(Field{Kind: FieldExperience, Index: 1})
	require.NoError(t, err)
	assert.Equal(t, "Led things", text)

	updated, err := r.SetFieldText(Field{Kind: FieldExperience, Index: 1}, "Led a team of 5")
	require.NoError(t, err)
	assert.Equal(t, "Led a team of 5", updated.Experience[1].Description)
	assert.Equal(t, "Globex", updated.Experience[1].Company)
	assert.Equal(t, "Led things", r.Experience[1].Description)

	updated, err = r.SetFieldText(Field{Kind: FieldSummary}, "Sharper summary")
	require.NoError(t, err)
	assert.Equal(t, "Sharper summary", updated.Summary)

	updated, err = r.SetFieldText(Field{Kind: FieldAchievement}, "Shipped Y")
	require.NoError(t, err)
	assert.Equal(t, "Shipped Y", updated.Achievements[0].Description)

	_, err = r.FieldText(Field{Kind: FieldProject, Index: 0})
	assert.True(t, errors.HasCode(err, errors.ErrCodeIndexOutOfRange))
}

func TestNormalize(t *testing.T) {
	r := Record{Skills: []string{"Go", "Go", "SQL"}}.Normalize()

	assert.NotNil(t, r.Experience)
	assert.NotNil(t, r.Projects)
	assert.NotNil(t, r.Achievements)
	assert.NotNil(t, r.Education)
	assert.Equal(t, []string{"Go", "SQL"}, r.Skills)
	assert.True(t, New().IsEmpty())
	assert.False(t, r.IsEmpty())
}
