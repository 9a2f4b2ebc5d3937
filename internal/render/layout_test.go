package render

import (
	"testing"

	"cvforge/internal/resume"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func janeDoe() resume.Record {
	r := resume.New()
	r.PersonalInfo = resume.PersonalInfo{Name: "Jane Doe", Email: "jane@example.com"}
	r.Experience = []resume.Experience{
		{Title: "", Company: "Ghost Corp", Dates: "2019", Description: "invisible"},
		{Title: "Engineer", Company: "Acme", Dates: "2020-2023", Description: "Built X\nRan Y"},
	}
	r.Achievements = []resume.Achievement{{Description: "Shipped X"}}
	return r
}

// titles returns the section titles of doc in order.
func titles(doc Document) []string {
	var out []string
	for _, b := range doc.Blocks {
		if p, ok := b.(Paragraph); ok && p.Style == StyleSectionTitle {
			out = append(out, p.Markup)
		}
	}
	return out
}

func paragraphs(doc Document, style Style) []Paragraph {
	var out []Paragraph
	for _, b := range doc.Blocks {
		if p, ok := b.(Paragraph); ok && p.Style == style {
			out = append(out, p)
		}
	}
	return out
}

func TestBuildJaneDoe(t *testing.T) {
	doc := Build(janeDoe())

	assert.Equal(t, []string{TitleExperience, TitleAchievements}, titles(doc))

	entryTitles := paragraphs(doc, StyleEntryTitle)
	require.Len(t, entryTitles, 1, "empty-titled experience is skipped")
	assert.Equal(t, "Engineer", entryTitles[0].Markup)

	body := paragraphs(doc, StyleBody)
	require.Len(t, body, 1)
	assert.Equal(t, "Built X<br/>Ran Y", body[0].Markup)

	items := paragraphs(doc, StyleListItem)
	require.Len(t, items, 1)
	assert.Equal(t, "• Shipped X", items[0].Markup)

	for _, p := range paragraphs(doc, StyleBody) {
		assert.NotContains(t, p.Markup, "invisible")
	}
	assert.Equal(t, "Jane Doe CV", doc.Title)
}

func TestBuildHeaderAlwaysPresent(t *testing.T) {
	doc := Build(resume.New())

	require.Len(t, doc.Blocks, 3)
	assert.Equal(t, Paragraph{Style: StyleName, Markup: ""}, doc.Blocks[0])
	assert.Equal(t, Paragraph{Style: StyleContact, Markup: ""}, doc.Blocks[1])
	assert.IsType(t, Rule{}, doc.Blocks[2])
	assert.Empty(t, titles(doc))
}

func TestBuildContactLine(t *testing.T) {
	r := resume.New()
	r.PersonalInfo = resume.PersonalInfo{
		Name:     "A & B",
		Email:    "a@b.c",
		Phone:    "555",
		LinkedIn: "https://linkedin.com/in/ab",
	}
	doc := Build(r)

	assert.Equal(t, "A &amp; B", doc.Blocks[0].(Paragraph).Markup)
	contact := doc.Blocks[1].(Paragraph)
	assert.Equal(t, "a@b.c | 555", contact.Markup)
	require.NotNil(t, contact.Link)
	assert.Equal(t, Link{Text: "LinkedIn Profile", URL: "https://linkedin.com/in/ab"}, *contact.Link)
}

func TestBuildSectionOrder(t *testing.T) {
	r := resume.New()
	r.Skills = []string{"Go"}
	r.Education = []resume.Education{{Degree: "BSc", InstitutionDates: "Uni | 2015"}}
	r.Achievements = []resume.Achievement{{Description: "Won"}}
	r.Projects = []resume.Project{{Title: "cvforge", Dates: "2024"}}
	r.Experience = []resume.Experience{{Title: "Dev"}}
	r.Summary = "Builder of things"

	assert.Equal(t, []string{
		TitleSummary, TitleExperience, TitleProjects, TitleAchievements, TitleEducation, TitleSkills,
	}, titles(Build(r)))
}

func TestBuildSkipsEmptyEntriesAndSpacesRenderedOnes(t *testing.T) {
	r := resume.New()
	r.Projects = []resume.Project{{Title: "One"}, {Title: " "}, {Title: "Two"}, {Title: ""}}
	r.Education = []resume.Education{{Degree: "", InstitutionDates: "nowhere"}}
	r.Achievements = []resume.Achievement{{Description: ""}}

	doc := Build(r)
	assert.Equal(t, []string{TitleProjects}, titles(doc), "sections with no renderable entry are omitted")

	spacers := 0
	for _, b := range doc.Blocks {
		if _, ok := b.(Spacer); ok {
			spacers++
		}
	}
	assert.Equal(t, 1, spacers, "one spacer between two rendered projects")
}

func TestMarkupEscaping(t *testing.T) {
	assert.Equal(t, "R&amp;D &lt;b&gt;bold&lt;/b&gt;", Escape("R&D <b>bold</b>"))
	assert.Equal(t, "a<br/>b &amp; c", Markup("a\nb & c"))
	assert.Equal(t, []string{"a", "b & c"}, markupLines(Markup("a\nb & c")))
}

func TestSkillGrid(t *testing.T) {
	skills := []string{"Go", "SQL", "Docker", "K8s", "gRPC", "Kafka", "Redis", "Linux", "AWS", "C&C"}
	rows := SkillGrid(skills, 4)

	require.Len(t, rows, 3)
	assert.Equal(t, []Cell{{Text: "Go"}, {Text: "SQL"}, {Text: "Docker"}, {Text: "K8s"}}, rows[0])
	assert.Equal(t, []Cell{{Text: "AWS"}, {Text: "C&amp;C"}, {Pad: true}, {Pad: true}}, rows[2])

	for _, c := range rows[2][2:] {
		assert.Empty(t, c.Text, "pad cells carry no text")
	}

	assert.Nil(t, SkillGrid(nil, 4))
	assert.Len(t, SkillGrid([]string{"a", "b", "c", "d"}, 4), 1)
}

func TestSkillTableColumnWidth(t *testing.T) {
	r := resume.New()
	r.Skills = []string{"Go"}
	doc := Build(r)

	table, ok := doc.Blocks[len(doc.Blocks)-1].(SkillTable)
	require.True(t, ok)
	assert.InDelta(t, ContentWidth/4, table.ColumnWidth, 1e-9)
	assert.InDelta(t, 494.48, ContentWidth, 1e-9)
}
