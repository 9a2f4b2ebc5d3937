package render

import (
	"strings"

	"cvforge/internal/resume"
)

// Page geometry in points: A4 portrait with 0.7in margins.
const (
	PageWidth    = 595.28
	PageHeight   = 841.89
	Margin       = 50.4
	ContentWidth = PageWidth - 2*Margin

	SkillColumns = 4
	entrySpacing = 12
)

// Style names a paragraph style of the CV design.
type Style string

const (
	StyleName          Style = "name"
	StyleContact       Style = "contact"
	StyleSectionTitle  Style = "section_title"
	StyleEntryTitle    Style = "entry_title"
	StyleEntrySubtitle Style = "entry_subtitle"
	StyleBody          Style = "body"
	StyleListItem      Style = "list_item"
)

// Section titles, in rendering order.
const (
	TitleSummary      = "PROFESSIONAL SUMMARY"
	TitleExperience   = "WORK EXPERIENCE"
	TitleProjects     = "PROJECTS"
	TitleAchievements = "ACHIEVEMENTS"
	TitleEducation    = "EDUCATION"
	TitleSkills       = "SKILLS"
)

// Block is one flowable of a Document.
type Block interface {
	block()
}

// Link is a hyperlink appended to a paragraph.
type Link struct {
	Text string
	URL  string
}

// Paragraph is escaped markup in one style. Markup may contain LineBreak.
type Paragraph struct {
	Style  Style
	Markup string
	Link   *Link
}

// Rule is a full-width horizontal line.
type Rule struct {
	SpaceAfter float64
}

// Spacer is vertical whitespace.
type Spacer struct {
	Height float64
}

// Cell is one skill grid cell. Pad cells fill the last row and are not drawn.
type Cell struct {
	Text string
	Pad  bool
}

// SkillTable is the skills grid.
type SkillTable struct {
	Rows        [][]Cell
	ColumnWidth float64
}

func (Paragraph) block()  {}
func (Rule) block()       {}
func (Spacer) block()     {}
func (SkillTable) block() {}

// Document is the laid out CV.
type Document struct {
	Title  string
	Author string
	Blocks []Block
}

// Build lays out a record. It is pure: the same record always yields the
// same document.
func Build(r resume.Record) Document {
	b := &builder{}
	info := r.PersonalInfo

	b.paragraph(StyleName, Escape(info.Name))
	contact := Paragraph{Style: StyleContact, Markup: Escape(joinContact(info.Email, info.Phone))}
	if strings.TrimSpace(info.LinkedIn) != "" {
		contact.Link = &Link{Text: "LinkedIn Profile", URL: strings.TrimSpace(info.LinkedIn)}
	}
	b.add(contact)
	b.add(Rule{SpaceAfter: 14})

	if strings.TrimSpace(r.Summary) != "" {
		b.section(TitleSummary)
		b.paragraph(StyleBody, Markup(r.Summary))
	}

	b.entries(TitleExperience, len(r.Experience), func(i int) []Block {
		e := r.Experience[i]
		if strings.TrimSpace(e.Title) == "" {
			return nil
		}
		return []Block{
			Paragraph{Style: StyleEntryTitle, Markup: Escape(e.Title)},
			Paragraph{Style: StyleEntrySubtitle, Markup: Escape(e.Company + " | " + e.Dates)},
			Paragraph{Style: StyleBody, Markup: Markup(e.Description)},
		}
	})

	b.entries(TitleProjects, len(r.Projects), func(i int) []Block {
		p := r.Projects[i]
		if strings.TrimSpace(p.Title) == "" {
			return nil
		}
		return []Block{
			Paragraph{Style: StyleEntryTitle, Markup: Escape(p.Title)},
			Paragraph{Style: StyleEntrySubtitle, Markup: Escape(p.Dates)},
			Paragraph{Style: StyleBody, Markup: Markup(p.Description)},
		}
	})

	// Achievements and skills are list-like and get extra air above them.
	b.list(TitleAchievements, len(r.Achievements), func(i int) []Block {
		a := r.Achievements[i]
		if strings.TrimSpace(a.Description) == "" {
			return nil
		}
		return []Block{Paragraph{Style: StyleListItem, Markup: "• " + Escape(a.Description)}}
	})

	b.entries(TitleEducation, len(r.Education), func(i int) []Block {
		e := r.Education[i]
		if strings.TrimSpace(e.Degree) == "" {
			return nil
		}
		return []Block{
			Paragraph{Style: StyleEntryTitle, Markup: Escape(e.Degree)},
			Paragraph{Style: StyleEntrySubtitle, Markup: Escape(e.InstitutionDates)},
		}
	})

	if len(r.Skills) > 0 {
		b.add(Spacer{Height: entrySpacing})
		b.section(TitleSkills)
		b.add(SkillTable{
			Rows:        SkillGrid(r.Skills, SkillColumns),
			ColumnWidth: ContentWidth / SkillColumns,
		})
	}

	return Document{
		Title:  strings.TrimSpace(info.Name + " CV"),
		Author: info.Name,
		Blocks: b.blocks,
	}
}

// SkillGrid lays skills out row-major, padding the last row to columns.
func SkillGrid(skills []string, columns int) [][]Cell {
	if columns <= 0 || len(skills) == 0 {
		return nil
	}
	rows := make([][]Cell, 0, (len(skills)+columns-1)/columns)
	for start := 0; start < len(skills); start += columns {
		row := make([]Cell, columns)
		for j := range row {
			if start+j < len(skills) {
				row[j] = Cell{Text: Escape(skills[start+j])}
			} else {
				row[j] = Cell{Pad: true}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func joinContact(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " | ")
}

type builder struct {
	blocks []Block
}

func (b *builder) add(blocks ...Block) {
	b.blocks = append(b.blocks, blocks...)
}

func (b *builder) paragraph(style Style, markup string) {
	b.add(Paragraph{Style: style, Markup: markup})
}

func (b *builder) section(title string) {
	b.paragraph(StyleSectionTitle, title)
	b.add(Rule{SpaceAfter: 8})
}

// entries emits a titled section holding the non-nil entries, separated by
// spacers. A section whose entries are all skipped is omitted.
func (b *builder) entries(title string, n int, entry func(i int) []Block) {
	var rendered [][]Block
	for i := 0; i < n; i++ {
		if blocks := entry(i); blocks != nil {
			rendered = append(rendered, blocks)
		}
	}
	if len(rendered) == 0 {
		return
	}
	b.section(title)
	for i, blocks := range rendered {
		if i > 0 {
			b.add(Spacer{Height: entrySpacing})
		}
		b.add(blocks...)
	}
}

// list is like entries without spacers between items.
func (b *builder) list(title string, n int, item func(i int) []Block) {
	var rendered []Block
	for i := 0; i < n; i++ {
		rendered = append(rendered, item(i)...)
	}
	if len(rendered) == 0 {
		return
	}
	b.add(Spacer{Height: entrySpacing})
	b.section(title)
	b.add(rendered...)
}
