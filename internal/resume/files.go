package resume

import (
	"fmt"
	"strings"
)

// PDFFilename is the download name for a rendered resume.
func (r Record) PDFFilename() string {
	return fileStem(r.PersonalInfo.Name) + "CV.pdf"
}

// CoverLetterFilename is the download name for a generated cover letter.
func (r Record) CoverLetterFilename() string {
	return fileStem(r.PersonalInfo.Name) + "Cover_Letter.txt"
}

func fileStem(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|':
			return -1
		}
		return r
	}, name)
	return strings.ReplaceAll(name, " ", "_") + "_"
}

// PlainText renders the record as readable text, used as model input for
// cover letters and as the CLI text output.
func (r Record) PlainText() string {
	var b strings.Builder
	info := r.PersonalInfo
	if info.Name != "" {
		b.WriteString(info.Name + "\n")
	}
	var contact []string
	for _, v := range []string{info.Email, info.Phone, info.LinkedIn} {
		if v != "" {
			contact = append(contact, v)
		}
	}
	if len(contact) > 0 {
		b.WriteString(strings.Join(contact, " | ") + "\n")
	}

	if r.Summary != "" {
		writeHeading(&b, "Summary")
		b.WriteString(r.Summary + "\n")
	}
	if len(r.Experience) > 0 {
		writeHeading(&b, "Experience")
		for _, e := range r.Experience {
			fmt.Fprintf(&b, "%s\n", joinNonEmpty(" | ", e.Title, e.Company, e.Dates))
			if e.Description != "" {
				b.WriteString(e.Description + "\n")
			}
		}
	}
	if len(r.Projects) > 0 {
		writeHeading(&b, "Projects")
		for _, p := range r.Projects {
			fmt.Fprintf(&b, "%s\n", joinNonEmpty(" | ", p.Title, p.Dates))
			if p.Description != "" {
				b.WriteString(p.Description + "\n")
			}
		}
	}
	if len(r.Achievements) > 0 {
		writeHeading(&b, "Achievements")
		for _, a := range r.Achievements {
			if a.Description != "" {
				b.WriteString("- " + a.Description + "\n")
			}
		}
	}
	if len(r.Education) > 0 {
		writeHeading(&b, "Education")
		for _, e := range r.Education {
			b.WriteString(joinNonEmpty(" | ", e.Degree, e.InstitutionDates) + "\n")
		}
	}
	if len(r.Skills) > 0 {
		writeHeading(&b, "Skills")
		b.WriteString(strings.Join(r.Skills, ", ") + "\n")
	}
	return strings.TrimSpace(b.String())
}

func writeHeading(b *strings.Builder, title string) {
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(strings.ToUpper(title) + "\n")
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
