package ai

import (
	"cvforge/internal/config"
	"cvforge/internal/resume"
)

// SystemPrompts contains the system-level instruction of each operation.
// An empty entry sends no system message.
type SystemPrompts struct {
	Parse       string
	Tailor      string
	Refine      string
	Skills      string
	CoverLetter string
}

// UserPrompts contains user-level prompt templates with %s placeholders
// for dynamic content.
type UserPrompts struct {
	Parse       string
	Tailor      string
	Refine      string
	Skills      string
	CoverLetter string
}

// DefaultSystemPrompts provides the default system instructions
var DefaultSystemPrompts = SystemPrompts{
	Parse: "You are a resume parsing expert that only outputs valid JSON.",
}

// DefaultUserPrompts provides the default user prompt templates
var DefaultUserPrompts = UserPrompts{
	// %s: resume text
	Parse: `You are a world-class resume parsing AI. Convert the resume text into a structured JSON object.
Use only information present in the resume text. Do not invent names, dates, employers, or skills.
Use an empty string or an empty list when something is missing.

**JSON Structure:**
{
"personal_info": { "name": "...", "email": "...", "phone": "...", "linkedin": "..." },
"summary": "...",
"experience": [ {"title": "...", "company": "...", "dates": "...", "description": "..."} ],
"projects": [ {"title": "...", "dates": "...", "description": "..."} ],
"achievements": [ {"description": "..."} ],
"education": [ {"degree": "Degree Name", "institution_dates": "Institution | Dates"} ],
"skills": ["Skill 1", "Skill 2", "Skill 3"]
}

**Resume Text to Parse:** --- %s ---`,

	// %s: resume text, %s: job description
	Tailor: `Below is my resume:

%s

Job Description:

%s

Please create my Resume according to this Job Description. Also add my skills according to JD, write exact term used in JD. Try to create best Resume with Best ATS Score`,

	// %s: instruction, %s: original text
	Refine: "%s\n\n--- TEXT ---\n%s",

	// %s: job title
	Skills: "Based on the job title '%s', generate a list of 10-15 relevant technical and soft skills for a resume. Output ONLY a single comma-separated string of these skills and nothing else.",

	// %s: resume text, %s: job description
	CoverLetter: `You are an expert cover letter writer. Based on the following resume and job description, write a compelling cover letter.

**Resume:**
%s

**Job Description:**
%s

**Instructions:**
- Focus on how the candidate's skills and experience align with the job requirements.
- Use a professional and enthusiastic tone.
- Keep the cover letter concise and to the point (around 300-400 words).
- Include a strong call to action, inviting the hiring manager to contact the candidate.`,
}

// GenericRefineInstruction is used for fields without a dedicated instruction.
const GenericRefineInstruction = "Rewrite the following text:"

// RefineInstructions holds the rewrite instruction per field kind.
var RefineInstructions = map[resume.FieldKind]string{
	resume.FieldSummary:     "Rewrite the following professional summary to be more impactful in 50-60 words for a CV.",
	resume.FieldExperience:  "Rewrite the following job responsibilities into 4-5 concise points, action-oriented bullet points for a CV. Use strong action verbs (e.g., 'Engineered', 'Led') and focus on quantifiable achievements. Start each point with '•'.",
	resume.FieldProject:     "Rewrite the following project description in bullet points. Focus on the technologies used and the outcome. Start each point with '•'.",
	resume.FieldAchievement: "Rewrite the following achievement to be more impactful and professional for a CV. Use the STAR method (Situation, Task, Action, Result) if applicable, but keep it concise (1-2 sentences).",
}

// refineInstruction returns the instruction for kind, or the generic one.
func refineInstruction(kind resume.FieldKind) string {
	if instruction, ok := RefineInstructions[kind]; ok {
		return instruction
	}
	return GenericRefineInstruction
}

// defaultPrompts returns the built-in system prompt and user template of an operation.
func defaultPrompts(operation string) (string, string) {
	switch operation {
	case config.OpParse:
		return DefaultSystemPrompts.Parse, DefaultUserPrompts.Parse
	case config.OpTailor:
		return DefaultSystemPrompts.Tailor, DefaultUserPrompts.Tailor
	case config.OpRefine:
		return DefaultSystemPrompts.Refine, DefaultUserPrompts.Refine
	case config.OpSkills:
		return DefaultSystemPrompts.Skills, DefaultUserPrompts.Skills
	case config.OpCoverLetter:
		return DefaultSystemPrompts.CoverLetter, DefaultUserPrompts.CoverLetter
	}
	return "", ""
}

// resolvePrompt selects the correct prompt string based on a clear priority order:
// 1. A prompt loaded from a file.
// 2. A prompt defined directly in the configuration.
// 3. A hardcoded default prompt.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
