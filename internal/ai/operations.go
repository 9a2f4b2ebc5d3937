package ai

import (
	"context"
	"strings"

	"cvforge/internal/config"
	"cvforge/internal/errors"
	"cvforge/internal/resume"
)

// Tailor rewrites resume text against a job description. The result may
// contain content that is not in the source text.
func (s *Service) Tailor(ctx context.Context, resumeText, jobDescription string) (string, *TokenUsage, error) {
	comp, err := s.complete(ctx, config.OpTailor, false, resumeText, jobDescription)
	if err != nil {
		return "", nil, completionFailed("AI tailoring failed", err)
	}
	return strings.TrimSpace(comp.Text), comp.Usage, nil
}

// ParseResult is a parsed record and whether it was parsed from tailored
// text rather than the text given.
type ParseResult struct {
	Record   resume.Record
	Tailored bool
}

// ParseResume turns resume text into a Record. With a non-blank job
// description the text is tailored first; a failed or empty rewrite falls
// back to the original text. On any failure the returned record is zero.
func (s *Service) ParseResume(ctx context.Context, text, jobDescription string) (ParseResult, *TokenUsage, error) {
	var usage *TokenUsage
	var res ParseResult
	source := text

	if strings.TrimSpace(jobDescription) != "" {
		tailored, tailorUsage, err := s.Tailor(ctx, text, jobDescription)
		usage = usage.add(tailorUsage)
		switch {
		case err != nil:
			s.logger.Warn("Tailoring failed, parsing the original text",
				"error", errors.Display(err))
		case tailored == "":
			s.logger.Warn("Tailoring returned no text, parsing the original text")
		default:
			if tailored != strings.TrimSpace(text) {
				s.logger.Warn("Tailored text replaces the extracted text and may contain content not in the upload",
					"original_length", len(text),
					"tailored_length", len(tailored))
			}
			source = tailored
			res.Tailored = true
		}
	}

	comp, err := s.complete(ctx, config.OpParse, true, source)
	if err != nil {
		return ParseResult{}, usage, completionFailed("AI parsing failed", err)
	}
	usage = usage.add(comp.Usage)

	res.Record, err = resume.Decode([]byte(cleanJSONBlock(comp.Text)))
	if err != nil {
		return ParseResult{}, usage, errors.NewAIError(errors.ErrCodeAIResponseParseFailed,
			"AI parsing returned an invalid resume", err)
	}
	return res, usage, nil
}

// Refine rewrites one field's text. On failure the original text is
// returned together with the error.
func (s *Service) Refine(ctx context.Context, text string, kind resume.FieldKind) (string, *TokenUsage, error) {
	comp, err := s.complete(ctx, config.OpRefine, false, refineInstruction(kind), text)
	if err != nil {
		return text, nil, completionFailed("AI refinement failed", err)
	}
	refined := strings.TrimSpace(comp.Text)
	if refined == "" {
		return text, comp.Usage, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"AI refinement failed", &CompletionError{Body: "empty response"})
	}
	return refined, comp.Usage, nil
}

// SuggestSkills asks for skills relevant to a job title. On failure it
// returns an empty, non-nil list together with the error.
func (s *Service) SuggestSkills(ctx context.Context, role string) ([]string, *TokenUsage, error) {
	comp, err := s.complete(ctx, config.OpSkills, false, role)
	if err != nil {
		return []string{}, nil, completionFailed("AI skill suggestion failed", err)
	}
	return parseSkillList(comp.Text), comp.Usage, nil
}

// CoverLetter writes a cover letter from a plain-text resume and a job description.
func (s *Service) CoverLetter(ctx context.Context, resumeText, jobDescription string) (string, *TokenUsage, error) {
	comp, err := s.complete(ctx, config.OpCoverLetter, false, resumeText, jobDescription)
	if err != nil {
		return "", nil, completionFailed("Cover letter generation failed", err)
	}
	letter := strings.TrimSpace(comp.Text)
	if letter == "" {
		return "", comp.Usage, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Cover letter generation failed", &CompletionError{Body: "empty response"})
	}
	return letter, comp.Usage, nil
}

// parseSkillList splits a comma-separated reply, dropping blanks and
// repeats while keeping first-seen order.
func parseSkillList(reply string) []string {
	parts := strings.Split(strings.TrimSpace(reply), ",")
	skills := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, part := range parts {
		skill := strings.TrimSpace(part)
		if skill == "" || seen[skill] {
			continue
		}
		seen[skill] = true
		skills = append(skills, skill)
	}
	return skills
}

// cleanJSONBlock strips a Markdown code fence and any chatter around the
// outermost JSON object.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start, end := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
