package session

import "strings"

// personaDirectives maps the persona selector to behavioral instructions for
// the interviewer voice.
var personaDirectives = map[string]string{
	"friendly": "Be warm and encouraging. Put the candidate at ease, acknowledge good answers, and offer gentle nudges when they struggle.",
	"neutral":  "Be professional and even-keeled. Ask questions plainly, do not signal approval or disapproval, and move on once an answer is complete.",
	"strict":   "Be demanding and direct. Probe vague answers with follow-up questions, challenge weak reasoning, and keep the pace brisk.",
}

// BuildInstruction interpolates the interview configuration into the single
// system instruction sent at session negotiation.
func BuildInstruction(cfg InterviewConfig) string {
	var b strings.Builder
	b.WriteString("You are a job interviewer conducting a live spoken interview. ")
	b.WriteString("Speak naturally and concisely, ask one question at a time, and wait for the candidate to finish before responding.\n\n")

	if cfg.Role != "" {
		b.WriteString("Position: ")
		b.WriteString(cfg.Role)
		b.WriteString("\n")
	}
	if cfg.Seniority != "" {
		b.WriteString("Seniority level: ")
		b.WriteString(cfg.Seniority)
		b.WriteString("\n")
	}
	if cfg.CompanyType != "" {
		b.WriteString("Company type: ")
		b.WriteString(cfg.CompanyType)
		b.WriteString("\n")
	}

	directive, ok := personaDirectives[strings.ToLower(strings.TrimSpace(cfg.Persona))]
	if !ok {
		directive = personaDirectives["neutral"]
	}
	b.WriteString("\nInterviewer style: ")
	b.WriteString(directive)
	b.WriteString("\n")

	if jd := strings.TrimSpace(cfg.JobDescription); jd != "" {
		b.WriteString("\nJob description:\n")
		b.WriteString(jd)
		b.WriteString("\n")
	}
	if resume := strings.TrimSpace(cfg.Resume); resume != "" {
		b.WriteString("\nCandidate resume:\n")
		b.WriteString(resume)
		b.WriteString("\n")
	}

	b.WriteString("\nBegin by greeting the candidate and asking them to introduce themselves.")
	return b.String()
}
