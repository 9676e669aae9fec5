package generation

import (
	"fmt"
	"strings"
)

// Document names the kind of text being generated. It labels metrics and
// selects the prompt; it is not the quota kind.
type Document string

const (
	DocumentResume   Document = "resume"
	DocumentCover    Document = "cover"
	DocumentProposal Document = "proposal"
)

// Prompt is one chat-completion request.
type Prompt struct {
	Document    Document
	System      string
	User        string
	Temperature float32
}

// ResumePrompt rewrites a résumé for ATS scanning, optionally targeting a job description.
func ResumePrompt(resume, jobDescription string) Prompt {
	var b strings.Builder
	b.WriteString("You are an expert ATS resume optimizer. Improve the following resume for ATS scanning, ")
	b.WriteString("clarity, impact, and specificity. Only include keywords the candidate's experience truly supports. ")
	b.WriteString("Keep original chronology, avoid fabrications, and return only improved resume text.\n\n")
	if jd := strings.TrimSpace(jobDescription); jd != "" {
		b.WriteString("Match the improvements to the following job description. Prioritize relevant keywords and ")
		b.WriteString("responsibilities that are genuinely supported by the resume.\n\nJOB DESCRIPTION:\n")
		b.WriteString(jd)
		b.WriteString("\n\n")
	}
	b.WriteString("RESUME:\n")
	b.WriteString(resume)

	return Prompt{
		Document:    DocumentResume,
		System:      "You optimize resumes for ATS and clarity.",
		User:        b.String(),
		Temperature: 0.4,
	}
}

// CoverPrompt writes a cover letter for jobTitle at company from the résumé text.
func CoverPrompt(jobTitle, company, resume string) Prompt {
	return Prompt{
		Document: DocumentCover,
		System:   "You are a professional cover letter writer.",
		User: fmt.Sprintf("Write a concise, tailored cover letter (max ~350 words) for the role of %s at %s. "+
			"Use the candidate's resume below. Be specific, avoid clichés, and align skills with the role.\n\nRESUME:\n%s",
			jobTitle, company, resume),
		Temperature: 0.5,
	}
}

// ProposalInput holds the optional details of a freelance proposal.
type ProposalInput struct {
	ProjectTitle   string
	ClientName     string
	ProjectDetails string
	Budget         string
	Resume         string
}

// ProposalPrompt writes a short freelance proposal.
func ProposalPrompt(in ProposalInput) Prompt {
	client := strings.TrimSpace(in.ClientName)
	budget := strings.TrimSpace(in.Budget)
	details := strings.TrimSpace(in.ProjectDetails)

	salutation := "Hi there,"
	recipient := "your organization"
	if client != "" {
		salutation = fmt.Sprintf("Hi %s,", client)
		recipient = client
	}
	rate := budget
	if rate == "" {
		rate = "[set rate]"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nWrite a concise, persuasive Upwork proposal (180-230 words) for: %q at %s.\n", salutation, in.ProjectTitle, recipient)
	b.WriteString("Style: first person, friendly-professional, outcome-driven. No headings, no bold, no emojis. Avoid markdown entirely.\n\n")
	b.WriteString("Include, in this order:\n")
	b.WriteString("1) 1-2 sentence hook tailored to the project and recipient (individual vs company tone).\n")
	b.WriteString("2) A 2-3 step approach with realistic sequence and short timeline.\n")
	b.WriteString("3) 1-2 proof points with concrete results (numbers if available) drawn from the resume.\n")
	fmt.Fprintf(&b, "4) An explicit rate line using the given budget if present (e.g., \"My rate: %s; for this scope I'd propose ...\") and a short availability note.\n", rate)
	b.WriteString("5) Clear CTA (15-minute call or a tiny paid kickoff milestone).\n\n")
	b.WriteString("If the title is long or has multiple variants, choose the single most relevant focus based on the resume and details. ")
	b.WriteString("Keep sentences tight; avoid generic buzzwords.\n\n")
	if budget != "" {
		fmt.Fprintf(&b, "Budget/rate input: %s\n", budget)
	}
	if details != "" {
		fmt.Fprintf(&b, "Project details provided:\n\n%s\n\n", details)
	}
	b.WriteString("RESUME:\n")
	b.WriteString(in.Resume)

	return Prompt{
		Document:    DocumentProposal,
		System:      "You write concise, high-conversion Upwork proposals.",
		User:        b.String(),
		Temperature: 0.4,
	}
}
