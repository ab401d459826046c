package ai

import (
	"context"
	"fmt"
	"strings"
)

const summarySystemPrompt = `You are a technical recruiting analyst. You write short,
factual candidate briefs from structured data. Never invent facts that
are not in the data; say "unknown" instead.`

const answerSystemPrompt = `You are a technical recruiting analyst answering questions
about a candidate from structured data only. If the data does not
contain the answer, say so explicitly.`

// Dossier is the structured candidate data fed to the model. Every
// field is optional; empty fields are omitted from the prompt.
type Dossier struct {
	FullName       string
	Headline       string
	Location       string
	Employments    []string // "Title at Company (2021-2023)"
	GithubUsername string
	Followers      int
	Ecosystems     []string
	TopRepos       []string // "owner/repo (1234 stars, 56 contributions)"
}

// Render flattens the dossier into the prompt block both features share.
func (d Dossier) Render() string {
	var sb strings.Builder
	write := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "%s: %s\n", label, value)
		}
	}
	write("Name", d.FullName)
	write("Headline", d.Headline)
	write("Location", d.Location)
	write("Employment history", strings.Join(d.Employments, "; "))
	write("GitHub username", d.GithubUsername)
	if d.Followers > 0 {
		write("GitHub followers", fmt.Sprint(d.Followers))
	}
	write("Ecosystems", strings.Join(d.Ecosystems, ", "))
	write("Notable repositories", strings.Join(d.TopRepos, "; "))
	return sb.String()
}

// Summarize produces a short recruiter-facing brief for a candidate.
func Summarize(ctx context.Context, completer Completer, d Dossier) (string, error) {
	data := d.Render()
	if data == "" {
		return "", fmt.Errorf("dossier is empty")
	}
	prompt := "Write a 3-4 sentence candidate brief from this data:\n\n" + data
	return completer.Complete(ctx, summarySystemPrompt, prompt)
}

// Answer responds to a free-form recruiter question about a candidate.
func Answer(ctx context.Context, completer Completer, d Dossier, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question is empty")
	}
	prompt := fmt.Sprintf("Candidate data:\n\n%s\nQuestion: %s", d.Render(), question)
	return completer.Complete(ctx, answerSystemPrompt, prompt)
}
