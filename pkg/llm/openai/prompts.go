package openai

import "strings"

const (
	commitPersona  = "You are a helpful assistant that generates commit messages based on git diffs."
	summaryPersona = "You are a helpful assistant that generates concise summaries of code changes."
)

const hunksPreamble = `Please analyze the following git diff summaries from each file and generate a concise, descriptive commit message.
Follow conventional commit format if possible.

Git diff summaries:
`

const diffPreamble = `Please analyze the following git diff and generate a concise, descriptive commit message.
Follow conventional commit format if possible.

Git diff:
`

func hunksPrompt(hunkComments []string) string {
	return hunksPreamble + strings.Join(hunkComments, "\n")
}

func diffPrompt(diff string) string {
	return diffPreamble + diff
}
