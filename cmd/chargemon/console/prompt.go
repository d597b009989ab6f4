package console

import (
	"strings"

	"github.com/chzyer/readline"
)

const (
	Yes = "y"
	No  = "n"
)

// YesOrNo defaults to no; destructive commands must be confirmed explicitly.
func YesOrNo(question string) (string, error) {
	return Prompt(question, No, Yes)
}

// Prompt reads one line. With constraints, the answer must be one of them; the first one is the default.
func Prompt(question string, constraints ...string) (string, error) {
	if len(constraints) == 0 {
		rl, err := readline.New(question)
		if err != nil {
			return "", err
		}
		defer rl.Close()
		return rl.Readline()
	}
	var prompt strings.Builder
	prompt.WriteString(question)
	prompt.WriteString(" [")
	prompt.WriteString(strings.ToUpper(constraints[0]))
	for _, c := range constraints[1:] {
		prompt.WriteString("/")
		prompt.WriteString(c)
	}
	prompt.WriteString("]: ")
	rl, err := readline.New(prompt.String())
	if err != nil {
		return "", err
	}
	defer rl.Close()
	response, err := rl.Readline()
	if err != nil {
		return "", err
	}
	normalized := strings.ToLower(strings.TrimSpace(response))
	for _, c := range constraints {
		if normalized == c {
			return normalized, nil
		}
	}
	return constraints[0], nil
}
