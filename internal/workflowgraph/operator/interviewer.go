package operator

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Interviewer obtains a human decision for HumanApproval/HumanDecision.
// The default implementation prompts on the console; callers embedding
// the engine in a service can substitute one backed by a ticketing system
// or chat integration.
type Interviewer interface {
	Approve(ctx context.Context, message string) (approved bool, err error)
	Choose(ctx context.Context, message string, options []string) (choice string, err error)
}

// ConsoleInterviewer reads a line from stdin for each decision, matching
// the simplest possible deployment (an operator attached to a terminal).
type ConsoleInterviewer struct{}

func (c *ConsoleInterviewer) Approve(ctx context.Context, message string) (bool, error) {
	fmt.Printf("%s [y/n]: ", message)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes", nil
}

func (c *ConsoleInterviewer) Choose(ctx context.Context, message string, options []string) (string, error) {
	fmt.Printf("%s %v: ", message, options)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
