package main

import (
	"context"
	"fmt"
	"io"
	"strings"
)

type CommandHandler func(ctx context.Context, cli *CLI, args []string) error

type ArgumentType int

const (
	ArgKeyword ArgumentType = iota
	ArgKeywordWithValue
)

type Argument struct {
	Name        string
	Description string
	Type        ArgumentType
	Values      []string
}

type CommandNode struct {
	Name        string
	Description string
	Handler     CommandHandler
	Children    []*CommandNode
	Arguments   []*Argument
}

type CommandTree struct {
	root *CommandNode
}

func NewCommandTree() *CommandTree {
	return &CommandTree{
		root: &CommandNode{Name: "root"},
	}
}

func (t *CommandTree) AddRoot(path []string, description string) {
	current := t.root
	for _, part := range path {
		next := current.child(part)
		if next == nil {
			next = &CommandNode{Name: part, Description: description}
			current.Children = append(current.Children, next)
		} else if next.Description == "" {
			next.Description = description
		}
		current = next
	}
}

func (t *CommandTree) AddCommand(path []string, description string, handler CommandHandler, args ...*Argument) {
	current := t.root
	for i, part := range path {
		next := current.child(part)
		if next == nil {
			next = &CommandNode{Name: part}
			current.Children = append(current.Children, next)
		}
		if i == len(path)-1 {
			next.Description = description
			next.Handler = handler
			next.Arguments = args
		}
		current = next
	}
}

func (n *CommandNode) child(name string) *CommandNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (n *CommandNode) argument(name string) *Argument {
	for _, a := range n.Arguments {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func (t *CommandTree) Execute(ctx context.Context, cli *CLI, input string) error {
	tokens := strings.Fields(input)
	if len(tokens) == 0 {
		return nil
	}

	current := t.root
	var cmdNode *CommandNode
	argStart := 0

	for i, token := range tokens {
		next := current.child(token)
		if next == nil {
			break
		}
		current = next
		if next.Handler != nil {
			cmdNode = next
			argStart = i + 1
		}
	}

	if cmdNode == nil {
		if current != t.root {
			return fmt.Errorf("incomplete command")
		}
		return fmt.Errorf("unrecognized command")
	}

	args := tokens[argStart:]
	if err := validateArguments(cmdNode, args); err != nil {
		return err
	}
	return cmdNode.Handler(ctx, cli, args)
}

// validateArguments checks keyword arguments. Keywords with a value consume
// the following token.
func validateArguments(cmd *CommandNode, args []string) error {
	for i := 0; i < len(args); i++ {
		arg := cmd.argument(args[i])
		if arg == nil {
			return fmt.Errorf("unknown argument: %s", args[i])
		}
		if arg.Type != ArgKeywordWithValue {
			continue
		}
		if i+1 >= len(args) {
			return fmt.Errorf("%s requires a value", arg.Name)
		}
		i++
	}
	return nil
}

func (t *CommandTree) GetCompletions(input string) []string {
	tokens := strings.Fields(input)
	endsWithSpace := len(input) > 0 && input[len(input)-1] == ' '

	current := t.root
	depth := 0
	for i, token := range tokens {
		if !endsWithSpace && i == len(tokens)-1 {
			break
		}
		next := current.child(token)
		if next == nil {
			if current.Handler != nil {
				break
			}
			return nil
		}
		current = next
		depth = i + 1
	}

	argTokens := tokens[depth:]
	prefix := ""
	if !endsWithSpace && len(tokens) > 0 {
		prefix = tokens[len(tokens)-1]
		argTokens = argTokens[:len(argTokens)-1]
	}

	// A keyword waiting for its value completes to the known values only.
	if n := len(argTokens); n > 0 {
		if arg := current.argument(argTokens[n-1]); arg != nil && arg.Type == ArgKeywordWithValue {
			var values []string
			for _, v := range arg.Values {
				if strings.HasPrefix(v, prefix) {
					values = append(values, v)
				}
			}
			return values
		}
	}

	var completions []string
	for _, child := range current.Children {
		if strings.HasPrefix(child.Name, prefix) {
			completions = append(completions, child.Name)
		}
	}

	if current.Handler != nil {
		used := make(map[string]bool)
		for _, tok := range argTokens {
			used[tok] = true
		}
		for _, arg := range current.Arguments {
			if !used[arg.Name] && strings.HasPrefix(arg.Name, prefix) {
				completions = append(completions, arg.Name)
			}
		}
	}

	return completions
}

func (t *CommandTree) ShowHelp(w io.Writer, input string) {
	tokens := strings.Fields(input)
	current := t.root
	for _, token := range tokens {
		next := current.child(token)
		if next == nil {
			break
		}
		current = next
	}

	if len(current.Children) == 0 && len(current.Arguments) == 0 {
		fmt.Fprintln(w, "\n  <cr>")
		return
	}

	fmt.Fprintln(w)
	for _, child := range current.Children {
		if child.Description != "" {
			fmt.Fprintf(w, "  %-20s %s\n", child.Name, child.Description)
		} else {
			fmt.Fprintf(w, "  %s\n", child.Name)
		}
	}
	for _, arg := range current.Arguments {
		name := arg.Name
		if arg.Type == ArgKeywordWithValue {
			name += " <value>"
		}
		fmt.Fprintf(w, "  %-20s %s\n", name, arg.Description)
	}
	fmt.Fprintln(w)
}
