package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
)

type CLI struct {
	client      *Client
	out         io.Writer
	format      OutputFormat
	defaultFmt  OutputFormat
	rl          *readline.Instance
	running     bool
	tree        *CommandTree
	currentLine string
}

func NewCLI(client *Client, out io.Writer, format OutputFormat) *CLI {
	cli := &CLI{
		client:     client,
		out:        out,
		format:     format,
		defaultFmt: format,
		running:    true,
		tree:       NewCommandTree(),
	}
	RegisterCommands(cli.tree)
	return cli
}

func (c *CLI) Run() error {
	var err error
	c.rl, err = readline.NewEx(&readline.Config{
		Prompt:              "eoax> ",
		HistoryFile:         os.ExpandEnv("$HOME/.eoaxctl_history"),
		AutoComplete:        &treeCompleter{tree: c.tree},
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		FuncFilterInputRune: c.filterInputWithHelp,
		Listener:            c,
		Stdout:              c.out,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer c.rl.Close()

	c.printBanner()

	for c.running {
		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					break
				}
				continue
			} else if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := c.processCommand(line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	return nil
}

func (c *CLI) Stop() {
	c.running = false
}

func (c *CLI) printBanner() {
	fmt.Fprintln(c.out, "=====================================")
	fmt.Fprintln(c.out, "    eoax Interactive CLI")
	fmt.Fprintln(c.out, "=====================================")
	fmt.Fprintf(c.out, "Connected to: %s\n", c.client.Server())
	fmt.Fprintln(c.out, "Type 'help' for available commands")
	fmt.Fprintln(c.out, "Type 'exit' or 'quit' to exit")
	fmt.Fprintln(c.out)
}

func (c *CLI) OnChange(line []rune, pos int, key rune) (newLine []rune, newPos int, ok bool) {
	c.currentLine = string(line)
	return nil, 0, false
}

func (c *CLI) filterInputWithHelp(r rune) (rune, bool) {
	if r == '?' {
		fmt.Fprint(c.out, "?\n")
		c.showInlineHelp(c.currentLine)
		c.rl.Write([]byte(c.currentLine))
		return 0, false
	}
	if r == readline.CharCtrlZ {
		return r, false
	}
	return r, true
}

func (c *CLI) showInlineHelp(input string) {
	if strings.HasSuffix(input, " ") || input == "" {
		c.tree.ShowHelp(c.out, strings.TrimSpace(input))
		return
	}
	completions := c.tree.GetCompletions(input)
	if len(completions) == 0 {
		c.tree.ShowHelp(c.out, input)
		return
	}
	fmt.Fprintln(c.out)
	for _, comp := range completions {
		fmt.Fprintf(c.out, "  %s\n", comp)
	}
	fmt.Fprintln(c.out)
}

// processCommand runs one line. A trailing "| json" or "| yaml" changes the
// output format of that command only.
func (c *CLI) processCommand(line string) error {
	switch line {
	case "exit", "quit":
		c.running = false
		return nil
	case "help", "?":
		c.tree.ShowHelp(c.out, "")
		return nil
	}

	if strings.HasSuffix(line, "?") {
		c.showInlineHelp(strings.TrimSuffix(line, "?"))
		return nil
	}

	cmd, pipe, hasPipe := strings.Cut(line, "|")
	c.format = c.defaultFmt
	defer func() { c.format = c.defaultFmt }()
	if hasPipe {
		format, err := ParseOutputFormat(strings.TrimSpace(pipe))
		if err != nil {
			return err
		}
		c.format = format
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return c.tree.Execute(ctx, c, cmd)
}

func (c *CLI) printFormatted(data any) error {
	var (
		out string
		err error
	)
	switch c.format {
	case FormatYAML:
		out, err = formatYAML(data)
	default:
		out, err = formatJSON(data)
	}
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, out)
	return nil
}

type treeCompleter struct {
	tree *CommandTree
}

func (tc *treeCompleter) Do(line []rune, pos int) (newLine [][]rune, length int) {
	input := string(line[:pos])
	completions := tc.tree.GetCompletions(input)
	if len(completions) == 0 {
		return nil, 0
	}

	partialWord := ""
	if idx := strings.LastIndexByte(input, ' '); idx >= 0 {
		partialWord = input[idx+1:]
	} else {
		partialWord = input
	}

	result := make([][]rune, len(completions))
	for i, comp := range completions {
		result[i] = []rune(strings.TrimPrefix(comp, partialWord) + " ")
	}
	return result, len([]rune(partialWord))
}
