package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	prompt "github.com/c-bata/go-prompt"
	"golang.org/x/term"

	"bugx/internal/logging"
)

var commandSuggestions = []prompt.Suggest{
	{Text: ":help", Description: "show this text"},
	{Text: ":tools", Description: "list registered tools"},
	{Text: ":reset", Description: "forget the conversation and start over"},
	{Text: ":tokens", Description: "show tokens used this session"},
	{Text: ":quit", Description: "exit the program"},
	{Text: ":exit", Description: "exit the program"},
}

type interruptTracker struct {
	mu     sync.Mutex
	last   time.Time
	window time.Duration
}

func newInterruptTracker(window time.Duration) *interruptTracker {
	return &interruptTracker{window: window}
}

func (t *interruptTracker) secondPress() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if !t.last.IsZero() && now.Sub(t.last) < t.window {
		t.last = time.Time{}
		return true
	}
	t.last = now
	return false
}

type promptExit struct{}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Run starts the interactive loop: a go-prompt REPL on a terminal, a plain
// line reader otherwise.
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := newInterruptTracker(2 * time.Second)
	if a.isTTY {
		return a.runPrompt(ctx, cancel, tracker)
	}
	stop := a.watchInterrupts(ctx, cancel, tracker)
	defer stop()
	return a.runNonInteractive(ctx, cancel)
}

// RunOneShot answers a single prompt and prints the reply.
func (a *Agent) RunOneShot(ctx context.Context, input string) error {
	reply, err := a.Respond(ctx, input)
	if err != nil {
		return fmt.Errorf("respond: %w", err)
	}
	if reply.Content != "" {
		a.printResponse(reply.Content)
	}
	return nil
}

func (a *Agent) greet() {
	fmt.Fprintln(a.opts.Out, "BugX is ready. Working directory:", a.opts.Workspace)
	fmt.Fprintln(a.opts.Out, "Type ':help' for commands. Use double Ctrl+C to exit.")
}

func (a *Agent) runPrompt(ctx context.Context, cancel context.CancelFunc, tracker *interruptTracker) (err error) {
	a.greet()
	history := loadInputHistory(a.opts.HistoryPath)

	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		if state, terr := term.GetState(fd); terr == nil {
			defer func() { _ = term.Restore(fd, state) }()
		}
	}

	var exitRequested atomic.Bool
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(promptExit); ok {
				err = nil
				return
			}
			panic(r)
		}
	}()
	exit := func() {
		exitRequested.Store(true)
		cancel()
		panic(promptExit{})
	}

	executor := func(in string) {
		if exitRequested.Load() || ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(in)
		if line == "" {
			return
		}
		history.Add(line)
		// go-prompt leaves raw mode while the executor runs, so Ctrl+C
		// arrives as SIGINT rather than as a key press.
		stop := a.watchInterrupts(ctx, cancel, tracker)
		quit := a.handleLine(ctx, line)
		stop()
		if quit {
			exit()
		}
	}

	p := prompt.New(
		executor,
		commandCompleter,
		prompt.OptionHistory(history.Entries()),
		prompt.OptionTitle("BugX"),
		prompt.OptionPrefix("bugx > "),
		prompt.OptionAddKeyBind(
			prompt.KeyBind{
				Key: prompt.ControlC,
				Fn: func(buf *prompt.Buffer) {
					if a.CancelRequest() {
						fmt.Fprintln(a.opts.Out, "\n(Current request cancelled.)")
						return
					}
					if tracker.secondPress() {
						fmt.Fprintln(a.opts.Out, "\nReceived second Ctrl+C, exiting.")
						exit()
					}
					fmt.Fprintln(a.opts.Out, "\n(Press Ctrl+C again within 2s to exit)")
				},
			},
			prompt.KeyBind{
				Key: prompt.ControlD,
				Fn: func(buf *prompt.Buffer) {
					if buf.Text() == "" {
						exit()
					}
				},
			},
		),
		prompt.OptionSetExitCheckerOnInput(func(string, bool) bool {
			return exitRequested.Load() || ctx.Err() != nil
		}),
	)

	p.Run()
	return nil
}

func commandCompleter(doc prompt.Document) []prompt.Suggest {
	prefix := strings.TrimLeft(doc.TextBeforeCursor(), " \t")
	if !strings.HasPrefix(prefix, ":") {
		return nil
	}
	return prompt.FilterHasPrefix(commandSuggestions, doc.GetWordBeforeCursor(), true)
}

func (a *Agent) runNonInteractive(ctx context.Context, cancel context.CancelFunc) error {
	reader := bufio.NewReader(a.opts.In)
	a.greet()
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(a.opts.Out, "bugx > ")
		line, err := reader.ReadString('\n')
		if line != "" {
			if a.handleLine(ctx, trimLineEnding(line)) {
				cancel()
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				fmt.Fprintln(a.opts.Out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
	}
}

// watchInterrupts handles SIGINT until the returned stop is called. The first
// Ctrl+C cancels the turn in flight; a second one within the tracker's
// window cancels the REPL.
func (a *Agent) watchInterrupts(ctx context.Context, cancel context.CancelFunc, tracker *interruptTracker) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.handleInterrupts(ctx, done, sigCh, cancel, tracker)
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
		wg.Wait()
	}
}

func (a *Agent) handleInterrupts(ctx context.Context, done <-chan struct{}, sigCh <-chan os.Signal, cancel context.CancelFunc, tracker *interruptTracker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-sigCh:
			if a.CancelRequest() {
				fmt.Fprintln(a.opts.Out, "\n(Current request cancelled.)")
				continue
			}
			if tracker.secondPress() {
				fmt.Fprintln(a.opts.Out, "\nReceived second Ctrl+C, exiting.")
				cancel()
				return
			}
			fmt.Fprintln(a.opts.Out, "\n(Press Ctrl+C again within 2s to exit)")
		}
	}
}

// handleLine processes one line of input and reports whether to exit.
func (a *Agent) handleLine(ctx context.Context, input string) bool {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, ":") {
		return a.handleCommand(trimmed)
	}

	logging.DevLog("dispatching prompt: %d chars", len(input))
	reply, err := a.Respond(ctx, input)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false
		}
		logging.ErrorLog("agent error: %v", err)
		fmt.Fprintf(a.opts.Out, "Error: %v\n", err)
		return false
	}
	if reply.Content != "" {
		a.printResponse(reply.Content)
	}
	return false
}

func (a *Agent) handleCommand(cmd string) bool {
	fields := strings.Fields(cmd)
	switch fields[0] {
	case ":quit", ":exit":
		return true
	case ":help":
		for _, s := range commandSuggestions {
			fmt.Fprintf(a.opts.Out, "  %-8s %s\n", s.Text, s.Description)
		}
	case ":tools":
		for _, name := range a.tools.Names() {
			fmt.Fprintf(a.opts.Out, "  %s\n", name)
		}
	case ":reset":
		a.Reset()
		fmt.Fprintln(a.opts.Out, "Conversation cleared.")
	case ":tokens":
		fmt.Fprintf(a.opts.Out, "%d tokens used this session\n", a.TotalTokens())
	default:
		fmt.Fprintf(a.opts.Out, "Unknown command %s. Type :help for the list.\n", fields[0])
	}
	return false
}

func trimLineEnding(s string) string {
	s = strings.TrimSuffix(s, "\r\n")
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s
}

func (a *Agent) printResponse(text string) {
	if a.render == nil || strings.TrimSpace(text) == "" {
		fmt.Fprintf(a.opts.Out, "%s\n", text)
		return
	}
	rendered, err := a.render.Render(text)
	if err != nil {
		logging.ErrorLog("markdown render failed: %v", err)
		fmt.Fprintf(a.opts.Out, "%s\n", text)
		return
	}
	fmt.Fprint(a.opts.Out, strings.TrimRight(rendered, "\n")+"\n")
}
