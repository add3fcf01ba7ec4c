package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bugx/internal/agent"
	"bugx/internal/config"
	"bugx/internal/llm"
	"bugx/internal/logging"
	"bugx/internal/prompts"
	"bugx/internal/search"
	"bugx/internal/tooling"
)

type rootOptions struct {
	configPath string
	sandbox    string
	provider   string
	model      string
	prompt     string
	version    bool
}

// session is everything a command needs once configuration is loaded.
type session struct {
	cfg    config.Config
	root   string
	logger *log.Logger
	client llm.Client
	tools  *tooling.Registry

	closers []io.Closer
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "bugx",
		Short:         "A coding agent confined to one working directory",
		Long:          "BugX talks to a language model and lets it read, write and run code inside a single sandboxed working directory.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.version {
				fmt.Fprintf(cmd.OutOrStdout(), "BugX version %s\n", Version)
				return nil
			}
			return runAgent(cmd, opts)
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config.yaml (default ~/.bugx/config.yaml)")
	flags.StringVarP(&opts.sandbox, "sandbox", "s", "", "override the working directory the agent is confined to")
	flags.StringVar(&opts.provider, "provider", "", "override the provider (gemini, openrouter, openai, mock)")
	flags.StringVar(&opts.model, "model", "", "override the model")
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "execute a single prompt and exit")
	cmd.Flags().BoolVar(&opts.version, "version", false, "print version and exit")

	cmd.AddCommand(
		newPlanCmd(opts),
		newToolsCmd(opts),
		newRunToolCmd(opts),
		newInitCmd(),
	)
	return cmd
}

// open loads configuration, sets up logging and builds the tool registry.
// A model client is built only when withClient is set.
func open(ctx context.Context, opts *rootOptions, withClient bool) (*session, error) {
	path := opts.configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.OverrideWorkspaceRoot(opts.sandbox)
	cfg.OverrideProvider(opts.provider)
	if m := strings.TrimSpace(opts.model); m != "" {
		cfg.Model = m
	}

	root, err := cfg.WorkspaceAbs()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	cwd, _ := os.Getwd()
	if err := config.LoadEnv(cwd, root); err != nil {
		return nil, err
	}

	logger, closer, err := logging.Setup(cfg.LogPath)
	if err != nil {
		return nil, fmt.Errorf("set up logging: %w", err)
	}
	s := &session{cfg: cfg, root: root, logger: logger, closers: []io.Closer{closer}}
	logger.Printf("workspace %s, provider %s", root, cfg.Provider)

	prompts.SetMetadata(buildEnvironmentMetadata(root))

	toolOpts := tooling.Options{
		Root:             root,
		MaxReadChars:     cfg.ReadMaxChars,
		Limits:           cfg.Limits(),
		Interpreter:      cfg.PythonInterpreter,
		Search:           search.NewDuckDuckGo("", cfg.RequestTimeout()),
		SearchMaxResults: cfg.SearchMaxResults,
	}
	if withClient {
		client, err := buildClient(ctx, cfg, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		if c, ok := client.(io.Closer); ok {
			s.closers = append(s.closers, c)
		}
		s.client = client
		toolOpts.Client = client
		toolOpts.Model = cfg.ModelFor(cfg.Provider)
		toolOpts.Temperature = cfg.Temperature
	}
	s.tools, err = tooling.New(toolOpts)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("build tools: %w", err)
	}
	return s, nil
}

func runAgent(cmd *cobra.Command, opts *rootOptions) error {
	ctx := cmd.Context()
	s, err := open(ctx, opts, true)
	if err != nil {
		return err
	}
	defer s.Close()

	ag := agent.New(s.client, s.tools, agent.Options{
		Model:        s.cfg.ModelFor(s.cfg.Provider),
		Temperature:  s.cfg.Temperature,
		MaxSteps:     s.cfg.MaxSteps,
		SystemPrompt: s.cfg.SystemPrompt,
		Workspace:    s.root,
		HistoryPath:  s.cfg.HistoryPath,
		Markdown:     true,
		In:           cmd.InOrStdin(),
		Out:          cmd.OutOrStdout(),
		Logger:       s.logger,
	})
	if p := strings.TrimSpace(opts.prompt); p != "" {
		ctx, stop := interruptible(ctx)
		defer stop()
		return ag.RunOneShot(ctx, p)
	}
	return ag.Run(ctx)
}

// interruptible cancels ctx on Ctrl+C, which kills any tool process through
// its context. The REPL handles Ctrl+C itself and does not use this.
func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}

func newToolsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			out := cmd.OutOrStdout()
			defs := s.tools.Definitions()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(defs)
			}
			for _, def := range defs {
				fmt.Fprintf(out, "%-16s %s\n", def.Function.Name, def.Function.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print full definitions with parameter schemas")
	return cmd
}

func newRunToolCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run-tool <name> [json-args]",
		Short: "Run one tool directly, without a model",
		Example: `  bugx run-tool scan_directory
  bugx run-tool read_file '{"path":"main.py"}'
  bugx run-tool run_tests`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := interruptible(cmd.Context())
			defer stop()
			s, err := open(ctx, opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			raw := ""
			if len(args) == 2 {
				raw = args[1]
			}
			out := s.tools.Dispatch(ctx, args[0], raw)
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(out, "\n"))
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.EnsureDefaultConfig(provider)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config at %s\n", filepath.Clean(path))
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", config.ProviderGemini, "provider to configure")
	return cmd
}
