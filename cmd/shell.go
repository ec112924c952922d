package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"mec/internal/blob"
	"mec/internal/command"
	"mec/internal/config"
	"mec/internal/factory"
	"mec/internal/suite"
	"mec/internal/testing"
	"mec/internal/tobject"
	"mec/pkg/logging"
	pkgstrings "mec/pkg/strings"
)

// errQuit ends the shell loop.
var errQuit = errors.New("quit")

const shellHelp = `Commands are typed as "<verb> <parameters...>", for example:
  openw mem:buf out       plug a consumer on a memory buffer as outlet "out"
  writeln out hello       write a line to "out"
  close out               close and unplug "out"
  open mem:buf in         plug a producer on the buffer as outlet "in"
  readall in              read everything from "in"
A line starting with "{" is decoded as a serialized command.

Shell commands:
  :help                   show this text
  :env                    print the environment
  :outlets                list registered outlets
  :list                   list the commands recorded so far
  :reset                  forget recorded commands
  :save <name>            save recorded commands as a one-case suite
  :load <name|path>       run a suite against this session
  :quit                   leave the shell (also Ctrl+D)
`

func newShellCmd() *cobra.Command {
	var plugins []string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively",
		Long: `Shell reads commands line by line, builds them through the same factories
suite files use and runs them against one persistent context, so outlets
and environment survive between lines. Successful commands are recorded and
can be saved as a suite.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := newFactoryRegistry(append(append([]string(nil), appConfig.Plugins...), plugins...))
			if err != nil {
				return err
			}
			defer registry.Close()

			transports := newTransports(appConfig)
			defer transports.Close()

			env, err := config.LoadEnvFiles(appConfig.EnvFiles...)
			if err != nil {
				return err
			}

			sh := newShell(registry, config.NewStorageWithPath(configPath), cmd.OutOrStdout(),
				tobject.WithTransports(transports), tobject.WithEnvironment(env))
			return sh.loop()
		},
	}
	cmd.Flags().StringArrayVar(&plugins, "plugin", nil, "Load a factory plugin (repeatable)")
	return cmd
}

type shell struct {
	registry *factory.Registry
	storage  *config.Storage
	ctx      *tobject.RunContext
	out      io.Writer
	recorded []tobject.TObject
}

func newShell(registry *factory.Registry, storage *config.Storage, out io.Writer, opts ...tobject.ContextOption) *shell {
	opts = append([]tobject.ContextOption{tobject.WithOutput(out)}, opts...)
	return &shell{
		registry: registry,
		storage:  storage,
		ctx:      tobject.NewRunContext(opts...),
		out:      out,
	}
}

func (s *shell) loop() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "mec> ",
		HistoryFile:       filepath.Join(os.TempDir(), ".mec_shell_history"),
		AutoComplete:      s.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdout:            s.out,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(s.out, `Type ":help" for help.`)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		if err := s.exec(line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(s.out, "❌ %v\n", err)
		}
	}
}

func (s *shell) completer() *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, v := range command.Verbs() {
		items = append(items, readline.PcItem(v))
	}
	for _, m := range []string{":help", ":env", ":outlets", ":list", ":reset", ":save", ":load", ":quit"} {
		items = append(items, readline.PcItem(m))
	}
	return readline.NewPrefixCompleter(items...)
}

// exec runs one input line.
func (s *shell) exec(line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil
	case line == "exit" || line == "quit":
		return errQuit
	case strings.HasPrefix(line, ":"):
		return s.meta(strings.Fields(line[1:]))
	}

	obj, err := s.construct(line)
	if err != nil {
		return err
	}
	r := obj.Run(s.ctx)
	fmt.Fprintf(s.out, "%s %s\n", resultMark(r.Truthy()), r)
	if !r.IsFatal() {
		s.recorded = append(s.recorded, obj)
	}
	return nil
}

// construct builds a command from a serialized object or from words.
func (s *shell) construct(line string) (tobject.TObject, error) {
	var data *blob.Blob
	var name string

	if strings.HasPrefix(line, "{") {
		data = blob.FromString(line)
		st, err := blob.ParseStructured(data)
		if err != nil {
			return nil, err
		}
		name, _ = st.GetString("name")
	} else {
		words, err := splitWords(line)
		if err != nil {
			return nil, err
		}
		name = words[0]
		st := blob.NewStructured()
		st.SetString("name", name)
		st.SetStrings("parameters", words[1:])
		if data, err = st.Blob(); err != nil {
			return nil, err
		}
	}
	return s.registry.Construct(factory.CategoryCommand, name, data)
}

func (s *shell) meta(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("empty shell command")
	}
	switch args[0] {
	case "help":
		fmt.Fprint(s.out, shellHelp)
	case "quit", "exit":
		return errQuit
	case "env":
		keys := make([]string, 0, len(s.ctx.Environment))
		for k := range s.ctx.Environment {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(s.out, "%s=%s\n", k, s.ctx.Environment[k])
		}
	case "outlets":
		for _, n := range s.ctx.Outlets.Names() {
			fmt.Fprintln(s.out, n)
		}
	case "list":
		for i, obj := range s.recorded {
			fmt.Fprintf(s.out, "%3d  %s\n", i+1, pkgstrings.OneLine(describe(obj), 100))
		}
	case "reset":
		s.recorded = nil
	case "save":
		if len(args) != 2 {
			return fmt.Errorf("usage: :save <name>")
		}
		return s.save(args[1])
	case "load":
		if len(args) != 2 {
			return fmt.Errorf("usage: :load <name|path>")
		}
		return s.load(args[1])
	default:
		return fmt.Errorf("unknown shell command :%s", args[0])
	}
	return nil
}

// save stores the recorded commands as a suite holding one case.
func (s *shell) save(name string) error {
	if len(s.recorded) == 0 {
		return fmt.Errorf("nothing recorded")
	}
	ts := suite.NewTestSuite(name, suite.NewTestCase(name, s.recorded...))
	st, err := factory.Serialize(ts)
	if err != nil {
		return err
	}
	b, err := st.Blob()
	if err != nil {
		return err
	}
	y, err := b.ToYAML()
	if err != nil {
		return err
	}
	if err := s.storage.Save(config.SuitesKind, name, y); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved %d commands as suite %s\n", len(s.recorded), name)
	return nil
}

// load runs a saved suite or suite file with this session's transports and
// environment.
func (s *shell) load(ref string) error {
	path := ref
	if _, err := os.Stat(ref); err != nil {
		if path, err = s.storage.Path(config.SuitesKind, ref); err != nil {
			return err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	b, err := testing.Parse(path, data)
	if err != nil {
		return err
	}
	ts, err := suite.Decode(s.registry, b)
	if err != nil {
		return err
	}

	if r := ts.Open(); !r.Truthy() {
		return fmt.Errorf("suite %s could not be opened", ts.Name())
	}
	r := ts.Execute(s.ctx, false)
	ts.Close()

	st := ts.Stats()
	fmt.Fprintf(s.out, "%s %s: %d passed, %d failed, %d skipped\n", resultMark(r.Truthy()), ts.Name(), st.Passed, st.Failed, st.Skipped)
	logging.Debug("CLI", "Shell ran suite %s from %s", ts.Name(), path)
	return nil
}

func resultMark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

// splitWords splits a line with shell quoting rules. A '#' starts a comment.
func splitWords(line string) ([]string, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return words, nil
}
