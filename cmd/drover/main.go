// Command drover is an autonomous coding agent for a single working
// directory: it plans with an LLM, executes tools under a security
// policy, and reports the final answer.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wconnell87/drover/internal/engine"
	"github.com/wconnell87/drover/internal/session"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "drover: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("drover", flag.ExitOnError)
	dir := fs.String("dir", "", "working directory (default: current directory)")
	task := fs.String("task", "", "run a single task and exit")
	provider := fs.String("provider", "", "LLM provider (anthropic, openai, deepseek, groq, gemini, ollama)")
	model := fs.String("model", "", "model name override")
	mode := fs.String("mode", "", "execution mode (interactive, restricted_autonomous, full_autonomous)")
	resume := fs.String("resume", "", "resume a saved session by ID")
	listSessions := fs.Bool("sessions", false, "list saved sessions for this directory and exit")
	deleteSession := fs.String("delete-session", "", "delete a saved session by ID and exit")
	verbose := fs.Bool("verbose", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *listSessions || *deleteSession != "" {
		return runSessionCommand(ctx, *dir, *listSessions, *deleteSession)
	}

	env, err := prepareRuntimeEnv(ctx, envOptions{
		Dir:      *dir,
		Provider: *provider,
		Model:    *model,
		Mode:     *mode,
		Resume:   *resume,
		Verbose:  *verbose,
	})
	if err != nil {
		return err
	}
	defer env.Close()

	slog.Info("agent ready",
		"dir", env.WorkDir,
		"mode", env.Settings.ExecutionMode,
		"session", env.Session.ID,
		"tools", env.Registry.Names())

	if *task != "" {
		return runTask(ctx, env, *task)
	}
	return runREPL(ctx, env)
}

// runTask executes one instruction and prints the answer.
func runTask(ctx context.Context, env *runtimeEnv, task string) error {
	answer, err := env.Agent.Execute(ctx, task)
	persistSession(ctx, env)
	if err != nil {
		return describeFailure(err)
	}
	fmt.Println(answer)
	return nil
}

// runREPL reads instructions from stdin until EOF.
func runREPL(ctx context.Context, env *runtimeEnv) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		answer, err := env.Agent.Execute(ctx, line)
		persistSession(ctx, env)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", describeFailure(err))
			continue
		}
		fmt.Println(answer)
		fmt.Println()
	}
	return scanner.Err()
}

// describeFailure keeps the loop's typed errors readable on the CLI.
func describeFailure(err error) error {
	var iterErr *engine.MaxIterationsError
	if errors.As(err, &iterErr) {
		return fmt.Errorf("stopped after %d turns without a final answer, raise max_iterations or simplify the task", iterErr.Limit)
	}
	var budgetErr *engine.TokenBudgetError
	if errors.As(err, &budgetErr) {
		if budgetErr.Partial != "" {
			return fmt.Errorf("token budget exhausted (%d of %d), partial answer:\n%s", budgetErr.Consumed, budgetErr.Budget, budgetErr.Partial)
		}
		return fmt.Errorf("token budget exhausted (%d of %d)", budgetErr.Consumed, budgetErr.Budget)
	}
	return err
}

// runSessionCommand handles -sessions and -delete-session without
// building an agent.
func runSessionCommand(ctx context.Context, dir string, list bool, deleteID string) error {
	workDir := dir
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}
	store, err := session.Open(sessionDBPath(workDir))
	if err != nil {
		return err
	}
	defer store.Close()

	if deleteID != "" {
		if err := store.Delete(ctx, deleteID); err != nil {
			return err
		}
		fmt.Printf("deleted session %s\n", deleteID)
		return nil
	}

	sessions, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no saved sessions")
		return nil
	}
	for _, sess := range sessions {
		fmt.Printf("%s  %-20s  %s  updated %s\n",
			sess.ID, sess.Title, sess.Model, sess.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
