package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/fsnotify/fsnotify"

	"github.com/openmol/molscript/pkg/eval"
)

const (
	prompt       = "\033[32mmol>\033[0m "
	resultPrompt = "\033[31m=\033[0m "
)

// repl reads statements from the terminal. Ctrl-C while a delay is
// pending stops the script; on an empty line it exits.
func repl(sess *eval.Session, history string) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       history,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return err
	}
	defer l.Close()

	fmt.Println("molscript: type statements, \"check <script>\" to validate, Ctrl-D to exit.")
	for {
		line, err := l.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		} else if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "quit" || line == "exit":
			return nil
		case strings.HasPrefix(line, "check "):
			if err := sess.Check(strings.TrimPrefix(line, "check ")); err != nil {
				fmt.Println(err)
			} else {
				fmt.Println("ok")
			}
			continue
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		res := sess.Complete(ctx, line)
		stop()
		if res.Status == eval.Done && !res.Value.IsNil() {
			fmt.Print(resultPrompt)
			fmt.Println(res.Value.Escape())
		}
	}
}

// watchFile runs path, then runs it again each time it is written, until
// ctx is cancelled.
func watchFile(ctx context.Context, sess *eval.Session, path string, check bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer watcher.Close()
	// editors replace files, so watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	runFile(ctx, sess, path, check)

	name := filepath.Clean(path)
	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounce = time.After(100 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		case <-debounce:
			debounce = nil
			fmt.Fprintf(os.Stderr, "--- %s changed, running\n", path)
			runFile(ctx, sess, path, check)
		}
	}
}
