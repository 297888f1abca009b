package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/artycalc/artycalc/internal/ballistics"
	"github.com/artycalc/artycalc/internal/config"
	"github.com/artycalc/artycalc/internal/dispatcher"
	"github.com/artycalc/artycalc/internal/handlers"
	"github.com/artycalc/artycalc/internal/logging"
	"github.com/artycalc/artycalc/internal/scene"
	"github.com/artycalc/artycalc/internal/session"
	"github.com/artycalc/artycalc/internal/storage"
	"github.com/artycalc/artycalc/internal/util"
)

// runRepl reads commands line by line and dispatches them against one session.
// Recomputed scenes are printed as soon as edits settle.
func runRepl(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) != 0 {
		return errUsage
	}

	sess, err := session.New(config.GetRecomputeDelay(), SlogManager.Component("session"))
	if err != nil {
		return err
	}
	defer sess.Close()
	contextAttrs = sess.LogAttrs
	defer func() { contextAttrs = nil }()

	var outMu sync.Mutex
	sess.OnScene(func(sc scene.Scene) {
		outMu.Lock()
		defer outMu.Unlock()
		printScene(stdout, sc)
	})

	d, err := dispatcher.New(logging.NewDispatcherLogger(SlogManager.Component("dispatcher")))
	if err != nil {
		return err
	}

	deps := handlers.Dependencies{
		Session: sess,
		Logger:  SlogManager.Component("handlers"),
	}
	if b, err := initStorage(); err != nil {
		Logger.Warn("Preset storage unavailable", "error", err)
	} else {
		deps.Backend = b
		defer b.Close()
	}
	if fl := initFireLog(ctx); fl != nil {
		deps.FireLog = fl
		defer fl.Close()
	}
	handlers.NewService(deps).Register(d)
	// drain queued fire-log records before the log is closed
	defer d.Close()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			fields := util.SplitArgs(line)
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "quit", "exit":
				return nil
			case "help":
				fmt.Fprintln(stdout, strings.Join(append(d.Help(), "help", "quit"), "\n"))
				continue
			}

			res, err := d.Dispatch(dispatcher.Event{Command: fields[0], Args: fields[1:]})
			outMu.Lock()
			if err != nil {
				fmt.Fprintf(stdout, "error: %v\n", err)
			} else {
				printResult(stdout, res)
			}
			outMu.Unlock()
		}
	}
}

func printResult(w io.Writer, res any) {
	switch v := res.(type) {
	case nil:
	case []string:
		fmt.Fprintln(w, strings.Join(v, "\n"))
	case scene.Scene:
		printScene(w, v)
	case []ballistics.GunSpec:
		printGuns(w)
	case []storage.PresetInfo:
		for _, p := range v {
			fmt.Fprintf(w, "%-24s targets=%d refs=%d guns=%d\n", p.Name, p.Targets, p.References, p.Guns)
		}
	case string, int:
		fmt.Fprintln(w, v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			fmt.Fprintln(w, v)
			return
		}
		fmt.Fprintln(w, string(data))
	}
}
