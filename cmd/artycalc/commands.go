package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/artycalc/artycalc/internal/api"
	"github.com/artycalc/artycalc/internal/ballistics"
	"github.com/artycalc/artycalc/internal/scene"
	"github.com/artycalc/artycalc/internal/util"
	"github.com/artycalc/artycalc/pkg/core"

	"github.com/atotto/clipboard"
	"github.com/spf13/pflag"
)

// readPresetFile loads a preset JSON file into a fresh snapshot.
func readPresetFile(path string) (*core.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset: %w", err)
	}
	var p core.Snapshot
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode preset %s: %w", path, err)
	}
	snap := core.NewSnapshot()
	snap.Import(p)
	return snap, nil
}

// writePresetFile writes the snapshot as indented JSON through a temp file.
func writePresetFile(path string, s core.Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preset: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".preset-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write preset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func printScene(w io.Writer, sc scene.Scene) {
	for _, g := range sc.Guns {
		fmt.Fprintln(w, g.Line())
		// spotter, references, gun
		if refs := len(g.Chain) - 2; refs > 0 {
			fmt.Fprintf(w, "  laid via %d reference(s), %.1fm of legs\n", refs, g.Chain.Length())
		}
	}
	if !sc.Valid {
		for _, p := range sc.Problems {
			fmt.Fprintf(w, "  ! %s\n", p.Error())
		}
	}
}

func runSolve(ctx context.Context, args []string, _ io.Reader, stdout io.Writer) error {
	flags := pflag.NewFlagSet("solve", pflag.ContinueOnError)
	copyFirst := flags.Bool("copy", false, "copy the first gun's solution to the clipboard")
	remote := flags.String("remote", "", "solve on a running artycalc server")
	if err := flags.Parse(args); err != nil || flags.NArg() != 1 {
		return errUsage
	}

	snap, err := readPresetFile(flags.Arg(0))
	if err != nil {
		return err
	}

	var sc scene.Scene
	if *remote != "" {
		client := api.NewClient(*remote)
		if err := client.Healthcheck(ctx); err != nil {
			return err
		}
		resp, err := client.Solve(ctx, *snap)
		if err != nil {
			return err
		}
		sc = resp.Scene
	} else {
		sc = scene.Recompute(snap)
	}
	printScene(stdout, sc)

	if fl := initFireLog(ctx); fl != nil {
		for _, g := range sc.Guns {
			if err := fl.LogSolution(ctx, snap.Name, g); err != nil {
				Logger.Warn("Failed to log firing solution", "gun", g.Index, "error", err)
			}
		}
		if err := fl.Close(); err != nil {
			Logger.Warn("Failed to close fire-mission log", "error", err)
		}
	}

	if *copyFirst && len(sc.Guns) > 0 {
		if err := clipboard.WriteAll(sc.Guns[0].Solution.Text); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		Logger.Debug("Copied solution to clipboard", "text", sc.Guns[0].Solution.Text)
	}
	return nil
}

func runCalibrate(ctx context.Context, args []string, _ io.Reader, stdout io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}
	snap, err := readPresetFile(args[0])
	if err != nil {
		return err
	}
	gun, err := util.ParseIndex(args[1])
	if err != nil {
		return err
	}

	out, changed, err := scene.Calibrate(snap, gun)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Gun %d: %s, correction x=%.2f y=%.2f\n", gun, out.Verdict, out.CorrectionX, out.CorrectionY)
	if !changed {
		return nil
	}

	if err := writePresetFile(args[0], *snap); err != nil {
		return err
	}
	if fl := initFireLog(ctx); fl != nil {
		g, _ := snap.Gun(gun)
		if err := fl.LogCalibration(ctx, snap.Name, gun, ballistics.Lookup(g.Model).Model, out); err != nil {
			Logger.Warn("Failed to log calibration", "gun", gun, "error", err)
		}
		if err := fl.Close(); err != nil {
			Logger.Warn("Failed to close fire-mission log", "error", err)
		}
	}
	printScene(stdout, scene.Recompute(snap))
	return nil
}

func printGuns(w io.Writer) {
	fmt.Fprintf(w, "%-8s %10s %10s %10s %10s\n", "MODEL", "RANGE MIN", "RANGE MAX", "SPREAD", "WIND")
	for _, s := range ballistics.Models() {
		fmt.Fprintf(w, "%-8s %9.0fm %9.0fm %4.1f-%4.1fm %4.0f-%3.0fm\n",
			s.Model, s.RangeMin, s.RangeMax, s.SpreadMin, s.SpreadMax, s.WindDisMin, s.WindDisMax)
	}
}

func runGuns(_ context.Context, args []string, _ io.Reader, stdout io.Writer) error {
	if len(args) != 0 {
		return errUsage
	}
	printGuns(stdout)
	return nil
}

func runPreset(ctx context.Context, args []string, _ io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	backend, err := initStorage()
	if err != nil {
		return err
	}
	defer backend.Close()

	switch args[0] {
	case "list":
		list, err := backend.List(ctx)
		if err != nil {
			return err
		}
		for _, p := range list {
			fmt.Fprintf(stdout, "%-24s targets=%d refs=%d guns=%d updated=%s\n",
				p.Name, p.Targets, p.References, p.Guns, p.UpdatedAt.Format("2006-01-02 15:04"))
		}
	case "save":
		if len(args) != 2 {
			return errUsage
		}
		snap, err := readPresetFile(args[1])
		if err != nil {
			return err
		}
		if err := backend.Save(ctx, *snap); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "saved %q\n", snap.Name)
	case "load":
		if len(args) != 3 {
			return errUsage
		}
		p, err := backend.Load(ctx, args[1])
		if err != nil {
			return err
		}
		if err := writePresetFile(args[2], p); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %q to %s\n", p.Name, args[2])
	case "delete":
		if len(args) != 2 {
			return errUsage
		}
		if err := backend.Delete(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted %q\n", args[1])
	default:
		return errUsage
	}
	return nil
}
