// Package handlers maps calculator commands onto session and preset storage operations.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/artycalc/artycalc/internal/ballistics"
	"github.com/artycalc/artycalc/internal/correction"
	"github.com/artycalc/artycalc/internal/dispatcher"
	"github.com/artycalc/artycalc/internal/scene"
	"github.com/artycalc/artycalc/internal/session"
	"github.com/artycalc/artycalc/internal/storage"
	"github.com/artycalc/artycalc/internal/util"
	"github.com/artycalc/artycalc/pkg/core"
)

// Command names handled by the service.
const (
	CmdTargetAdd    = "target.add"
	CmdTargetDelete = "target.delete"
	CmdTargetSet    = "target.set"
	CmdRefAdd       = "ref.add"
	CmdRefDelete    = "ref.delete"
	CmdRefSet       = "ref.set"
	CmdGunAdd       = "gun.add"
	CmdGunDelete    = "gun.delete"
	CmdGunSet       = "gun.set"
	CmdWindSet      = "wind.set"
	CmdSpotterSet   = "spotter.set"
	CmdName         = "name"
	CmdUpdate       = "update"
	CmdSolve        = "solve"
	CmdCalibrate    = "calibrate"
	CmdGuns         = "guns"
	CmdPresetSave   = "preset.save"
	CmdPresetLoad   = "preset.load"
	CmdPresetList   = "preset.list"
	CmdPresetDelete = "preset.delete"

	cmdLogSolution    = "log.solution"
	cmdLogCalibration = "log.calibration"
)

var (
	// ErrMissingArgument is returned when a command lacks a required argument
	ErrMissingArgument = errors.New("missing argument")
	// ErrUnknownField is returned for key=value pairs naming no field
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidReference is returned for anchors that are not spotter, map or ref-point-k
	ErrInvalidReference = errors.New("invalid reference")
	// ErrNoStorage is returned by preset commands when no backend is configured
	ErrNoStorage = errors.New("preset storage not configured")
)

// FireLog receives fire-mission records. influx.Manager implements it.
type FireLog interface {
	LogSolution(ctx context.Context, preset string, g scene.Gun) error
	LogCalibration(ctx context.Context, preset string, gun int, model string, out correction.Output) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Session *session.Session
	Backend storage.Backend // optional
	FireLog FireLog         // optional
	Logger  *slog.Logger
}

// Service provides handler methods for calculator commands
type Service struct {
	deps       Dependencies
	dispatcher *dispatcher.Dispatcher
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// Register adds every command to the dispatcher. Fire-log writes are queued so a
// slow InfluxDB never holds up a solve.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	s.dispatcher = d

	d.Register(CmdTargetAdd, s.handleTargetAdd, dispatcher.Logged(), dispatcher.Usage(""))
	d.Register(CmdTargetDelete, s.handleTargetDelete, dispatcher.Logged(), dispatcher.Usage("<i>"))
	d.Register(CmdTargetSet, s.handleTargetSet, dispatcher.Logged(), dispatcher.Usage("<i> dist= angle="))
	d.Register(CmdRefAdd, s.handleRefAdd, dispatcher.Logged(), dispatcher.Usage(""))
	d.Register(CmdRefDelete, s.handleRefDelete, dispatcher.Logged(), dispatcher.Usage("<k>"))
	d.Register(CmdRefSet, s.handleRefSet, dispatcher.Logged(), dispatcher.Usage("<k> ref= dist= angle="))
	d.Register(CmdGunAdd, s.handleGunAdd, dispatcher.Logged(), dispatcher.Usage(""))
	d.Register(CmdGunDelete, s.handleGunDelete, dispatcher.Logged(), dispatcher.Usage("<i>"))
	d.Register(CmdGunSet, s.handleGunSet, dispatcher.Logged(), dispatcher.Usage("<i> model= target= ref= dist= angle= mapX= mapY= hitDist= hitAngle= correctionX= correctionY="))
	d.Register(CmdWindSet, s.handleWindSet, dispatcher.Logged(), dispatcher.Usage("level= angle="))
	d.Register(CmdSpotterSet, s.handleSpotterSet, dispatcher.Logged(), dispatcher.Usage("map= x= y="))
	d.Register(CmdName, s.handleName, dispatcher.Logged(), dispatcher.Usage("<text>"))
	d.Register(CmdUpdate, s.handleUpdate, dispatcher.Usage(""))
	d.Register(CmdSolve, s.handleSolve, dispatcher.Logged(), dispatcher.Usage(""))
	d.Register(CmdCalibrate, s.handleCalibrate, dispatcher.Logged(), dispatcher.Usage("<i>"))
	d.Register(CmdGuns, s.handleGuns, dispatcher.Usage(""))
	d.Register(CmdPresetSave, s.handlePresetSave, dispatcher.Logged(), dispatcher.Usage("[name]"))
	d.Register(CmdPresetLoad, s.handlePresetLoad, dispatcher.Logged(), dispatcher.Usage("<name>"))
	d.Register(CmdPresetList, s.handlePresetList, dispatcher.Usage(""))
	d.Register(CmdPresetDelete, s.handlePresetDelete, dispatcher.Logged(), dispatcher.Usage("<name>"))

	if s.deps.FireLog != nil {
		d.Register(cmdLogSolution, s.handleLogSolution, dispatcher.Buffered(256), dispatcher.Logged())
		d.Register(cmdLogCalibration, s.handleLogCalibration, dispatcher.Buffered(256), dispatcher.Logged())
	}
}

// index parses the 1-based index in args[0].
func index(e dispatcher.Event) (int, error) {
	if len(e.Args) == 0 {
		return 0, fmt.Errorf("%s: index: %w", e.Command, ErrMissingArgument)
	}
	return util.ParseIndex(e.Args[0])
}

// fields parses key=value arguments.
func fields(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := util.SplitKeyValue(a)
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", a)
		}
		out[k] = v
	}
	return out, nil
}

// setter validates a raw value and returns the write that stores it.
type setter func(string) (func(), error)

// assign applies key=value pairs through a table of setters. Keys and values are all
// checked before the first write, so a rejected command leaves the entity untouched.
func assign(kv map[string]string, setters map[string]setter) error {
	for k := range kv {
		if _, ok := setters[k]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, k)
		}
	}
	writes := make([]func(), 0, len(kv))
	for k, v := range kv {
		write, err := setters[k](v)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		writes = append(writes, write)
	}
	for _, write := range writes {
		write()
	}
	return nil
}

func text(dst *string) setter {
	return func(v string) (func(), error) {
		return func() { *dst = v }, nil
	}
}

func number(n *core.Number) setter {
	return func(v string) (func(), error) {
		parsed := core.ParseNumber(v)
		return func() { *n = parsed }, nil
	}
}

func targetIndex(dst *core.Index) setter {
	return func(v string) (func(), error) {
		t, err := util.ParseIndex(v)
		if err != nil {
			return nil, err
		}
		return func() { *dst = core.Index(t) }, nil
	}
}

func reference(ref *string, allowMap bool) setter {
	return func(v string) (func(), error) {
		switch {
		case v == core.RefSpotter, allowMap && v == core.RefMap:
		default:
			if _, ok := core.ParseRefPoint(v); !ok {
				return nil, fmt.Errorf("%w: %q", ErrInvalidReference, v)
			}
		}
		return func() { *ref = v }, nil
	}
}

func (s *Service) handleTargetAdd(e dispatcher.Event) (any, error) {
	var i int
	err := s.deps.Session.Update(func(snap *core.Snapshot) error {
		i = snap.AddTarget()
		return nil
	})
	return i, err
}

func (s *Service) handleTargetDelete(e dispatcher.Event) (any, error) {
	i, err := index(e)
	if err != nil {
		return nil, err
	}
	return nil, s.deps.Session.Update(func(snap *core.Snapshot) error {
		return snap.DeleteTarget(i)
	})
}

func (s *Service) handleTargetSet(e dispatcher.Event) (any, error) {
	i, err := index(e)
	if err != nil {
		return nil, err
	}
	kv, err := fields(e.Args[1:])
	if err != nil {
		return nil, err
	}
	return nil, s.deps.Session.Update(func(snap *core.Snapshot) error {
		t, err := snap.Target(i)
		if err != nil {
			return err
		}
		return assign(kv, map[string]setter{
			"dist":  number(&t.Dist),
			"angle": number(&t.Angle),
		})
	})
}

func (s *Service) handleRefAdd(e dispatcher.Event) (any, error) {
	var k int
	err := s.deps.Session.Update(func(snap *core.Snapshot) error {
		k = snap.AddReference()
		return nil
	})
	return k, err
}

func (s *Service) handleRefDelete(e dispatcher.Event) (any, error) {
	k, err := index(e)
	if err != nil {
		return nil, err
	}
	return nil, s.deps.Session.Update(func(snap *core.Snapshot) error {
		return snap.DeleteReference(k)
	})
}

func (s *Service) handleRefSet(e dispatcher.Event) (any, error) {
	k, err := index(e)
	if err != nil {
		return nil, err
	}
	kv, err := fields(e.Args[1:])
	if err != nil {
		return nil, err
	}
	return nil, s.deps.Session.Update(func(snap *core.Snapshot) error {
		r, err := snap.Reference(k)
		if err != nil {
			return err
		}
		return assign(kv, map[string]setter{
			"ref":   reference(&r.Ref, false),
			"dist":  number(&r.Dist),
			"angle": number(&r.Angle),
		})
	})
}

func (s *Service) handleGunAdd(e dispatcher.Event) (any, error) {
	var i int
	err := s.deps.Session.Update(func(snap *core.Snapshot) error {
		i = snap.AddGun()
		return nil
	})
	return i, err
}

func (s *Service) handleGunDelete(e dispatcher.Event) (any, error) {
	i, err := index(e)
	if err != nil {
		return nil, err
	}
	return nil, s.deps.Session.Update(func(snap *core.Snapshot) error {
		return snap.DeleteGun(i)
	})
}

func (s *Service) handleGunSet(e dispatcher.Event) (any, error) {
	i, err := index(e)
	if err != nil {
		return nil, err
	}
	kv, err := fields(e.Args[1:])
	if err != nil {
		return nil, err
	}
	return nil, s.deps.Session.Update(func(snap *core.Snapshot) error {
		g, err := snap.Gun(i)
		if err != nil {
			return err
		}
		return assign(kv, map[string]setter{
			"model": func(v string) (func(), error) {
				return func() {
					if !ballistics.Known(v) {
						s.deps.Logger.Warn("unknown gun model, using default spec", "gun", i, "model", v)
					}
					g.Model = v
				}, nil
			},
			"target":      targetIndex(&g.Target),
			"ref":         reference(&g.Ref, true),
			"dist":        number(&g.Dist),
			"angle":       number(&g.Angle),
			"mapX":        number(&g.RefMapPosX),
			"mapY":        number(&g.RefMapPosY),
			"hitDist":     number(&g.LastHitDist),
			"hitAngle":    number(&g.LastHitAzimAngle),
			"correctionX": number(&g.CorrectionX),
			"correctionY": number(&g.CorrectionY),
		})
	})
}

func (s *Service) handleWindSet(e dispatcher.Event) (any, error) {
	kv, err := fields(e.Args)
	if err != nil {
		return nil, err
	}
	return nil, s.deps.Session.Update(func(snap *core.Snapshot) error {
		return assign(kv, map[string]setter{
			"level": number(&snap.Wind.Level),
			"angle": number(&snap.Wind.Angle),
		})
	})
}

func (s *Service) handleSpotterSet(e dispatcher.Event) (any, error) {
	kv, err := fields(e.Args)
	if err != nil {
		return nil, err
	}
	return nil, s.deps.Session.Update(func(snap *core.Snapshot) error {
		return assign(kv, map[string]setter{
			"map": text(&snap.Spotter.MapIdent),
			"x": number(&snap.Spotter.MapPosX),
			"y": number(&snap.Spotter.MapPosY),
		})
	})
}

func (s *Service) handleName(e dispatcher.Event) (any, error) {
	name := strings.TrimSpace(strings.Join(e.Args, " "))
	return nil, s.deps.Session.Update(func(snap *core.Snapshot) error {
		snap.Name = name
		return nil
	})
}

// handleUpdate runs any pending recompute and returns the current scene.
func (s *Service) handleUpdate(e dispatcher.Event) (any, error) {
	s.deps.Session.Flush()
	return s.deps.Session.Scene(), nil
}

// handleSolve returns one firing instruction per gun and records them in the fire log.
func (s *Service) handleSolve(e dispatcher.Event) (any, error) {
	s.deps.Session.Flush()
	sc := s.deps.Session.Scene()

	lines := make([]string, len(sc.Guns))
	for i, g := range sc.Guns {
		lines[i] = g.Line()
		s.queue(cmdLogSolution, strconv.Itoa(g.Index))
	}
	if !sc.Valid {
		lines = append(lines, "scene incomplete: some inputs are missing or invalid")
	}
	return lines, nil
}

func (s *Service) handleCalibrate(e dispatcher.Event) (any, error) {
	i, err := index(e)
	if err != nil {
		return nil, err
	}
	out, changed, err := s.deps.Session.Calibrate(i)
	if err != nil {
		return nil, err
	}
	if changed {
		s.queue(cmdLogCalibration, strconv.Itoa(i),
			strconv.FormatFloat(out.CorrectionX, 'f', -1, 64),
			strconv.FormatFloat(out.CorrectionY, 'f', -1, 64),
			string(out.Verdict))
	}
	return out, nil
}

func (s *Service) handleGuns(e dispatcher.Event) (any, error) {
	return ballistics.Models(), nil
}

func (s *Service) backend() (storage.Backend, error) {
	if s.deps.Backend == nil {
		return nil, ErrNoStorage
	}
	return s.deps.Backend, nil
}

// handlePresetSave stores the session snapshot, optionally renaming it first.
func (s *Service) handlePresetSave(e dispatcher.Event) (any, error) {
	b, err := s.backend()
	if err != nil {
		return nil, err
	}
	if len(e.Args) > 0 {
		if _, err := s.handleName(e); err != nil {
			return nil, err
		}
	}
	snap := s.deps.Session.Snapshot()
	if err := b.Save(context.Background(), snap); err != nil {
		return nil, err
	}
	s.deps.Logger.Info("preset saved", "name", snap.Name)
	return snap.Name, nil
}

func (s *Service) handlePresetLoad(e dispatcher.Event) (any, error) {
	b, err := s.backend()
	if err != nil {
		return nil, err
	}
	if len(e.Args) == 0 {
		return nil, fmt.Errorf("%s: name: %w", e.Command, ErrMissingArgument)
	}
	p, err := b.Load(context.Background(), strings.Join(e.Args, " "))
	if err != nil {
		return nil, err
	}
	s.deps.Session.Load(p)
	return p.Name, nil
}

func (s *Service) handlePresetList(e dispatcher.Event) (any, error) {
	b, err := s.backend()
	if err != nil {
		return nil, err
	}
	return b.List(context.Background())
}

func (s *Service) handlePresetDelete(e dispatcher.Event) (any, error) {
	b, err := s.backend()
	if err != nil {
		return nil, err
	}
	if len(e.Args) == 0 {
		return nil, fmt.Errorf("%s: name: %w", e.Command, ErrMissingArgument)
	}
	return nil, b.Delete(context.Background(), strings.Join(e.Args, " "))
}

// queue hands a fire-log record to its buffered handler, if one is registered.
func (s *Service) queue(command string, args ...string) {
	if s.dispatcher == nil || !s.dispatcher.HasHandler(command) {
		return
	}
	if _, err := s.dispatcher.Dispatch(dispatcher.Event{Command: command, Args: args}); err != nil {
		s.deps.Logger.Warn("fire log record dropped", "command", command, "error", err)
	}
}

func (s *Service) handleLogSolution(e dispatcher.Event) (any, error) {
	i, err := index(e)
	if err != nil {
		return nil, err
	}
	sc := s.deps.Session.Scene()
	if i > len(sc.Guns) {
		return nil, fmt.Errorf("gun %d: %w", i, core.ErrIndexOutOfRange)
	}
	preset := s.deps.Session.Snapshot().Name
	return nil, s.deps.FireLog.LogSolution(context.Background(), preset, sc.Guns[i-1])
}

func (s *Service) handleLogCalibration(e dispatcher.Event) (any, error) {
	if len(e.Args) < 4 {
		return nil, fmt.Errorf("%s: %w", e.Command, ErrMissingArgument)
	}
	i, err := util.ParseIndex(e.Args[0])
	if err != nil {
		return nil, err
	}
	out := correction.Output{Verdict: correction.Verdict(e.Args[3])}
	out.CorrectionX, _ = strconv.ParseFloat(e.Args[1], 64)
	out.CorrectionY, _ = strconv.ParseFloat(e.Args[2], 64)

	snap := s.deps.Session.Snapshot()
	model := ballistics.DefaultModel
	if g, err := snap.Gun(i); err == nil {
		model = ballistics.Lookup(g.Model).Model
	}
	return nil, s.deps.FireLog.LogCalibration(context.Background(), snap.Name, i, model, out)
}
