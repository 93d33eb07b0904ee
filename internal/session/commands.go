package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"archops-sim/internal/catalog"
	"archops-sim/internal/sim"
)

// ErrUsage is wrapped by errors for malformed command lines.
var ErrUsage = errors.New("usage")

// Command is one parsed command line.
type Command struct {
	Action string
	Args   []string
}

// ParseCommand splits a line like "link 1 4" into its action and arguments.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty command", ErrUsage)
	}
	return Command{Action: strings.ToLower(fields[0]), Args: fields[1:]}, nil
}

func (c Command) String() string {
	return strings.TrimSpace(c.Action + " " + strings.Join(c.Args, " "))
}

func (c Command) intArg(i int) (int, error) {
	if i >= len(c.Args) {
		return 0, fmt.Errorf("%w: %s needs %d argument(s)", ErrUsage, c.Action, i+1)
	}
	n, err := strconv.Atoi(c.Args[i])
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q is not a number", ErrUsage, c.Action, c.Args[i])
	}
	return n, nil
}

func (c Command) strArg(i int) (string, error) {
	if i >= len(c.Args) {
		return "", fmt.Errorf("%w: %s needs %d argument(s)", ErrUsage, c.Action, i+1)
	}
	return c.Args[i], nil
}

// apply runs an engine command against s. Host-level actions (pause,
// resume, reset) are handled by the session before this is reached.
func apply(s *sim.Simulator, c Command) (sim.Result, error) {
	switch c.Action {
	case "place":
		name, err := c.strArg(0)
		if err != nil {
			return sim.Result{}, err
		}
		k, err := catalog.Parse(name)
		if err != nil {
			return sim.Result{}, fmt.Errorf("%w: %v", ErrUsage, err)
		}
		pos := nextPosition(s)
		if len(c.Args) >= 3 {
			x, errX := strconv.ParseFloat(c.Args[1], 64)
			y, errY := strconv.ParseFloat(c.Args[2], 64)
			if errX != nil || errY != nil {
				return sim.Result{}, fmt.Errorf("%w: place KIND [X Y]", ErrUsage)
			}
			pos = sim.Position{X: x, Y: y}
		}
		_, r := s.Place(k, pos)
		return r, nil
	case "upgrade", "repair", "delete", "select", "fix", "defer":
		id, err := c.intArg(0)
		if err != nil {
			return sim.Result{}, err
		}
		switch c.Action {
		case "upgrade":
			return s.Upgrade(id), nil
		case "repair":
			return s.Repair(id), nil
		case "delete":
			return s.Delete(id), nil
		case "select":
			return s.Select(id), nil
		case "fix":
			return s.FixTicket(id), nil
		}
		return s.DeferTicket(id), nil
	case "link", "unlink":
		from, err := c.intArg(0)
		if err != nil {
			return sim.Result{}, err
		}
		to, err := c.intArg(1)
		if err != nil {
			return sim.Result{}, err
		}
		if c.Action == "link" {
			return s.Link(from, to), nil
		}
		return s.Unlink(from, to), nil
	case "refactor":
		return applyRefactor(s, c)
	case "buy":
		name, err := c.strArg(0)
		if err != nil {
			return sim.Result{}, err
		}
		it, ok := sim.ParseShopItem(name)
		if !ok {
			return sim.Result{}, fmt.Errorf("%w: unknown shop item %q", ErrUsage, name)
		}
		return s.Buy(it), nil
	case "incident":
		name, err := c.strArg(0)
		if err != nil {
			return sim.Result{}, err
		}
		return s.TriggerIncident(sim.IncidentKind(strings.ToUpper(name))), nil
	}
	return sim.Result{}, fmt.Errorf("%w: unknown command %q", ErrUsage, c.Action)
}

// applyRefactor handles "refactor ID|next ACTION|auto [FROM->TO]". "next"
// picks the oldest debt ticket and "auto" the first roadmap suggestion.
func applyRefactor(s *sim.Simulator, c Command) (sim.Result, error) {
	idArg, err := c.strArg(0)
	if err != nil {
		return sim.Result{}, err
	}
	var id int
	if strings.EqualFold(idArg, "next") {
		id = s.FirstArchitectureDebtTicketID()
	} else if id, err = c.intArg(0); err != nil {
		return sim.Result{}, err
	}

	actionArg := "auto"
	if len(c.Args) > 1 {
		actionArg = c.Args[1]
	}
	target := ""
	if len(c.Args) > 2 {
		target = c.Args[2]
	}
	var action sim.RefactorAction
	if strings.EqualFold(actionArg, "auto") {
		steps := s.RefactorRoadmap()
		if len(steps) == 0 {
			action = sim.RefactorIntroduceBoundary
		} else {
			action = steps[0].Action
			if target == "" {
				target = steps[0].TargetKey
			}
		}
	} else {
		a, ok := sim.ParseRefactorAction(actionArg)
		if !ok {
			return sim.Result{}, fmt.Errorf("%w: unknown refactor action %q", ErrUsage, actionArg)
		}
		action = a
	}
	return s.ApplyRefactor(id, action, target), nil
}

// nextPosition lays placed components out on a grid below the starter graph.
func nextPosition(s *sim.Simulator) sim.Position {
	n := len(s.Components())
	return sim.Position{X: float64(80 + 110*(n%10)), Y: float64(80 + 90*(n/10))}
}

func describe(c Command, r sim.Result) string {
	if r.OK {
		return "ok: " + c.String()
	}
	return "rejected: " + c.String() + ": " + r.Reason
}
