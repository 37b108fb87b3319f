package engine

import (
	"github.com/abdullathedruid/ime-tool/internal/mode"
	"github.com/abdullathedruid/ime-tool/internal/slot"
)

// State is everything a decision depends on. Empty strings mean absent.
type State struct {
	Current string
	A       string
	B       string
}

// Slot returns the stored value for a slot name.
func (s State) Slot(name string) string {
	switch name {
	case slot.A:
		return s.A
	case slot.B:
		return s.B
	default:
		return ""
	}
}

// Write is a pending slot update.
type Write struct {
	Slot string
	ID   string
}

// Plan is the outcome of a decision: slot writes first, then an optional
// switch. An empty Target means stay on the current method.
type Plan struct {
	Writes []Write
	Target string
	Reason string
}

// PlanSave records the current method in m's slot.
func PlanSave(m mode.Mode, s State) Plan {
	p := Plan{Reason: "save " + m.String()}
	if s.Current != "" {
		p.Writes = append(p.Writes, Write{Slot: m.Slot(), ID: s.Current})
	}
	return p
}

// PlanEnter handles a switch into mode m: the current method is remembered
// for the mode being left, then m's remembered method is restored. When m has
// nothing remembered, Normal falls back to fallback and Insert stays put.
func PlanEnter(m mode.Mode, s State, fallback string) Plan {
	p := Plan{Reason: "enter " + m.String()}
	if s.Current != "" {
		p.Writes = append(p.Writes, Write{Slot: m.Other().Slot(), ID: s.Current})
	}
	switch target := s.Slot(m.Slot()); {
	case target != "":
		p.Target = target
	case m.UsesFallback() && fallback != "":
		p.Target = fallback
		p.Reason += " (fallback)"
	default:
		p.Reason += " (nothing saved, staying)"
	}
	return p
}

// PlanToggle flips between slot A and slot B based only on the live state:
//
//	current == A -> B
//	current == B -> A
//	otherwise    -> save current to B, then A
//
// A missing target means stay on the current method.
func PlanToggle(s State) Plan {
	var p Plan
	switch {
	case s.Current != "" && s.Current == s.A:
		p.Reason = "toggle A -> B"
		p.Target = s.B
	case s.Current != "" && s.Current == s.B:
		p.Reason = "toggle B -> A"
		p.Target = s.A
	default:
		p.Reason = "toggle other -> A"
		if s.Current != "" {
			p.Writes = append(p.Writes, Write{Slot: slot.B, ID: s.Current})
		}
		p.Target = s.A
	}
	if p.Target == "" {
		p.Reason += " (target slot empty, staying)"
	}
	return p
}

// PlanSelect switches to a literal identifier without touching slots.
func PlanSelect(id string) Plan {
	return Plan{Target: id, Reason: "select"}
}
