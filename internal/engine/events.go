package engine

import (
	"github.com/samber/lo"
	"golang.org/x/net/html"

	"github.com/Veraticus/fxlens/internal/classify"
	"github.com/Veraticus/fxlens/internal/model"
	"github.com/Veraticus/fxlens/internal/page"
)

// EventKind identifies a signal delivered to the controller.
type EventKind int

const (
	// EventLoaded signals that the document finished loading.
	EventLoaded EventKind = iota
	// EventTimer is a timed re-pass for late-rendered content.
	EventTimer
	// EventPreferences carries changed preferences.
	EventPreferences
	// EventRates carries a refreshed rate table, or asks for one when Rates is nil.
	EventRates
	// EventMutations carries structural mutation records.
	EventMutations
)

func (k EventKind) String() string {
	switch k {
	case EventLoaded:
		return "loaded"
	case EventTimer:
		return "timer"
	case EventPreferences:
		return "preferences"
	case EventRates:
		return "rates"
	case EventMutations:
		return "mutations"
	default:
		return "unknown"
	}
}

// Event is one signal for the controller.
type Event struct {
	Preferences *model.Preferences
	Rates       *model.RateSnapshot
	Label       string
	Mutations   []page.Mutation
	Kind        EventKind
}

// PassKind tells whether a pass covered the whole document.
type PassKind string

const (
	// PassFull is a remove, show and reprocess cycle over the body.
	PassFull PassKind = "full"
	// PassIncremental processes mutated subtrees only.
	PassIncremental PassKind = "incremental"
)

// action is what the controller does in response to an event.
type action struct {
	roots []*html.Node
	full  bool
}

// plan decides the reaction to ev. It reads the document and marks but does
// not modify anything.
func plan(ev Event, st State, enabled bool, root *html.Node, marks classify.Marks) action {
	if st != StateActive || !enabled {
		return action{}
	}

	switch ev.Kind {
	case EventLoaded, EventTimer:
		return action{full: true}
	case EventMutations:
		return action{roots: mutationRoots(ev.Mutations, root, marks)}
	default:
		return action{}
	}
}

// mutationRoots returns the attached, unannotated subtrees touched by records,
// without duplicates or roots nested in another root.
func mutationRoots(records []page.Mutation, root *html.Node, marks classify.Marks) []*html.Node {
	var candidates []*html.Node

	for _, m := range records {
		switch m.Kind {
		case page.ChildList:
			for _, n := range m.Added {
				if marks.IsAnnotated(n) {
					continue
				}
				candidates = append(candidates, n)
			}
		case page.CharacterData:
			if m.Target != nil && m.Target.Parent != nil && !marks.IsAnnotated(m.Target.Parent) {
				candidates = append(candidates, m.Target.Parent)
			}
		}
	}

	candidates = lo.Uniq(lo.Filter(candidates, func(n *html.Node, _ int) bool {
		return page.Contains(root, n)
	}))

	return lo.Filter(candidates, func(n *html.Node, _ int) bool {
		for _, other := range candidates {
			if other != n && page.Contains(other, n) {
				return false
			}
		}
		return true
	})
}
