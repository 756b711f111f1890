package parser

import (
	"fmt"
	"log"

	"docextract/internal/domain"
	"docextract/internal/extract"
)

// State is a step of the per-document fallback machine.
type State int

const (
	// StatePrimary tokenizes with the format's preferred tokenizer.
	StatePrimary State = iota
	// StateSecondary retries with the alternate tokenizer.
	StateSecondary
	// StateDegraded fills what it can from the filename. It is terminal.
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StatePrimary:
		return "primary"
	case StateSecondary:
		return "secondary"
	case StateDegraded:
		return "degraded"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Event triggers a state transition.
type Event int

const (
	// EventTokenizeFailed: the current tokenizer returned an error or no text.
	EventTokenizeFailed Event = iota
	// EventNoAlternate: the primary failed and the format has no secondary.
	EventNoAlternate
	// EventUnsupported: no tokenizer exists for the file's format.
	EventUnsupported
)

func (e Event) String() string {
	switch e {
	case EventTokenizeFailed:
		return "tokenize_failed"
	case EventNoAlternate:
		return "no_alternate"
	case EventUnsupported:
		return "unsupported"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

var transitions = map[State]map[Event]State{
	StatePrimary: {
		EventTokenizeFailed: StateSecondary,
		EventNoAlternate:    StateDegraded,
		EventUnsupported:    StateDegraded,
	},
	StateSecondary: {
		EventTokenizeFailed: StateDegraded,
	},
}

// Next returns the state reached from s on e. The second return is false
// when the machine has no such transition.
func Next(s State, e Event) (State, bool) {
	to, ok := transitions[s][e]
	return to, ok
}

// Transition is one recorded step of the machine.
type Transition struct {
	From  State
	To    State
	Event Event
	Err   error
}

// Outcome is the result of running one file through the machine. Errors
// holds every tokenizer failure seen on the way; none of them is fatal.
type Outcome struct {
	Fields *domain.ExtractedFields
	State  State
	Trail  []Transition
	Errors []error
}

// Input is one file handed to the orchestrator.
type Input struct {
	Kind        domain.DocumentKind
	Subtype     domain.InvoiceSubtype
	Filename    string
	ContentType string
	Data        []byte
}

// Orchestrator drives files through Primary, Secondary and Degraded.
type Orchestrator struct {
	engine  *extract.Engine
	planner *Planner
	debug   bool
}

// NewOrchestrator creates an Orchestrator. A nil planner uses DefaultPlanner.
func NewOrchestrator(engine *extract.Engine, planner *Planner, debug bool) *Orchestrator {
	if planner == nil {
		planner = DefaultPlanner()
	}
	return &Orchestrator{engine: engine, planner: planner, debug: debug}
}

// Run extracts fields from one file. It only fails when the document kind or
// subtype has no profile; every tokenizer failure ends in a degraded result.
func (o *Orchestrator) Run(in Input) (*Outcome, error) {
	if _, err := o.engine.Profile(in.Kind, in.Subtype); err != nil {
		return nil, err
	}

	out := &Outcome{State: StatePrimary}
	format, known := domain.DetectFileType(in.Filename, in.ContentType)
	plan, ok := o.planner.Lookup(in.Kind, format)
	if !known || !ok {
		err := fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, in.Filename)
		o.fire(out, in.Filename, EventUnsupported, err)
		return o.degrade(out, in)
	}

	doc, err := o.tokenize(plan.Primary, format, in)
	if err == nil {
		return o.extract(out, in, doc)
	}
	if plan.Secondary == nil {
		o.fire(out, in.Filename, EventNoAlternate, err)
		return o.degrade(out, in)
	}

	o.fire(out, in.Filename, EventTokenizeFailed, err)
	doc, err = o.tokenize(*plan.Secondary, format, in)
	if err == nil {
		return o.extract(out, in, doc)
	}
	o.fire(out, in.Filename, EventTokenizeFailed, err)
	return o.degrade(out, in)
}

// tokenize runs one tokenizer, treating a panic or an empty document as a
// tokenize failure.
func (o *Orchestrator) tokenize(step Step, format domain.FileType, in Input) (doc *domain.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, NewTokenizeError(step.Name, format, fmt.Errorf("panic: %v", r))
		}
	}()
	doc, err = step.Tokenizer.Tokenize(in.Data, in.ContentType)
	if err != nil {
		return nil, NewTokenizeError(step.Name, format, err)
	}
	if doc == nil || doc.IsEmpty() {
		return nil, NewTokenizeError(step.Name, format, domain.ErrEmptyDocument)
	}
	return doc, nil
}

func (o *Orchestrator) extract(out *Outcome, in Input, doc *domain.Document) (*Outcome, error) {
	fields, err := o.engine.Extract(in.Kind, in.Subtype, doc, in.Filename)
	if err != nil {
		return nil, err
	}
	out.Fields = fields
	if o.debug {
		log.Printf("parser.Orchestrator: %s: extracted in %s state (quality=%s)", in.Filename, out.State, fields.Quality)
	}
	return out, nil
}

// Degrade skips tokenization and runs only the filename pass.
func (o *Orchestrator) Degrade(in Input) (*Outcome, error) {
	return o.degrade(&Outcome{State: StateDegraded}, in)
}

func (o *Orchestrator) degrade(out *Outcome, in Input) (*Outcome, error) {
	fields, err := o.engine.ExtractFromFilename(in.Kind, in.Subtype, in.Filename)
	if err != nil {
		return nil, err
	}
	out.Fields = fields
	return out, nil
}

func (o *Orchestrator) fire(out *Outcome, filename string, e Event, err error) {
	to, ok := Next(out.State, e)
	if !ok {
		to = StateDegraded
	}
	if o.debug {
		log.Printf("parser.Orchestrator: %s: %s -> %s on %s: %v", filename, out.State, to, e, err)
	}
	out.Trail = append(out.Trail, Transition{From: out.State, To: to, Event: e, Err: err})
	out.Errors = append(out.Errors, err)
	out.State = to
}
