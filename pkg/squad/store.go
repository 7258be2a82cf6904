package squad

import (
	"fmt"
	"sync"

	"squadflow/pkg/utils"
)

// Squad is one assistant graph plus its per-conversation runtime state.
// All mutations go through the methods below so the cascade and entry
// rules hold under concurrent channel access.
type Squad struct {
	mu sync.RWMutex

	ID   string
	Name string

	assistants []*Assistant
	edges      []*Edge
	// library is the squad-level tool collection. Attaching a tool to
	// any assistant registers it here; detaching never removes it.
	library []string

	entryID string
	runtime RuntimeState
}

// NewSquad creates an empty squad with a single non-deletable entry
// assistant.
func NewSquad(name, entryName, entryPrompt string) *Squad {
	s := &Squad{
		ID:      utils.GenerateID(),
		Name:    name,
		entryID: "main",
	}
	s.assistants = append(s.assistants, &Assistant{
		ID:           "main",
		Name:         entryName,
		SystemPrompt: entryPrompt,
		NonDeletable: true,
	})
	s.runtime.ActiveAssistant = "main"
	return s
}

// EntryID returns the id of the non-deletable entry assistant.
func (s *Squad) EntryID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entryID
}

//----------------------------------------------------------------
// Assistant operations
//----------------------------------------------------------------

// AddAssistant creates an assistant and returns its id.
func (s *Squad) AddAssistant(name, systemPrompt string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := &Assistant{
		ID:           utils.GenerateID(),
		Name:         name,
		SystemPrompt: systemPrompt,
	}
	s.assistants = append(s.assistants, a)
	return a.ID
}

// RemoveAssistant deletes an assistant and every edge touching it.
// The entry assistant is never removable. If the removed assistant was
// active, the active pointer falls back to the entry assistant.
func (s *Squad) RemoveAssistant(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, a := range s.assistants {
		if a.ID == id {
			if a.NonDeletable {
				return fmt.Errorf("assistant %q is the entry point and cannot be removed", id)
			}
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("assistant %q not found", id)
	}

	s.assistants = append(s.assistants[:idx], s.assistants[idx+1:]...)

	// Cascade: drop every edge whose source or target is gone.
	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	s.edges = kept

	if s.runtime.ActiveAssistant == id {
		s.runtime.ActiveAssistant = s.entryID
	}
	return nil
}

// UpdateAssistant changes the display name and/or system prompt. Empty
// arguments leave the corresponding field untouched.
func (s *Squad) UpdateAssistant(id, name, systemPrompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findAssistant(id)
	if a == nil {
		return fmt.Errorf("assistant %q not found", id)
	}
	if name != "" {
		a.Name = name
	}
	if systemPrompt != "" {
		a.SystemPrompt = systemPrompt
	}
	return nil
}

// AttachTool adds the tool to the assistant's set (deduplicated) and to
// the squad tool library.
func (s *Squad) AttachTool(assistantID, toolID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findAssistant(assistantID)
	if a == nil {
		return fmt.Errorf("assistant %q not found", assistantID)
	}
	if !a.HasTool(toolID) {
		a.ToolIDs = append(a.ToolIDs, toolID)
	}
	for _, id := range s.library {
		if id == toolID {
			return nil
		}
	}
	s.library = append(s.library, toolID)
	return nil
}

// DetachTool removes the assistant-level reference only. The library
// entry survives so other assistants can still attach it.
func (s *Squad) DetachTool(assistantID, toolID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findAssistant(assistantID)
	if a == nil {
		return fmt.Errorf("assistant %q not found", assistantID)
	}
	for i, id := range a.ToolIDs {
		if id == toolID {
			a.ToolIDs = append(a.ToolIDs[:i], a.ToolIDs[i+1:]...)
			return nil
		}
	}
	return nil
}

// ToolLibrary returns every tool id ever attached in this squad, in
// first-attachment order.
func (s *Squad) ToolLibrary() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.library...)
}

// Assistant returns a copy of the assistant with the given id.
func (s *Squad) Assistant(id string) (Assistant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a := s.findAssistant(id)
	if a == nil {
		return Assistant{}, false
	}
	cp := *a
	cp.ToolIDs = append([]string(nil), a.ToolIDs...)
	return cp, true
}

// Assistants returns copies of all assistants in insertion order.
func (s *Squad) Assistants() []Assistant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Assistant, 0, len(s.assistants))
	for _, a := range s.assistants {
		cp := *a
		cp.ToolIDs = append([]string(nil), a.ToolIDs...)
		out = append(out, cp)
	}
	return out
}

func (s *Squad) findAssistant(id string) *Assistant {
	for _, a := range s.assistants {
		if a.ID == id {
			return a
		}
	}
	return nil
}

//----------------------------------------------------------------
// Edge operations
//----------------------------------------------------------------

// AddEdge creates a directed transfer edge. Both endpoints must exist
// and the trigger text is required. Duplicate edges between the same
// pair are allowed; only ids are unique.
func (s *Squad) AddEdge(source, target, trigger string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if trigger == "" {
		return "", fmt.Errorf("edge trigger must not be empty")
	}
	if s.findAssistant(source) == nil {
		return "", fmt.Errorf("edge source %q not found", source)
	}
	if s.findAssistant(target) == nil {
		return "", fmt.Errorf("edge target %q not found", target)
	}

	e := &Edge{
		ID:      utils.GenerateID(),
		Source:  source,
		Target:  target,
		Trigger: trigger,
	}
	s.edges = append(s.edges, e)
	return e.ID, nil
}

// RemoveEdge deletes the edge with the given id.
func (s *Squad) RemoveEdge(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.edges {
		if e.ID == id {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("edge %q not found", id)
}

// UpdateEdgeTrigger replaces the trigger text of an existing edge.
func (s *Squad) UpdateEdgeTrigger(id, trigger string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if trigger == "" {
		return fmt.Errorf("edge trigger must not be empty")
	}
	for _, e := range s.edges {
		if e.ID == id {
			e.Trigger = trigger
			return nil
		}
	}
	return fmt.Errorf("edge %q not found", id)
}

// Edges returns copies of all edges in insertion order.
func (s *Squad) Edges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, *e)
	}
	return out
}

// OutgoingEdges returns copies of the edges leaving the given assistant.
func (s *Squad) OutgoingEdges(assistantID string) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Edge
	for _, e := range s.edges {
		if e.Source == assistantID {
			out = append(out, *e)
		}
	}
	return out
}

// FindEdge returns the first edge from source to target, if any.
func (s *Squad) FindEdge(source, target string) (Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.edges {
		if e.Source == source && e.Target == target {
			return *e, true
		}
	}
	return Edge{}, false
}

//----------------------------------------------------------------
// Runtime state
//----------------------------------------------------------------

// Runtime returns a snapshot of the runtime state.
func (s *Squad) Runtime() RuntimeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runtime
}

// ActiveAssistant returns the id of the currently active assistant.
func (s *Squad) ActiveAssistant() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runtime.ActiveAssistant
}

// SetActiveAssistant moves the active pointer. The target must exist.
func (s *Squad) SetActiveAssistant(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findAssistant(id) == nil {
		return fmt.Errorf("assistant %q not found", id)
	}
	s.runtime.ActiveAssistant = id
	return nil
}

// SetAwaitingProvider flags an in-flight completion request.
func (s *Squad) SetAwaitingProvider(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runtime.AwaitingProvider = v
}

// SetExecutingTool records the tool currently running, or clears it
// with an empty id.
func (s *Squad) SetExecutingTool(toolID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runtime.ExecutingTool = toolID
}

// SetLastError mirrors a recovered tool error into the runtime state.
func (s *Squad) SetLastError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runtime.LastError = msg
}

// RecordTransfer moves the active pointer along an edge and remembers
// the edge for UI highlighting. Clears any in-flight tool state.
func (s *Squad) RecordTransfer(edgeID, targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runtime.ExecutingTool = ""
	s.runtime.LastTransferEdge = edgeID
	s.runtime.ActiveAssistant = targetID
}

// Plan returns the stored plan text, empty if none exists.
func (s *Squad) Plan() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runtime.Plan
}

// SetPlan stores the planner output verbatim. The text is advisory
// context for later assistant turns, never parsed.
func (s *Squad) SetPlan(plan string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runtime.Plan = plan
}

// ResetRuntime clears the conversation-scoped runtime: active pointer
// back to the entry assistant, plan and errors dropped.
func (s *Squad) ResetRuntime() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runtime = RuntimeState{ActiveAssistant: s.entryID}
}

//----------------------------------------------------------------
// Store
//----------------------------------------------------------------

// Store holds every squad in the process, keyed by id, with one squad
// designated current.
type Store struct {
	mu      sync.RWMutex
	squads  map[string]*Squad
	order   []string
	current string
}

func NewStore() *Store {
	return &Store{squads: make(map[string]*Squad)}
}

// Add registers a squad. The first squad added becomes current.
func (st *Store) Add(s *Squad) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.squads[s.ID]; !ok {
		st.order = append(st.order, s.ID)
	}
	st.squads[s.ID] = s
	if st.current == "" {
		st.current = s.ID
	}
}

// Get returns the squad with the given id.
func (st *Store) Get(id string) (*Squad, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.squads[id]
	return s, ok
}

// First returns the earliest registered squad. Channels that serve a
// single graph use this as their default.
func (st *Store) First() (*Squad, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if len(st.order) == 0 {
		return nil, false
	}
	return st.squads[st.order[0]], true
}

// List returns every squad in registration order.
func (st *Store) List() []*Squad {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*Squad, 0, len(st.order))
	for _, id := range st.order {
		out = append(out, st.squads[id])
	}
	return out
}

// Current returns the squad designated current.
func (st *Store) Current() (*Squad, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.squads[st.current]
	return s, ok
}

// SetCurrent switches the current squad pointer. Unknown ids are
// ignored.
func (st *Store) SetCurrent(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.squads[id]; ok {
		st.current = id
	}
}

// Remove drops a squad from the store. Removing the current squad
// moves the pointer to the earliest remaining one.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.squads[id]; !ok {
		return
	}
	delete(st.squads, id)
	for i, oid := range st.order {
		if oid == id {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
	if st.current == id {
		st.current = ""
		if len(st.order) > 0 {
			st.current = st.order[0]
		}
	}
}
