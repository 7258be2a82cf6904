package squad

// NewDefaultSquad builds the starter graph: a router entry assistant
// and a weather specialist connected by one transfer edge. The planner
// goes on the router and the weather lookup on the specialist; an
// empty tool id skips that attachment.
func NewDefaultSquad(plannerToolID, weatherToolID string) *Squad {
	s := NewSquad(
		"default",
		"Router",
		"You are the entry router. Answer general questions yourself and hand off specialized requests to the right teammate.",
	)

	weatherID := s.AddAssistant(
		"Weather Expert",
		"You are a weather specialist. Answer questions about weather, forecasts and climate.",
	)

	// AddEdge only fails on missing endpoints or an empty trigger,
	// neither of which can happen here.
	_, _ = s.AddEdge(s.EntryID(), weatherID,
		"the user asks about weather, forecasts or climate conditions")

	if plannerToolID != "" {
		_ = s.AttachTool(s.EntryID(), plannerToolID)
	}
	if weatherToolID != "" {
		_ = s.AttachTool(weatherID, weatherToolID)
	}

	return s
}
