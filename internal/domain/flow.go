package domain

import "context"

// Flow identifies which conversational pipeline handles a message.
type Flow string

const (
	FlowAnimal  Flow = "ANIMAL"
	FlowRAG     Flow = "RAG"
	FlowEmotion Flow = "EMOTION"
	FlowStats   Flow = "STATS"
	FlowHelp    Flow = "HELP"
)

// ClassifyOrder is the priority order for recovering a flow label from
// free-form model output. The first label contained in the reply wins.
var ClassifyOrder = []Flow{FlowAnimal, FlowRAG, FlowEmotion, FlowStats, FlowHelp}

// RouteResult is the normalized response envelope every flow produces.
// Channels render it; only the fields a flow filled are serialized.
type RouteResult struct {
	Flow        Flow         `json:"flow,omitempty"`
	Response    string       `json:"response,omitempty"`
	Error       string       `json:"error,omitempty"`
	ImageURL    string       `json:"image_url,omitempty"`
	Animal      string       `json:"animal,omitempty"`
	AnimalEmoji string       `json:"animal_emoji,omitempty"`
	RAGSource   string       `json:"rag_source,omitempty"`
	RAGEmoji    string       `json:"rag_emoji,omitempty"`
	FirstEmoji  string       `json:"first_emoji,omitempty"`
	SecondEmoji string       `json:"second_emoji,omitempty"`
	Stats       *StatsResult `json:"stats,omitempty"`
}

// StatsResult carries the outcome of a statistics query.
type StatsResult struct {
	Summary string         `json:"summary"`
	Counts  map[string]int `json:"counts,omitempty"`
	Period  string         `json:"period"`
	Mood    string         `json:"mood,omitempty"`
}

// Router turns one inbound message into one routed response. It never
// returns a Go error: validation failures and dead backends surface
// inside the envelope so channels always have something to render.
type Router interface {
	Route(ctx context.Context, channel, message string) *RouteResult
}
