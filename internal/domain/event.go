package domain

// EventKind discriminates stream events.
type EventKind int

const (
	// EventToken carries one generated text fragment.
	EventToken EventKind = iota
	// EventAnswer carries the terminal answer text (refusal, fallback, or the
	// accumulated generation). Emitted exactly once per query.
	EventAnswer
	// EventChunks carries the supporting retrieval results. Emitted exactly
	// once per query, always after the answer.
	EventChunks
)

// StreamEvent is one element of a query's response stream. Per query the
// stream is tokens (zero or more), then one answer, then one chunks event.
type StreamEvent struct {
	Kind   EventKind
	Token  string
	Answer string
	Chunks []FusedResult
}

// TokenEvent builds a token event.
func TokenEvent(token string) StreamEvent {
	return StreamEvent{Kind: EventToken, Token: token}
}

// AnswerEvent builds the terminal answer event.
func AnswerEvent(text string) StreamEvent {
	return StreamEvent{Kind: EventAnswer, Answer: text}
}

// ChunksEvent builds the terminal chunks event. Chunks may be empty but
// never nil, so the wire encoding is always a JSON array.
func ChunksEvent(chunks []FusedResult) StreamEvent {
	if chunks == nil {
		chunks = []FusedResult{}
	}
	return StreamEvent{Kind: EventChunks, Chunks: chunks}
}
