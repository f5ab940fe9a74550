package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
)

// Input defines the request payload for the agent flow.
type Input struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId,omitempty"` // empty starts a new session
	Persona   string `json:"persona,omitempty"`   // companion (default) or preacher
}

// Output defines the response payload from the agent flow.
type Output struct {
	Response   string `json:"response"`
	SessionID  string `json:"sessionId"`
	Incomplete bool   `json:"incomplete,omitempty"`
}

// StreamChunk is the streaming output type: partial text that can be shown
// to the user immediately.
type StreamChunk struct {
	Text string `json:"text"`
}

// FlowName is the registered name of the agent flow in Genkit.
const FlowName = "selah/chat"

// Flow is the agent's Genkit streaming flow type. Exported for use with
// genkit.Handler().
type Flow = core.Flow[Input, Output, StreamChunk]

// Flow singleton; genkit.DefineStreamingFlow panics on re-registration.
var (
	flowOnce sync.Once
	flow     *Flow
)

// NewFlow returns the agent flow singleton, initializing it on first call.
func NewFlow(g *genkit.Genkit, agent *Agent) *Flow {
	flowOnce.Do(func() {
		flow = defineFlow(g, agent)
	})
	return flow
}

// ResetFlowForTesting resets the flow singleton. Only for tests.
func ResetFlowForTesting() {
	flowOnce = sync.Once{}
	flow = nil
}

func defineFlow(g *genkit.Genkit, agent *Agent) *Flow {
	return genkit.DefineStreamingFlow(g, FlowName,
		func(ctx context.Context, input Input, streamCb func(context.Context, StreamChunk) error) (Output, error) {
			sessionID := uuid.Nil
			if input.SessionID != "" {
				var err error
				sessionID, err = uuid.Parse(input.SessionID)
				if err != nil {
					return Output{}, fmt.Errorf("invalid session id %q: %w", input.SessionID, err)
				}
			}

			var cb StreamCallback
			if streamCb != nil {
				cb = func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
					if chunk == nil {
						return nil
					}
					for _, part := range chunk.Content {
						if part.Text != "" {
							if err := streamCb(ctx, StreamChunk{Text: part.Text}); err != nil {
								return err
							}
						}
					}
					return nil
				}
			}

			resp, err := agent.Respond(ctx, sessionID, input.Persona, input.Query, cb)
			if err != nil {
				return Output{SessionID: input.SessionID}, err
			}

			return Output{
				Response:   resp.Text,
				SessionID:  resp.SessionID.String(),
				Incomplete: resp.Incomplete,
			}, nil
		},
	)
}
