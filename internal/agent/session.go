package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/voicereach/voicereach/internal/calls"
	"github.com/voicereach/voicereach/pkg/logging"
)

// maxTurns bounds a single call conversation. A real call never comes close;
// the cap protects against a responder that never ends the call.
const maxTurns = 50

// Turn is everything the responder needs to produce the agent's next
// utterance.
type Turn struct {
	Phase        Phase
	Instructions string
	Tools        []ToolName
	UserInput    string
	State        *CallState
}

// Reply is the responder's output for one turn: what to say, and which tool
// actions to take.
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// Responder generates the agent side of the conversation. Implementations
// range from a scripted walk-through for tests and demos to a full language
// model pipeline.
type Responder interface {
	Respond(ctx context.Context, turn Turn) (Reply, error)
}

// Transport carries the conversation to and from the lead.
type Transport interface {
	// ReadLine returns the lead's next utterance. io.EOF means they hung up.
	ReadLine(ctx context.Context) (string, error)
	// WriteLine delivers the agent's utterance.
	WriteLine(ctx context.Context, text string) error
}

// Dialer places the outbound phone leg before the conversation starts.
type Dialer interface {
	Dial(ctx context.Context, roomName, phone string) error
}

// DialError is a telephony-level dial failure: busy, rejected, unreachable.
// It maps to a no_answer outcome rather than an error outcome.
type DialError struct {
	SIPStatus string
	Err       error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("dial failed (SIP %s): %v", e.SIPStatus, e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

// SessionConfig wires a call session.
type SessionConfig struct {
	Context   *calls.ContextInstance
	Responder Responder
	Transport Transport
	// Dialer is optional. When nil the lead is assumed to already be
	// connected (browser demo, inbound).
	Dialer Dialer
	// Store is optional session state persistence.
	Store *SessionStore
	// OnShutdown runs exactly once when the session finishes, with the
	// final call result. Post-call reporting hangs off this hook.
	OnShutdown func(ctx context.Context, result *CallResult)
	Logger     *logging.Logger
}

// Session drives one call conversation from dial to shutdown.
type Session struct {
	cfg    SessionConfig
	state  *CallState
	logger *logging.Logger
}

// NewSession creates a session for the given config.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Context == nil {
		return nil, fmt.Errorf("session: context required")
	}
	if cfg.Responder == nil {
		return nil, fmt.Errorf("session: responder required")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("session: transport required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Session{
		cfg:    cfg,
		state:  NewCallState(cfg.Context),
		logger: logger.With("context_id", cfg.Context.ID),
	}, nil
}

// RoomName returns the media room this session runs in.
func (s *Session) RoomName() string {
	return "call-" + s.cfg.Context.ID
}

// Run executes the call and returns its result. Dial failures and mid-call
// hangups are outcomes, not errors: the returned error is reserved for
// transport and responder faults that abort the conversation itself.
func (s *Session) Run(ctx context.Context) (*CallResult, error) {
	s.state.StartedAt = time.Now().UTC()

	if s.cfg.Dialer != nil {
		if err := s.cfg.Dialer.Dial(ctx, s.RoomName(), s.state.Context.Phone); err != nil {
			var dialErr *DialError
			if errors.As(err, &dialErr) {
				s.logger.Error("dial failed", "phone", s.state.Context.Phone, "sip_status", dialErr.SIPStatus)
				s.state.Outcome = OutcomeNoAnswer
			} else {
				s.logger.Error("dial error", "phone", s.state.Context.Phone, "error", err)
				s.state.Outcome = OutcomeError
			}
			return s.finish(ctx), nil
		}
		s.logger.Info("call answered", "phone", s.state.Context.Phone)
	}

	runErr := s.converse(ctx)
	result := s.finish(ctx)
	return result, runErr
}

// converse loops the conversation until the call ends, the lead hangs up, or
// the turn cap is hit. The lead speaks first on outbound calls.
func (s *Session) converse(ctx context.Context) error {
	for turn := 0; turn < maxTurns && !s.state.Ended(); turn++ {
		input, err := s.cfg.Transport.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("lead hung up", "phase", s.state.Phase)
				return nil
			}
			return fmt.Errorf("read lead input: %w", err)
		}
		s.state.Record("lead", input)

		reply, err := s.cfg.Responder.Respond(ctx, Turn{
			Phase:        s.state.Phase,
			Instructions: InstructionsFor(s.state.Phase, s.state.Context),
			Tools:        ToolsFor(s.state.Phase),
			UserInput:    input,
			State:        s.state,
		})
		if err != nil {
			return fmt.Errorf("responder: %w", err)
		}

		for _, call := range reply.ToolCalls {
			if _, err := ApplyTool(s.state, call); err != nil {
				s.logger.Warn("tool call rejected", "tool", call.Name, "phase", s.state.Phase, "error", err)
			}
		}

		if reply.Text != "" {
			if err := s.cfg.Transport.WriteLine(ctx, reply.Text); err != nil {
				return fmt.Errorf("write agent reply: %w", err)
			}
			s.state.Record("agent", reply.Text)
		}

		s.persist(ctx)
	}
	return nil
}

// finish closes out the session: it stamps the end time, snapshots the
// result, persists final state and fires the shutdown hook.
func (s *Session) finish(ctx context.Context) *CallResult {
	s.state.EndedAt = time.Now().UTC()
	result := resultFromState(s.state)

	s.logger.Info("call completed",
		"outcome", result.Outcome,
		"duration_seconds", result.DurationSeconds,
		"lead_email", result.LeadEmail,
		"objection", result.ObjectionReason,
	)

	s.persist(ctx)

	if s.cfg.OnShutdown != nil {
		s.cfg.OnShutdown(ctx, result)
	}
	return result
}

func (s *Session) persist(ctx context.Context) {
	if s.cfg.Store == nil {
		return
	}
	if err := s.cfg.Store.SaveState(ctx, s.RoomName(), s.state); err != nil {
		s.logger.Warn("failed to persist session state", "error", err)
	}
}
