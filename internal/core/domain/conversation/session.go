// internal/core/domain/conversation/session.go
package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"london-hotel-monitor-bot/pkg/logger"

	"github.com/google/uuid"
)

const notifyTimeout = 10 * time.Second

type sessionState int

const (
	stateAwaiting sessionState = iota
	stateCompleted
	stateCancelled
	stateTimedOut
)

type sessionKey struct {
	userID int64
	chatID int64
}

func keyOf(in Inbound) sessionKey {
	return sessionKey{userID: in.UserID, chatID: in.ChatID}
}

type envelope struct {
	in    Inbound
	reply chan Outcome
}

// Session живой диалог одного пользователя в одном чате.
// Состояние меняет только горутина run.
type Session struct {
	id        string
	key       sessionKey
	flow      FlowKind
	steps     []step
	idx       int
	answers   *Answers
	history   *History
	startedAt time.Time
	timeout   time.Duration
	state     sessionState

	m      *Manager
	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan envelope
	done   chan struct{}
}

func newSession(m *Manager, in Inbound, flow FlowKind, timeout time.Duration) *Session {
	ctx, cancel := context.WithCancel(m.ctx)
	s := &Session{
		id:        uuid.NewString(),
		key:       keyOf(in),
		flow:      flow,
		steps:     stepsFor(flow),
		answers:   newAnswers(),
		startedAt: m.now(),
		timeout:   timeout,
		m:         m,
		ctx:       ctx,
		cancel:    cancel,
		inbox:     make(chan envelope),
		done:      make(chan struct{}),
	}
	if flow == FlowChat {
		s.history = NewHistory(MaxHistory)
	}
	return s
}

func (s *Session) currentStep() step {
	return s.steps[s.idx]
}

func (s *Session) prompt() Reply {
	reply := Reply{Text: s.currentStep().prompt(s.answers)}
	if s.flow == FlowChat {
		reply.Buttons = stopChatButtons()
	}
	return reply
}

// firstPrompt вопрос при старте с заголовком диалога
func (s *Session) firstPrompt() Reply {
	reply := s.prompt()
	title := flowTitle(s.flow)
	if s.idx > 0 {
		title += "\n\nArea: " + s.answers.area().Name
	}
	if title != "" {
		reply.Text = title + "\n\n" + reply.Text
	}
	return reply
}

func (s *Session) run() {
	defer close(s.done)
	defer s.cancel()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.finish(stateCancelled)
			return

		case <-timer.C:
			s.finish(stateTimedOut)
			s.notifyTimeout()
			return

		case env := <-s.inbox:
			out := s.handle(env.in)
			env.reply <- out
			if s.state != stateAwaiting {
				return
			}
			if out.Kind == OutcomePrompted {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.timeout)
			}
		}
	}
}

// submit передает ввод в сессию; false если сессия завершилась раньше, чем приняла его
func (s *Session) submit(ctx context.Context, in Inbound) (Outcome, bool) {
	env := envelope{in: in, reply: make(chan Outcome, 1)}
	select {
	case s.inbox <- env:
		return <-env.reply, true
	case <-s.done:
		return Outcome{}, false
	case <-ctx.Done():
		return Outcome{Kind: OutcomeFailed, Flow: s.flow, Err: ctx.Err()}, true
	}
}

// stop отменяет сессию и ждет завершения горутины
func (s *Session) stop() bool {
	s.cancel()
	<-s.done
	return s.state == stateCancelled
}

// finish переводит сессию в терминальное состояние и освобождает слот
func (s *Session) finish(state sessionState) {
	s.state = state
	s.m.release(s, state)
}

func (s *Session) handle(in Inbound) Outcome {
	text := strings.TrimSpace(in.Text)

	if isCancelToken(text) {
		s.finish(stateCancelled)
		return Outcome{Kind: OutcomeCancelled, Flow: s.flow, Step: s.currentStep().key, Replies: []Reply{textReply(cancelledText(s.flow))}}
	}

	if s.flow == FlowChat {
		return s.chatTurn(text)
	}

	st := s.currentStep()
	value, err := st.parse(text, s.answers, s.m.now())
	if err != nil {
		reason := genericErrorText
		var ve *ValidationError
		if errors.As(err, &ve) {
			reason = "❌ " + ve.Reason
		}
		return Outcome{
			Kind:    OutcomeReprompted,
			Flow:    s.flow,
			Step:    st.key,
			Replies: []Reply{textReply(reason + "\n\n" + st.prompt(s.answers))},
			Err:     err,
		}
	}

	s.answers.Set(st.key, value)
	s.m.record(s.ctx, s.key.userID)
	s.idx++

	if s.idx < len(s.steps) {
		return Outcome{Kind: OutcomePrompted, Flow: s.flow, Step: s.currentStep().key, Replies: []Reply{s.prompt()}}
	}

	s.finish(stateCompleted)
	replies, err := s.m.complete(s.ctx, s)
	return Outcome{Kind: OutcomeCompleted, Flow: s.flow, Step: st.key, Replies: replies, Err: err}
}

func (s *Session) chatTurn(text string) Outcome {
	if isStopToken(text) {
		s.m.record(s.ctx, s.key.userID)
		s.finish(stateCompleted)
		return Outcome{Kind: OutcomeCompleted, Flow: FlowChat, Step: StepMessage, Replies: []Reply{textReply(chatEndedText)}}
	}

	if text == "" {
		return Outcome{
			Kind:    OutcomeReprompted,
			Flow:    FlowChat,
			Step:    StepMessage,
			Replies: []Reply{s.prompt()},
			Err:     invalid(StepMessage, "empty message"),
		}
	}

	s.m.record(s.ctx, s.key.userID)
	answer := s.m.deps.Assistant.Chat(s.ctx, text, s.history.Turns())
	if s.m.deps.Assistant.IsApology(answer) {
		return Outcome{
			Kind:    OutcomePrompted,
			Flow:    FlowChat,
			Step:    StepMessage,
			Replies: []Reply{{Text: answer, Buttons: stopChatButtons()}},
			Err:     ErrCollaboratorUnavailable,
		}
	}
	s.history.Append(Turn{Role: RoleUser, Content: text}, Turn{Role: RoleAssistant, Content: answer})

	return Outcome{
		Kind:    OutcomePrompted,
		Flow:    FlowChat,
		Step:    StepMessage,
		Replies: []Reply{{Text: answer, Buttons: stopChatButtons()}},
	}
}

func (s *Session) notifyTimeout() {
	logger.Info("⏱ [Conversation] %s session %s for user %d: %v after %v",
		s.flow, s.id, s.key.userID, ErrSessionTimeout, s.m.now().Sub(s.startedAt).Round(time.Second))

	n := s.m.notifier()
	if n == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := n.Notify(ctx, s.key.chatID, textReply(timeoutText(s.flow, s.timeout))); err != nil {
		logger.Warn("⚠️ [Conversation] timeout notice to chat %d failed: %v", s.key.chatID, err)
	}
}
