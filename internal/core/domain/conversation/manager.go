// internal/core/domain/conversation/manager.go
package conversation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"london-hotel-monitor-bot/internal/core/domain/hotels"
	"london-hotel-monitor-bot/pkg/logger"
)

const (
	DefaultSessionTimeout = 600 * time.Second
	DefaultDeleteTimeout  = 120 * time.Second
)

// Config параметры менеджера сессий
type Config struct {
	SessionTimeout time.Duration
	DeleteTimeout  time.Duration
	Now            func() time.Time
}

// Deps внешние зависимости диалогов
type Deps struct {
	Searcher  HotelSearcher
	Assistant Assistant
	Alerts    AlertStore
	Users     UserStore
	Limiter   RateLimiter
	Notifier  Notifier
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

type notifierHolder struct {
	n Notifier
}

// Manager владеет живыми сессиями и маршрутизирует входящие сообщения
type Manager struct {
	deps           Deps
	sessionTimeout time.Duration
	deleteTimeout  time.Duration
	now            func() time.Time
	notify         atomic.Value

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu защищает только live и closed
	mu     sync.Mutex
	live   map[sessionKey]*Session
	closed bool

	chatMu    sync.Mutex
	chatLocks map[sessionKey]*chatLock

	dispatched  atomic.Int64
	started     atomic.Int64
	completed   atomic.Int64
	cancelled   atomic.Int64
	timedOut    atomic.Int64
	rateLimited atomic.Int64
}

// NewManager создает менеджер сессий
func NewManager(deps Deps, cfg Config) *Manager {
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = DefaultSessionTimeout
	}
	if cfg.DeleteTimeout <= 0 {
		cfg.DeleteTimeout = DefaultDeleteTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		deps:           deps,
		sessionTimeout: cfg.SessionTimeout,
		deleteTimeout:  cfg.DeleteTimeout,
		now:            cfg.Now,
		ctx:            ctx,
		cancel:         cancel,
		live:           make(map[sessionKey]*Session),
		chatLocks:      make(map[sessionKey]*chatLock),
	}
	m.SetNotifier(deps.Notifier)
	return m
}

// SetNotifier задает доставку уведомлений о таймаутах (бот создается после менеджера)
func (m *Manager) SetNotifier(n Notifier) {
	m.notify.Store(notifierHolder{n: n})
}

func (m *Manager) notifier() Notifier {
	h, _ := m.notify.Load().(notifierHolder)
	return h.n
}

// Dispatch обрабатывает одно входящее сообщение.
// Сообщения одного чата обрабатываются строго по очереди.
func (m *Manager) Dispatch(ctx context.Context, in Inbound) Outcome {
	key := keyOf(in)
	unlock := m.lockChat(key)
	defer unlock()

	m.dispatched.Add(1)
	parsed := ParseCommand(in.Text, in.Callback)

	if sess := m.lookup(key); sess != nil {
		if out, ok := m.dispatchLive(ctx, sess, in, parsed); ok {
			return out
		}
		logger.Debug("🔁 [Conversation] session %s ended before input, re-dispatching", sess.id)
	}

	return m.dispatchIdle(ctx, in, parsed)
}

func (m *Manager) dispatchLive(ctx context.Context, sess *Session, in Inbound, parsed ParsedCommand) (Outcome, bool) {
	switch {
	case parsed.Cmd.IsFlow():
		return m.startFlow(ctx, in, parsed, sess), true
	case parsed.Cmd == CmdCancel:
		return sess.submit(ctx, withText(in, "cancel"))
	case parsed.Cmd == CmdStopChat:
		if sess.flow != FlowChat {
			return reply(textReply(stopChatInFlow)), true
		}
		return sess.submit(ctx, withText(in, "stop"))
	case parsed.Cmd != CmdNone:
		return m.dispatchIdle(ctx, in, parsed), true
	case in.Callback:
		return Outcome{Kind: OutcomeUnknown, Replies: []Reply{textReply(unknownInputText)}}, true
	}
	return sess.submit(ctx, in)
}

func (m *Manager) dispatchIdle(ctx context.Context, in Inbound, parsed ParsedCommand) Outcome {
	switch parsed.Cmd {
	case CmdSearch, CmdAlert, CmdDelete, CmdChat:
		return m.startFlow(ctx, in, parsed, nil)
	case CmdStart:
		return m.handleStart(ctx, in)
	case CmdHelp:
		return reply(Reply{Text: helpText, Buttons: [][]Button{{{Text: "⬅️ Menu", Data: CallbackMenu}}}})
	case CmdAreas:
		return reply(Reply{Text: areasText(), Buttons: areaButtons()})
	case CmdMyAlerts:
		return m.handleMyAlerts(ctx, in.UserID)
	case CmdSuggest:
		return m.handleSuggest(ctx, in, parsed.Args)
	case CmdCancel:
		return reply(textReply(nothingToCancel))
	case CmdStopChat:
		return reply(textReply(noActiveChatText))
	case CmdAlertMenu:
		return reply(Reply{Text: alertMenuText, Buttons: alertMenuButtons()})
	case CmdAlertHotel:
		return reply(Reply{Text: alertHotelHintText, Buttons: [][]Button{{{Text: "🔍 Search Hotels", Data: CallbackSearch}}}})
	case CmdNone:
	}
	return Outcome{Kind: OutcomeUnknown, Replies: []Reply{textReply(unknownInputText)}}
}

// startFlow запускает диалог; prev отменяется только после прохождения лимита
func (m *Manager) startFlow(ctx context.Context, in Inbound, parsed ParsedCommand, prev *Session) Outcome {
	flow := parsed.Cmd.Flow()

	// после Shutdown лимит не списывается
	if m.isClosed() {
		return Outcome{Kind: OutcomeFailed, Flow: flow, Replies: []Reply{textReply(shuttingDownText)}, Err: ErrShuttingDown}
	}

	ok, err := m.deps.Limiter.Admit(ctx, in.UserID, in.Username, in.FirstName)
	if err != nil {
		logger.Error("❌ [Conversation] admit user %d: %v", in.UserID, err)
		return Outcome{Kind: OutcomeFailed, Flow: flow, Replies: []Reply{textReply(genericErrorText)}, Err: fmt.Errorf("admit: %w", err)}
	}
	if !ok {
		m.rateLimited.Add(1)
		logger.Info("🚫 [Conversation] user %d hit the daily limit", in.UserID)
		return Outcome{Kind: OutcomeRateLimited, Flow: flow, Replies: []Reply{textReply(rateLimitedText)}, Err: ErrRateLimited}
	}

	var replies []Reply
	if prev != nil && prev.stop() {
		replies = append(replies, textReply(overrideText(prev.flow)))
	}

	sess := newSession(m, in, flow, m.timeoutFor(flow))
	if flow == FlowSearch && parsed.Area != "" {
		if area, found := hotels.LookupArea(parsed.Area); found {
			sess.answers.Set(StepArea, area)
			sess.idx = 1
		}
	}

	if !m.register(sess) {
		return Outcome{Kind: OutcomeFailed, Flow: flow, Replies: []Reply{textReply(shuttingDownText)}, Err: ErrShuttingDown}
	}

	m.started.Add(1)
	logger.Debug("▶️ [Conversation] %s session %s started for user %d in chat %d", flow, sess.id, in.UserID, in.ChatID)

	replies = append(replies, sess.firstPrompt())
	return Outcome{Kind: OutcomeStarted, Flow: flow, Step: sess.currentStep().key, Replies: replies}
}

func (m *Manager) timeoutFor(flow FlowKind) time.Duration {
	if flow == FlowDelete {
		return m.deleteTimeout
	}
	return m.sessionTimeout
}

func (m *Manager) register(sess *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		sess.cancel()
		return false
	}

	m.live[sess.key] = sess
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		sess.run()
	}()
	return true
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) lookup(key sessionKey) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live[key]
}

// release убирает сессию из живых, если слот все еще ее
func (m *Manager) release(sess *Session, state sessionState) {
	m.mu.Lock()
	if m.live[sess.key] == sess {
		delete(m.live, sess.key)
	}
	m.mu.Unlock()

	switch state {
	case stateCompleted:
		m.completed.Add(1)
	case stateCancelled:
		m.cancelled.Add(1)
	case stateTimedOut:
		m.timedOut.Add(1)
	case stateAwaiting:
	}
}

func (m *Manager) record(ctx context.Context, userID int64) {
	if err := m.deps.Limiter.Record(ctx, userID); err != nil {
		logger.Warn("⚠️ [Conversation] record message for user %d: %v", userID, err)
	}
}

// lockChat сериализует Dispatch одного чата; запись удаляется, когда ее никто не держит
func (m *Manager) lockChat(key sessionKey) func() {
	m.chatMu.Lock()
	cl, ok := m.chatLocks[key]
	if !ok {
		cl = &chatLock{}
		m.chatLocks[key] = cl
	}
	cl.refs++
	m.chatMu.Unlock()

	cl.mu.Lock()

	return func() {
		cl.mu.Unlock()

		m.chatMu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(m.chatLocks, key)
		}
		m.chatMu.Unlock()
	}
}

// LiveCount количество живых сессий
func (m *Manager) LiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Stats счетчики для /stats
func (m *Manager) Stats() map[string]int64 {
	return map[string]int64{
		"live_sessions": int64(m.LiveCount()),
		"dispatched":    m.dispatched.Load(),
		"started":       m.started.Load(),
		"completed":     m.completed.Load(),
		"cancelled":     m.cancelled.Load(),
		"timed_out":     m.timedOut.Load(),
		"rate_limited":  m.rateLimited.Load(),
	}
}

// Shutdown отменяет все живые сессии и ждет их горутины
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	live := len(m.live)
	m.mu.Unlock()

	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("✅ [Conversation] session manager stopped, %d live sessions cancelled", live)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session manager shutdown: %w", ctx.Err())
	}
}

func withText(in Inbound, text string) Inbound {
	in.Text = text
	in.Callback = false
	return in
}

func reply(r Reply) Outcome {
	return Outcome{Kind: OutcomeReply, Replies: []Reply{r}}
}
