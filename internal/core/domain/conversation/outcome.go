// internal/core/domain/conversation/outcome.go
package conversation

// OutcomeKind результат обработки входящего сообщения
type OutcomeKind int

const (
	OutcomeReply       OutcomeKind = iota // ответ на команду без диалога
	OutcomeStarted                        // диалог запущен, задан первый вопрос
	OutcomePrompted                       // ответ принят, задан следующий вопрос
	OutcomeReprompted                     // ответ не прошел проверку
	OutcomeCompleted                      // диалог завершен
	OutcomeCancelled                      // диалог отменен
	OutcomeRateLimited                    // дневной лимит исчерпан
	OutcomeTimedOut                       // диалог истек по таймауту
	OutcomeUnknown                        // непонятный ввод без активного диалога
	OutcomeFailed                         // внутренняя ошибка
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReply:
		return "reply"
	case OutcomeStarted:
		return "started"
	case OutcomePrompted:
		return "prompted"
	case OutcomeReprompted:
		return "reprompted"
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeUnknown:
		return "unknown"
	case OutcomeFailed:
		return "failed"
	}
	return "invalid"
}

// Button inline-кнопка
type Button struct {
	Text string
	Data string
}

// Reply одно исходящее сообщение
type Reply struct {
	Text    string
	Buttons [][]Button
}

// Outcome результат Dispatch
type Outcome struct {
	Kind    OutcomeKind
	Flow    FlowKind
	Step    string
	Replies []Reply
	Err     error
}

func textReply(text string) Reply {
	return Reply{Text: text}
}
