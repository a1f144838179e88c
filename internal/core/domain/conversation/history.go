package conversation

// MaxHistory сколько последних реплик передается AI ассистенту
const MaxHistory = 20

// Role автор реплики
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn одна реплика чата
type Turn struct {
	Role    Role
	Content string
}

// History ограниченная история чата, старые реплики вытесняются первыми
type History struct {
	turns []Turn
	limit int
}

// NewHistory создает историю с лимитом
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = MaxHistory
	}
	return &History{limit: limit}
}

// Append добавляет реплики и обрезает историю до лимита
func (h *History) Append(turns ...Turn) {
	h.turns = append(h.turns, turns...)
	if over := len(h.turns) - h.limit; over > 0 {
		kept := make([]Turn, h.limit)
		copy(kept, h.turns[over:])
		h.turns = kept
	}
}

// Turns возвращает копию истории
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	return len(h.turns)
}
