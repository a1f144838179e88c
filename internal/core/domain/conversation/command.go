// internal/core/domain/conversation/command.go
package conversation

import (
	"strings"

	"london-hotel-monitor-bot/internal/core/domain/hotels"
)

// Command закрытый набор команд бота
type Command int

const (
	CmdNone Command = iota
	CmdStart
	CmdHelp
	CmdAreas
	CmdSearch
	CmdAlert
	CmdMyAlerts
	CmdDelete
	CmdChat
	CmdSuggest
	CmdCancel
	CmdStopChat
	CmdAlertMenu
	CmdAlertHotel
)

// Callback payloads кнопок
const (
	CallbackSearch     = "action_search"
	CallbackAlerts     = "action_alerts"
	CallbackAlertArea  = "alert_area"
	CallbackAlertHotel = "alert_specific"
	CallbackMyAlerts   = "action_myalerts"
	CallbackAreas      = "action_areas"
	CallbackChat       = "action_chat"
	CallbackHelp       = "action_help"
	CallbackMenu       = "action_menu"
	CallbackStopChat   = "stop_chat"
	CallbackAreaPrefix = "searcharea_"
)

// String имя команды
func (c Command) String() string {
	switch c {
	case CmdNone:
		return "none"
	case CmdStart:
		return "start"
	case CmdHelp:
		return "help"
	case CmdAreas:
		return "areas"
	case CmdSearch:
		return "search"
	case CmdAlert:
		return "alert"
	case CmdMyAlerts:
		return "myalerts"
	case CmdDelete:
		return "delete"
	case CmdChat:
		return "chat"
	case CmdSuggest:
		return "suggest"
	case CmdCancel:
		return "cancel"
	case CmdStopChat:
		return "stop_chat"
	case CmdAlertMenu:
		return "alert_menu"
	case CmdAlertHotel:
		return "alert_hotel"
	}
	return "unknown"
}

// IsFlow запускает ли команда многошаговый диалог
func (c Command) IsFlow() bool {
	switch c {
	case CmdSearch, CmdAlert, CmdDelete, CmdChat:
		return true
	case CmdNone, CmdStart, CmdHelp, CmdAreas, CmdMyAlerts, CmdSuggest, CmdCancel, CmdStopChat,
		CmdAlertMenu, CmdAlertHotel:
		return false
	}
	return false
}

// Flow возвращает тип диалога для flow-команды
func (c Command) Flow() FlowKind {
	switch c {
	case CmdSearch:
		return FlowSearch
	case CmdAlert:
		return FlowAlertCreate
	case CmdDelete:
		return FlowDelete
	case CmdChat:
		return FlowChat
	case CmdNone, CmdStart, CmdHelp, CmdAreas, CmdMyAlerts, CmdSuggest, CmdCancel, CmdStopChat,
		CmdAlertMenu, CmdAlertHotel:
		return FlowNone
	}
	return FlowNone
}

var slashCommands = map[string]Command{
	"start":    CmdStart,
	"help":     CmdHelp,
	"areas":    CmdAreas,
	"search":   CmdSearch,
	"alert":    CmdAlert,
	"myalerts": CmdMyAlerts,
	"delete":   CmdDelete,
	"chat":     CmdChat,
	"suggest":  CmdSuggest,
	"cancel":   CmdCancel,
}

var callbackCommands = map[string]Command{
	CallbackSearch:     CmdSearch,
	CallbackAlerts:     CmdAlertMenu,
	CallbackAlertArea:  CmdAlert,
	CallbackAlertHotel: CmdAlertHotel,
	CallbackMyAlerts:   CmdMyAlerts,
	CallbackAreas:      CmdAreas,
	CallbackChat:       CmdChat,
	CallbackHelp:       CmdHelp,
	CallbackMenu:       CmdStart,
	CallbackStopChat:   CmdStopChat,
}

// ParsedCommand разобранный ввод
type ParsedCommand struct {
	Cmd  Command
	Args string // текст после команды (/suggest museums)
	Area string // ключ района для searcharea_<key>
}

// ParseCommand разбирает текст сообщения или payload кнопки
func ParseCommand(text string, callback bool) ParsedCommand {
	text = strings.TrimSpace(text)
	if callback {
		return parseCallback(text)
	}

	if !strings.HasPrefix(text, "/") {
		return ParsedCommand{Cmd: CmdNone}
	}

	name, args, _ := strings.Cut(text[1:], " ")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}

	cmd, ok := slashCommands[strings.ToLower(name)]
	if !ok {
		return ParsedCommand{Cmd: CmdNone}
	}
	return ParsedCommand{Cmd: cmd, Args: strings.TrimSpace(args)}
}

func parseCallback(data string) ParsedCommand {
	if key, ok := strings.CutPrefix(data, CallbackAreaPrefix); ok {
		parsed := ParsedCommand{Cmd: CmdSearch}
		if area, found := hotels.LookupArea(key); found {
			parsed.Area = area.Key
		}
		return parsed
	}

	if cmd, ok := callbackCommands[data]; ok {
		return ParsedCommand{Cmd: cmd}
	}
	return ParsedCommand{Cmd: CmdNone}
}
