// internal/core/domain/conversation/texts.go
package conversation

import (
	"fmt"
	"strings"
	"time"

	"london-hotel-monitor-bot/internal/core/domain/hotels"
	"london-hotel-monitor-bot/internal/infrastructure/persistence/postgres/models"
	"london-hotel-monitor-bot/pkg/utils"
)

// Тексты в формате Telegram Markdown
const (
	welcomeText = "*London Hotel Price Monitor*\n\n" +
		"Search hotel prices across London and get notified when they drop.\n\n" +
		"Pick an action:"

	alertMenuText = "*Price Alert Options*\n\n" +
		"1. Specific Hotel Alert - track a particular hotel's price\n" +
		"2. Area Budget Alert - get notified when any hotel in an area drops below your budget\n\n" +
		"Choose below:"
	alertHotelHintText = "Use /search to find a hotel first, then set an alert with its name via /alert."

	helpText = "*London Hotel Monitor: commands*\n\n" +
		"*Search*\n" +
		"/search - find hotels in a London area\n\n" +
		"*Price alerts*\n" +
		"/alert - create a price alert\n" +
		"/myalerts - list your active alerts\n" +
		"/delete - remove an alert\n\n" +
		"*Areas*\n" +
		"/areas - London neighbourhoods\n" +
		"/suggest <interests> - AI picks areas for you\n\n" +
		"*AI assistant*\n" +
		"/chat - ask about hotels and London\n\n" +
		"/cancel - stop the current dialog\n\n" +
		"Type 'cancel' at any step to stop."

	promptCheckIn   = "Check-in date? (YYYY-MM-DD)"
	promptCheckOut  = "Check-out date? (YYYY-MM-DD)"
	promptGuests    = "How many guests? (1-10)"
	promptMaxPrice  = "Maximum price per night in £?"
	promptHotelName = "Specific hotel name, or 'any' for any hotel in the area?"
	promptAlertID   = "Send the alert ID to delete (or 'cancel'):"
	promptChat      = "*AI London Hotel Assistant*\n\n" +
		"Ask about hotels, areas or travel tips.\n" +
		"Type 'done' to finish or 'cancel' to leave."

	rateLimitedText   = "⚠️ You've reached your daily limit. Try again tomorrow."
	unknownInputText  = "I didn't get that. Use /help to see what I can do."
	nothingToCancel   = "Nothing to cancel."
	noActiveChatText  = "Chat ended!"
	stopChatInFlow    = "The stop button only ends an AI chat. Type 'cancel' to leave the current dialog."
	chatEndedText     = "Chat ended. Use /chat to start again!"
	genericErrorText  = "❌ Something went wrong. Please try again."
	shuttingDownText  = "The bot is restarting. Please try again in a minute."
	noAlertsText      = "You don't have any active alerts. Use /alert to create one!"
	alertNotFoundText = "❌ Alert not found."

	noHotelsText = "*No hotels found*\n\n" +
		"Possible reasons:\n" +
		"- the hotel provider is not configured or unavailable\n" +
		"- no availability for these dates\n" +
		"- no hotels in this area have rooms left"
)

func promptArea() string {
	return "Which London area? (e.g. " + strings.Join([]string{"Westminster", "Camden", "Kensington"}, ", ") + ")\n" +
		"Use /areas to see all options. Type 'cancel' to stop."
}

func flowTitle(flow FlowKind) string {
	switch flow {
	case FlowSearch:
		return "*Hotel search in London*"
	case FlowAlertCreate:
		return "🔔 *Create price alert*"
	case FlowDelete:
		return "*Delete alert*"
	case FlowChat, FlowNone:
	}
	return ""
}

func cancelledText(flow FlowKind) string {
	switch flow {
	case FlowSearch:
		return "Search cancelled."
	case FlowAlertCreate:
		return "Alert creation cancelled."
	case FlowDelete:
		return "Delete cancelled."
	case FlowChat:
		return "Chat cancelled."
	case FlowNone:
	}
	return "Cancelled."
}

func timeoutText(flow FlowKind, idle time.Duration) string {
	return fmt.Sprintf("⏱ No reply for %s. %s", utils.FormatDuration(idle), timeoutHint(flow))
}

func timeoutHint(flow FlowKind) string {
	switch flow {
	case FlowSearch:
		return "Session timed out, use /search to start over."
	case FlowAlertCreate:
		return "Session timed out, use /alert to start over."
	case FlowDelete:
		return "Delete timed out, use /delete to try again."
	case FlowChat:
		return "Chat timed out, use /chat to start again."
	case FlowNone:
	}
	return "Session timed out."
}

func overrideText(flow FlowKind) string {
	return fmt.Sprintf("Previous %s dialog cancelled.", strings.ReplaceAll(flow.String(), "_", " "))
}

func areasText() string {
	var b strings.Builder
	b.WriteString("*Popular London areas:*\n\n")
	for _, a := range hotels.Areas() {
		fmt.Fprintf(&b, "*%s* - %s\n", a.Name, a.Description)
	}
	b.WriteString("\nTap an area to search hotels there.")
	return b.String()
}

func searchResultsText(area hotels.Area, q hotels.SearchQuery, offers []hotels.Offer) string {
	nights := q.Nights()

	var b strings.Builder
	fmt.Fprintf(&b, "*Top hotels in %s*\n\n", area.Name)
	fmt.Fprintf(&b, "Dates: %s to %s (%s)\n", q.CheckIn.Format(hotels.DateLayout), q.CheckOut.Format(hotels.DateLayout), utils.Plural(nights, "night"))
	fmt.Fprintf(&b, "Guests: %d\n\n", q.Guests)

	for i, o := range offers {
		fmt.Fprintf(&b, "*%d. %s* %s\n", i+1, o.Name, utils.FormatStars(o.Stars))
		fmt.Fprintf(&b, "Price: %s total (%s/night)\n", utils.FormatMoney(o.TotalPrice, o.Currency), utils.FormatMoney(o.PricePerNight(nights), o.Currency))
		if o.Rating > 0 {
			fmt.Fprintf(&b, "Rating: %.1f/10\n", o.Rating)
		}
		location := o.Location
		if location == "" {
			location = area.Name
		}
		fmt.Fprintf(&b, "Location: %s\n\n", location)
	}

	b.WriteString("Use /alert to track price changes.")
	return b.String()
}

func verdictText(verdict string) string {
	return "*AI recommendation:*\n" + verdict
}

func alertCreatedText(alert *models.Alert) string {
	areaName := alert.Area
	if a, ok := hotels.LookupArea(alert.Area); ok {
		areaName = a.Name
	}

	var b strings.Builder
	b.WriteString("✅ *Price alert created!*\n\n")
	fmt.Fprintf(&b, "*Alert ID:* %d\n", alert.ID)
	fmt.Fprintf(&b, "*Area:* %s\n", areaName)
	fmt.Fprintf(&b, "*Dates:* %s to %s\n", alert.CheckIn, alert.CheckOut)
	fmt.Fprintf(&b, "*Guests:* %d\n", alert.Guests)
	fmt.Fprintf(&b, "*Max price:* %s/night\n", utils.FormatMoney(alert.MaxPrice, models.DefaultCurrency))
	fmt.Fprintf(&b, "*Hotel:* %s\n\n", alert.HotelLabel())
	b.WriteString("I'll message you when a price drops below your limit.")
	return b.String()
}

func alertDeletedText(alertID int64) string {
	return fmt.Sprintf("✅ Alert #%d deleted.", alertID)
}

// alertLine строка алерта для /myalerts, latest может быть nil
func alertLine(alert *models.Alert, latest *models.PriceObservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Alert #%d*\n", alert.ID)
	fmt.Fprintf(&b, "Area: %s\n", titleArea(alert.Area))
	fmt.Fprintf(&b, "Hotel: %s\n", alert.HotelLabel())
	fmt.Fprintf(&b, "Dates: %s to %s\n", alert.CheckIn, alert.CheckOut)
	fmt.Fprintf(&b, "Guests: %d\n", alert.Guests)
	fmt.Fprintf(&b, "Max price: %s/night\n", utils.FormatMoney(alert.MaxPrice, models.DefaultCurrency))
	if latest != nil {
		fmt.Fprintf(&b, "Last seen: %s/night (%s, %s)\n", utils.FormatMoney(latest.Price, latest.Currency), latest.Provider, latest.CheckedAt.UTC().Format("2006-01-02 15:04"))
	} else {
		b.WriteString("Last seen: not checked yet\n")
	}
	return b.String()
}

func titleArea(key string) string {
	if a, ok := hotels.LookupArea(key); ok {
		return a.Name
	}
	return key
}

// welcomeFor приветствие с именем и остатком дневного лимита; remaining < 0 если неизвестен
func welcomeFor(name string, remaining int) string {
	text := fmt.Sprintf("👋 Hi, %s!\n\n%s", name, welcomeText)
	if remaining >= 0 {
		text += fmt.Sprintf("\n\n_Messages left today: %d_", remaining)
	}
	return text
}

func alertMenuButtons() [][]Button {
	return [][]Button{
		{{Text: "🏨 Alert for Specific Hotel", Data: CallbackAlertHotel}},
		{{Text: "📍 Area Budget Alert", Data: CallbackAlertArea}},
		{{Text: "⬅️ Back to Menu", Data: CallbackMenu}},
	}
}

func menuButtons() [][]Button {
	return [][]Button{
		{{Text: "🔍 Search Hotels", Data: CallbackSearch}},
		{{Text: "🔔 Set Price Alert", Data: CallbackAlerts}, {Text: "📋 My Alerts", Data: CallbackMyAlerts}},
		{{Text: "🗺️ London Areas", Data: CallbackAreas}, {Text: "💬 AI Assistant", Data: CallbackChat}},
		{{Text: "❓ Help", Data: CallbackHelp}},
	}
}

// areaButtons кнопки районов по две в ряд
func areaButtons() [][]Button {
	all := hotels.Areas()
	rows := make([][]Button, 0, (len(all)+1)/2)
	for i := 0; i < len(all); i += 2 {
		row := []Button{{Text: all[i].Name, Data: CallbackAreaPrefix + all[i].Key}}
		if i+1 < len(all) {
			row = append(row, Button{Text: all[i+1].Name, Data: CallbackAreaPrefix + all[i+1].Key})
		}
		rows = append(rows, row)
	}
	return append(rows, []Button{{Text: "⬅️ Menu", Data: CallbackMenu}})
}

func stopChatButtons() [][]Button {
	return [][]Button{{{Text: "⏹ End chat", Data: CallbackStopChat}}}
}
