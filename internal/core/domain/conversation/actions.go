package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"london-hotel-monitor-bot/internal/core/domain/hotels"
	"london-hotel-monitor-bot/internal/infrastructure/persistence/postgres/models"
	"london-hotel-monitor-bot/pkg/logger"
)

const defaultInterests = "general sightseeing"

// complete выполняет действие завершенного диалога; сессия уже освобождена
func (m *Manager) complete(ctx context.Context, s *Session) ([]Reply, error) {
	switch s.flow {
	case FlowSearch:
		return m.completeSearch(ctx, s.answers)
	case FlowAlertCreate:
		return m.completeAlert(ctx, s.key.userID, s.answers)
	case FlowDelete:
		return m.completeDelete(ctx, s.key.userID, s.answers)
	case FlowChat, FlowNone:
	}
	return nil, nil
}

func (m *Manager) completeSearch(ctx context.Context, a *Answers) ([]Reply, error) {
	area := a.area()
	q := hotels.SearchQuery{
		Area:     area.Key,
		CheckIn:  a.date(StepCheckIn),
		CheckOut: a.date(StepCheckOut),
		Guests:   a.count(StepGuests),
		Rooms:    1,
	}

	offers := m.deps.Searcher.Search(ctx, q)
	if len(offers) == 0 {
		return []Reply{textReply(noHotelsText)}, ErrCollaboratorUnavailable
	}
	if len(offers) > hotels.TopOffers {
		offers = offers[:hotels.TopOffers]
	}

	replies := []Reply{textReply(searchResultsText(area, q, offers))}
	verdict := strings.TrimSpace(m.deps.Assistant.AnalyzeOffer(ctx, offers[0]))
	if m.deps.Assistant.IsApology(verdict) {
		return replies, ErrCollaboratorUnavailable
	}
	if verdict != "" {
		replies = append(replies, textReply(verdictText(verdict)))
	}
	return replies, nil
}

func (m *Manager) completeAlert(ctx context.Context, userID int64, a *Answers) ([]Reply, error) {
	alert := &models.Alert{
		UserID:   userID,
		Area:     a.area().Key,
		CheckIn:  a.date(StepCheckIn).Format(models.DateLayout),
		CheckOut: a.date(StepCheckOut).Format(models.DateLayout),
		Guests:   a.count(StepGuests),
		Rooms:    1,
		MaxPrice: a.price(StepMaxPrice),
		IsActive: true,
	}
	if name := a.text(StepHotelName); name != "" {
		alert.HotelName = sql.NullString{String: name, Valid: true}
	}

	id, err := m.deps.Alerts.CreateAlert(ctx, alert)
	if err != nil {
		logger.Error("❌ [Conversation] create alert for user %d: %v", userID, err)
		return []Reply{textReply(genericErrorText)}, fmt.Errorf("create alert: %w", err)
	}
	alert.ID = id

	logger.Info("🔔 [Conversation] alert #%d created for user %d (%s, max %.2f)", id, userID, alert.Area, alert.MaxPrice)
	return []Reply{{
		Text:    alertCreatedText(alert),
		Buttons: [][]Button{{{Text: "📋 My Alerts", Data: CallbackMyAlerts}}},
	}}, nil
}

func (m *Manager) completeDelete(ctx context.Context, userID int64, a *Answers) ([]Reply, error) {
	alertID := a.id(StepAlertID)

	deleted, err := m.deps.Alerts.SoftDelete(ctx, alertID, userID)
	if err != nil {
		logger.Error("❌ [Conversation] delete alert #%d for user %d: %v", alertID, userID, err)
		return []Reply{textReply(genericErrorText)}, fmt.Errorf("delete alert: %w", err)
	}
	if !deleted {
		return []Reply{textReply(alertNotFoundText)}, ErrNotFound
	}
	return []Reply{textReply(alertDeletedText(alertID))}, nil
}

func (m *Manager) handleStart(ctx context.Context, in Inbound) Outcome {
	user, err := m.deps.Users.GetOrCreate(ctx, in.UserID, in.Username, in.FirstName)
	if err != nil {
		logger.Warn("⚠️ [Conversation] register user %d: %v", in.UserID, err)
		user = &models.User{UserID: in.UserID, Username: in.Username, FirstName: in.FirstName}
	}

	remaining := -1
	if left, err := m.deps.Limiter.Remaining(ctx, in.UserID); err != nil {
		logger.Warn("⚠️ [Conversation] remaining messages for user %d: %v", in.UserID, err)
	} else {
		remaining = left
	}
	return reply(Reply{Text: welcomeFor(user.DisplayName(), remaining), Buttons: menuButtons()})
}

func (m *Manager) handleMyAlerts(ctx context.Context, userID int64) Outcome {
	alerts, err := m.deps.Alerts.ListActiveAlerts(ctx, userID)
	if err != nil {
		logger.Error("❌ [Conversation] list alerts for user %d: %v", userID, err)
		return Outcome{Kind: OutcomeFailed, Replies: []Reply{textReply(genericErrorText)}, Err: fmt.Errorf("list alerts: %w", err)}
	}
	if len(alerts) == 0 {
		return reply(textReply(noAlertsText))
	}

	var b strings.Builder
	b.WriteString("🔔 *Your active price alerts:*\n\n")
	for _, alert := range alerts {
		b.WriteString(alertLine(alert, m.latestObservation(ctx, alert.ID)))
		b.WriteString("\n")
	}
	b.WriteString("Use /delete to remove an alert.")
	return reply(textReply(b.String()))
}

func (m *Manager) latestObservation(ctx context.Context, alertID int64) *models.PriceObservation {
	obs, err := m.deps.Alerts.LatestObservation(ctx, alertID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Warn("⚠️ [Conversation] latest price for alert #%d: %v", alertID, err)
		}
		return nil
	}
	return obs
}

func (m *Manager) handleSuggest(ctx context.Context, in Inbound, interests string) Outcome {
	ok, err := m.deps.Limiter.Admit(ctx, in.UserID, in.Username, in.FirstName)
	if err != nil {
		logger.Error("❌ [Conversation] admit user %d: %v", in.UserID, err)
		return Outcome{Kind: OutcomeFailed, Replies: []Reply{textReply(genericErrorText)}, Err: fmt.Errorf("admit: %w", err)}
	}
	if !ok {
		m.rateLimited.Add(1)
		return Outcome{Kind: OutcomeRateLimited, Replies: []Reply{textReply(rateLimitedText)}, Err: ErrRateLimited}
	}

	if strings.TrimSpace(interests) == "" {
		interests = defaultInterests
	}
	suggestion := m.deps.Assistant.SuggestAreas(ctx, interests)
	return reply(Reply{Text: "*Areas for you*\n\n" + suggestion, Buttons: areaButtons()})
}
