// Package alert implements frost alert evaluation and delivery. The worker
// predicts tomorrow's minimum temperature at the primary station and, when
// the forecast crosses an alert threshold, pushes a Spanish-language message
// to the configured Telegram chats.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"frostwatch/internal/types"
)

// Alert thresholds, in degrees Celsius. A forecast at or below the frost
// threshold produces a frost alert; at or below the warning threshold, a
// preventive notice.
const (
	FrostThresholdC   = 0.0
	WarningThresholdC = 2.0
)

// Kind distinguishes the two alert severities.
type Kind string

const (
	KindFrost      Kind = "frost"
	KindPreventive Kind = "preventive"
)

// Alert is one actionable notification derived from a station prediction.
type Alert struct {
	Kind       Kind
	Station    types.Station
	TargetDate time.Time
	Prediction types.StationPrediction
}

// Evaluate applies the alert policy to a prediction. It returns nil when the
// forecast does not warrant a notification.
func Evaluate(station types.Station, pred types.StationPrediction) *Alert {
	var kind Kind
	switch {
	case pred.Temperature <= FrostThresholdC:
		kind = KindFrost
	case pred.Temperature <= WarningThresholdC:
		kind = KindPreventive
	default:
		return nil
	}

	return &Alert{
		Kind:       kind,
		Station:    station,
		TargetDate: pred.TargetDate,
		Prediction: pred,
	}
}

// Message renders the alert as the Spanish-language text delivered to chats.
func (a *Alert) Message() string {
	date := FormatDateES(a.TargetDate)

	if a.Kind == KindFrost {
		return fmt.Sprintf(
			"🥶 ALERTA DE HELADA\n\n"+
				"Se pronostica una temperatura mínima de %.1f °C para el %s en la estación %s.\n"+
				"Probabilidad de helada: %.0f%%.\n"+
				"Nivel de riesgo: %s.\n\n"+
				"Tome medidas de protección para sus cultivos.",
			a.Prediction.Temperature, date, a.Station.Name,
			a.Prediction.FrostProbability*100, a.Prediction.RiskLevel,
		)
	}

	return fmt.Sprintf(
		"⚠️ AVISO PREVENTIVO\n\n"+
			"Se pronostica una temperatura mínima de %.1f °C para el %s en la estación %s.\n"+
			"Probabilidad de helada: %.0f%%.\n"+
			"Nivel de riesgo: %s.\n\n"+
			"Manténgase atento a las próximas actualizaciones.",
		a.Prediction.Temperature, date, a.Station.Name,
		a.Prediction.FrostProbability*100, a.Prediction.RiskLevel,
	)
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// FormatDateES renders a date in Spanish long form, e.g. "3 de enero de 2026".
func FormatDateES(t time.Time) string {
	t = t.In(types.BogotaZone)
	return fmt.Sprintf("%d de %s de %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}

// PredictionService is the subset of the prediction engine the notifier
// needs. Defined locally to keep the worker decoupled and testable.
type PredictionService interface {
	PredictStation(ctx context.Context, stationCode string, targetDate time.Time) (*types.StationPrediction, error)
	PrimaryStation() types.Station
}

// Sender delivers a rendered message to one chat.
type Sender interface {
	Send(ctx context.Context, chatID, text string) error
}

// Notifier evaluates the alert policy on a schedule and fans deliveries out
// to the configured chats.
type Notifier struct {
	service PredictionService
	sender  Sender
	chatIDs []string
	clock   types.Clock
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. A nil clock defaults to the real clock.
func NewNotifier(service PredictionService, sender Sender, chatIDs []string, clock types.Clock, logger *slog.Logger) (*Notifier, error) {
	if service == nil {
		return nil, fmt.Errorf("notifier requires a prediction service")
	}
	if sender == nil {
		return nil, fmt.Errorf("notifier requires a sender")
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		service: service,
		sender:  sender,
		chatIDs: chatIDs,
		clock:   clock,
		logger:  logger,
	}, nil
}

// CheckOnce runs a single evaluation cycle: predict tomorrow at the primary
// station, apply the policy, and deliver if warranted. Delivery failures for
// individual chats are logged and do not block the remaining chats; the
// first failure is returned after all chats have been attempted.
func (n *Notifier) CheckOnce(ctx context.Context) error {
	station := n.service.PrimaryStation()
	targetDate := types.Tomorrow(n.clock)

	pred, err := n.service.PredictStation(ctx, station.Code, targetDate)
	if err != nil {
		return fmt.Errorf("predicting at primary station %s: %w", station.Code, err)
	}

	a := Evaluate(station, *pred)
	if a == nil {
		n.logger.Info("no alert warranted",
			"station_code", station.Code,
			"target_date", targetDate.Format("2006-01-02"),
			"temperature_c", pred.Temperature,
		)
		return nil
	}

	n.logger.Info("alert triggered",
		"kind", string(a.Kind),
		"station_code", station.Code,
		"target_date", targetDate.Format("2006-01-02"),
		"temperature_c", pred.Temperature,
		"frost_probability", pred.FrostProbability,
	)

	msg := a.Message()
	var firstErr error
	for _, chatID := range n.chatIDs {
		if err := n.sender.Send(ctx, chatID, msg); err != nil {
			n.logger.Error("alert delivery failed", "chat_id", chatID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		n.logger.Info("alert delivered", "chat_id", chatID)
	}
	return firstErr
}

// Run evaluates immediately and then on every tick of the given interval
// until the context is canceled.
func (n *Notifier) Run(ctx context.Context, interval time.Duration) error {
	if err := n.CheckOnce(ctx); err != nil {
		n.logger.Error("alert check failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := n.CheckOnce(ctx); err != nil {
				n.logger.Error("alert check failed", "error", err)
			}
		}
	}
}
