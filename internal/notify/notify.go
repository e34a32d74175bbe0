// Package notify turns intake events into low-stock e-mail alerts.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"text/template"
	"time"

	"github.com/baymax-health/apiserver/config"
	"github.com/baymax-health/apiserver/internal/metrics"
	"github.com/baymax-health/apiserver/internal/mq"
	"github.com/baymax-health/apiserver/types"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Alert is the content of one low-stock e-mail.
type Alert struct {
	To           string
	FirstName    string
	MedicineName string
	Quantity     int
	DaysOfStock  int
}

// Mailer delivers alerts.
type Mailer interface {
	Send(ctx context.Context, alert Alert) error
}

// UserLookup resolves the recipient of an alert.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (types.User, error)
}

const emailPlain = `Hi {{.FirstName}},

You have {{.Quantity}} pill(s) of {{.MedicineName}} left, which covers
{{if eq .DaysOfStock 0}}less than a day{{else}}{{.DaysOfStock}} more day(s){{end}} at your current dosage.

Please arrange a refill with your pharmacy.
`

var emailPlainTemplate = template.Must(template.New("email").Parse(emailPlain))

// SendGridMailer sends alerts through the SendGrid v3 API.
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridMailer(apiKey, fromAddress string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("Baymax", fromAddress),
	}
}

func (m *SendGridMailer) Send(ctx context.Context, alert Alert) error {
	message := mail.NewV3Mail()
	message.From = m.from
	message.Subject = fmt.Sprintf("Running low on %s", alert.MedicineName)

	personalization := mail.NewPersonalization()
	personalization.To = append(personalization.To, mail.NewEmail(alert.FirstName, alert.To))
	message.Personalizations = append(message.Personalizations, personalization)

	textContent := &bytes.Buffer{}
	if err := emailPlainTemplate.Execute(textContent, alert); err != nil {
		return fmt.Errorf("while templating plain-text email content: %w", err)
	}
	message.Content = append(message.Content, mail.NewContent("text/plain", textContent.String()))

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("while sending mail through SendGrid: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2XX response while sending mail through SendGrid: %d %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer only logs alerts. It is used when no SendGrid key is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, alert Alert) error {
	slog.InfoContext(ctx, "Low-stock alert (mail disabled)",
		slog.String("to", alert.To),
		slog.String("medicine", alert.MedicineName),
		slog.Int("quantity", alert.Quantity))
	return nil
}

// NewMailer returns a SendGrid mailer when an API key is configured and a
// LogMailer otherwise.
func NewMailer(ctx context.Context, cfg config.MailConfig) Mailer {
	if cfg.SendGridAPIKey == "" {
		slog.WarnContext(ctx, "SENDGRID_API_KEY not set, alerts will only be logged")
		return LogMailer{}
	}
	return NewSendGridMailer(cfg.SendGridAPIKey, cfg.FromEmail)
}

// Notifier consumes intake events and alerts users whose remaining stock
// covers fewer than Threshold days. A medicine is alerted at most once per
// calendar day.
type Notifier struct {
	users     UserLookup
	mailer    Mailer
	threshold int
	metrics   *metrics.Metrics
	loc       *time.Location

	mu      sync.Mutex
	alerted map[string]string
}

func New(users UserLookup, mailer Mailer, threshold int, m *metrics.Metrics, loc *time.Location) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{
		users:     users,
		mailer:    mailer,
		threshold: threshold,
		metrics:   m,
		loc:       loc,
		alerted:   make(map[string]string),
	}
}

// Run subscribes to topic until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context, queue *mq.MQ, topic string) error {
	slog.InfoContext(ctx, "Notifier listening", slog.String("topic", topic), slog.Int("threshold-days", n.threshold))
	return queue.Subscribe(ctx, topic, n.Handle)
}

// Handle processes one intake event message.
func (n *Notifier) Handle(ctx context.Context, msg mq.Message) error {
	var ev types.IntakeEvent
	if err := msg.Decode(&ev); err != nil {
		// A malformed event will never succeed; drop it.
		slog.ErrorContext(ctx, "Dropping malformed intake event", slog.Any("err", err))
		return nil
	}
	if !n.lowStock(ev) {
		return nil
	}

	day := ev.OccurredAt.In(n.loc).Format("2006-01-02")
	n.mu.Lock()
	if n.alerted[ev.MedicineID] == day {
		n.mu.Unlock()
		return nil
	}
	n.mu.Unlock()

	user, err := n.users.GetByID(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("while retrieving user %s: %w", ev.UserID, err)
	}

	alert := Alert{
		To:           user.Email,
		FirstName:    user.FirstName,
		MedicineName: ev.MedicineName,
		Quantity:     ev.Quantity,
		DaysOfStock:  ev.DaysOfStock,
	}
	slog.InfoContext(ctx, "Sending low-stock alert", slog.String("medicine", ev.MedicineID), slog.String("user", ev.UserID))
	if err := n.mailer.Send(ctx, alert); err != nil {
		n.count("error")
		return fmt.Errorf("while sending low-stock alert: %w", err)
	}
	n.count("sent")

	n.mu.Lock()
	n.alerted[ev.MedicineID] = day
	n.mu.Unlock()
	return nil
}

func (n *Notifier) lowStock(ev types.IntakeEvent) bool {
	return ev.Taken && ev.DailyPills > 0 && ev.DaysOfStock < n.threshold
}

func (n *Notifier) count(result string) {
	if n.metrics != nil {
		n.metrics.Alerts.WithLabelValues(result).Inc()
	}
}
