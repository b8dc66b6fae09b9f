package mailer

import (
	"context"
	"fmt"
	htmltpl "html/template"
	"sync"
	texttpl "text/template"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/config"
	"github.com/stemsi/proctored-mcq/internal/model"
	"github.com/wneessen/go-mail"
)

var (
	otpHTML = htmltpl.Must(htmltpl.New("otp_html").Parse(`<!DOCTYPE html>
<html><body style="font-family: sans-serif">
<h2>Your login code</h2>
<p style="font-size: 32px; font-weight: bold; letter-spacing: 6px">{{.Code}}</p>
<p>The code expires in <strong>{{.Minutes}} minutes</strong> and can be used once.</p>
<p>If you did not request this code, ignore this email.</p>
</body></html>`))

	otpText = texttpl.Must(texttpl.New("otp_text").Parse(`Your login code: {{.Code}}
Expires in: {{.Minutes}} minutes

If you did not request this code, ignore this email.
`))

	completionHTML = htmltpl.Must(htmltpl.New("completion_html").Parse(`<!DOCTYPE html>
<html><body style="font-family: sans-serif">
<h2>Your test has been submitted</h2>
<p>You answered <strong>{{.Correct}}</strong> of <strong>{{.Total}}</strong> questions correctly.</p>
{{if .Forced}}<p>The test was ended automatically ({{.Reason}}).</p>{{end}}
</body></html>`))

	completionText = texttpl.Must(texttpl.New("completion_text").Parse(`Your test has been submitted.
Correct answers: {{.Correct}} / {{.Total}}
{{if .Forced}}The test was ended automatically ({{.Reason}}).
{{end}}`))
)

// Mailer sends transactional email over SMTP.
type Mailer struct {
	mu     sync.Mutex
	client *mail.Client
	from   string
	log    zerolog.Logger
}

// New creates a Mailer from SMTP settings. No connection is opened until the first send.
func New(cfg config.SMTPConfig, log zerolog.Logger) (*Mailer, error) {
	log = log.With().Str("component", "mailer").Logger()
	if cfg.Host == "" {
		log.Warn().Msg("SMTP_HOST not set, mail will be logged instead of sent")
		return &Mailer{from: cfg.From, log: log}, nil
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(10 * time.Second),
	}
	if cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &Mailer{
		client: client,
		from:   cfg.From,
		log:    log,
	}, nil
}

func (m *Mailer) send(ctx context.Context, to, subject string, html *htmltpl.Template, text *texttpl.Template, data any) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	msg.Subject(subject)
	if err := msg.SetBodyHTMLTemplate(html, data); err != nil {
		return fmt.Errorf("html body: %w", err)
	}
	if err := msg.AddAlternativeTextTemplate(text, data); err != nil {
		return fmt.Errorf("text body: %w", err)
	}

	if m.client == nil {
		m.log.Info().Str("to", to).Str("subject", subject).Interface("data", data).Msg("Mail not sent (no SMTP host)")
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	m.log.Debug().Str("to", to).Str("subject", subject).Msg("Mail sent")
	return nil
}

// SendOTP delivers a login passcode.
func (m *Mailer) SendOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	data := struct {
		Code    string
		Minutes int
	}{Code: code, Minutes: int(ttl / time.Minute)}
	return m.send(ctx, email, "Your test login code", otpHTML, otpText, data)
}

// SendCompletion tells a candidate their test was recorded.
func (m *Mailer) SendCompletion(ctx context.Context, n model.CompletionNotice) error {
	data := struct {
		Correct int
		Total   int
		Reason  model.CompletionReason
		Forced  bool
	}{
		Correct: n.Correct,
		Total:   n.Total,
		Reason:  n.Reason,
		Forced:  n.Reason != model.CompletionReasonCandidate,
	}
	return m.send(ctx, n.Email, "Your test has been submitted", completionHTML, completionText, data)
}
