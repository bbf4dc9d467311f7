package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/mecacaraudio/scoring-engine/config"
	"github.com/mecacaraudio/scoring-engine/models"
)

type EmailService struct {
	cfg       *config.Config
	templates *template.Template
	logger    *slog.Logger
}

func NewEmailService(cfg *config.Config, logger *slog.Logger) (*EmailService, error) {
	templates, err := template.ParseGlob("templates/emails/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing email templates: %w", err)
	}
	return &EmailService{cfg: cfg, templates: templates, logger: logger}, nil
}

type qualificationEmailData struct {
	CompetitorName string
	ClassName      string
	TotalPoints    int
}

type invitationEmailData struct {
	CompetitorName string
	ClassName      string
	RedemptionURL  string
}

// SendQualificationNotice emails a competitor that they met the season
// threshold in a class.
func (s *EmailService) SendQualificationNotice(ctx context.Context, q *models.QualificationRecord) error {
	body, err := s.render("qualification_notice.html", qualificationEmailData{
		CompetitorName: q.CompetitorName,
		ClassName:      q.ClassName,
		TotalPoints:    q.TotalPoints,
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("You have qualified for World Finals in %s", q.ClassName)
	return s.send(ctx, s.recipientFor(q), subject, body)
}

// SendInvitation emails the one-time redemption link for a World Finals
// invitation.
func (s *EmailService) SendInvitation(ctx context.Context, q *models.QualificationRecord, token string) error {
	body, err := s.render("invitation.html", invitationEmailData{
		CompetitorName: q.CompetitorName,
		ClassName:      q.ClassName,
		RedemptionURL:  fmt.Sprintf("%s/invitations/redeem?token=%s", s.cfg.PublicURL, token),
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Your World Finals invitation for %s", q.ClassName)
	return s.send(ctx, s.recipientFor(q), subject, body)
}

// recipientFor derives the mailbox for a record. Competitor contact data
// lives in the membership system; mail is relayed through its alias domain
// keyed by meca id.
func (s *EmailService) recipientFor(q *models.QualificationRecord) string {
	return fmt.Sprintf("%s@%s", q.MecaID, s.cfg.SMTPMemberDomain)
}

func (s *EmailService) render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

func (s *EmailService) send(ctx context.Context, to, subject, htmlBody string) error {
	if s.cfg.SMTPHost == "" {
		return ErrEmailNotConfigured
	}

	msg := bytes.Buffer{}
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.SMTPFrom)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := net.JoinHostPort(s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)

	var err error
	if s.cfg.SMTPPort == "465" {
		err = s.sendImplicitTLS(ctx, addr, auth, to, msg.Bytes())
	} else {
		err = smtp.SendMail(addr, auth, s.cfg.SMTPFrom, []string{to}, msg.Bytes())
	}
	if err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	s.logger.Debug("email sent", "to", to, "subject", subject)
	return nil
}

// sendImplicitTLS handles port 465, where the TLS handshake precedes SMTP
// instead of being negotiated via STARTTLS.
func (s *EmailService) sendImplicitTLS(ctx context.Context, addr string, auth smtp.Auth, to string, msg []byte) error {
	dialer := &tls.Dialer{Config: &tls.Config{ServerName: s.cfg.SMTPHost}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return err
	}
	if err = client.Mail(s.cfg.SMTPFrom); err != nil {
		return err
	}
	if err = client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg); err != nil {
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
