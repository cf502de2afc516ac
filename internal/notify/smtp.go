package notify

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/HerbHall/hakagen/pkg/detection"
)

// SMTP e-mails the CSV artifact as an attachment.
type SMTP struct {
	cfg     SMTPConfig
	to      string
	timeout time.Duration
	logger  *zap.Logger
	send    func(ctx context.Context, msg *mail.Msg) error
}

// NewSMTP returns an e-mail notifier sending to recipient.
func NewSMTP(cfg SMTPConfig, recipient string, timeout time.Duration, logger *zap.Logger) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, detection.NewValidationError("notify.smtp.host", "required for smtp notifier")
	}
	if recipient == "" {
		return nil, detection.NewValidationError("notify.target", "recipient address required for smtp notifier")
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.AttachmentName == "" {
		cfg.AttachmentName = "output.csv"
	}
	s := &SMTP{cfg: cfg, to: recipient, timeout: timeout, logger: logger}
	s.send = s.dialAndSend
	return s, nil
}

// Message builds the e-mail for c.
func (s *SMTP) Message(c Completion) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(s.to); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(s.cfg.Subject)
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Attached is the generated CSV file.\n\nRun: %s\nDate: %s\nWindow: %s\nEvents: %d\n",
		c.RunID, c.TargetDate.Format("2006-01-02"), c.Window, c.Events))
	if err := msg.AttachReader(s.cfg.AttachmentName, bytes.NewReader(c.Artifact.Body)); err != nil {
		return nil, fmt.Errorf("attach csv: %w", err)
	}
	return msg, nil
}

func (s *SMTP) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if s.timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.timeout))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", s.to, err)
	}
	return nil
}

func (s *SMTP) Notify(ctx context.Context, c Completion) error {
	msg, err := s.Message(c)
	if err != nil {
		return err
	}
	if err := s.send(ctx, msg); err != nil {
		return err
	}
	s.logger.Info("mail sent", zap.String("to", s.to), zap.String("run_id", c.RunID))
	return nil
}

func (s *SMTP) Close() error { return nil }
