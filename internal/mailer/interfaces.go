package mailer

import "github.com/verimart/verimart/pkg/config"

// Service delivers one-time verification codes out of band. The recipient is
// the account's registered address; the core only ever hands over the
// plaintext code, never stores it.
type Service interface {
	SendVerificationCode(to, code string) error
}

// New picks the delivery backend from configuration: dev mode logs the code,
// a MailerSend key selects the API client, otherwise plain SMTP.
func New(cfg config.EmailConfig) Service {
	if cfg.DevMode {
		return NewDevMailer()
	}
	if cfg.MailerSendKey != "" {
		return NewMailerSend(cfg.MailerSendKey, cfg.SMTPFrom)
	}
	return NewSMTPMailer(cfg)
}
