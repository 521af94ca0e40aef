package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSend(apiKey, fromEmail string) *MailerSendClient {
	return &MailerSendClient{
		client: mailersend.NewMailersend(apiKey),
		from: mailersend.From{
			Name:  "VeriMart",
			Email: fromEmail,
		},
	}
}

func (m *MailerSendClient) SendVerificationCode(to, code string) error {
	subject := "Your VeriMart verification code"
	html := fmt.Sprintf(`
		<h2>Account verification</h2>
		<p>Your verification code is: <strong style="font-size: 24px;">%s</strong></p>
		<p>This code expires in 5 minutes.</p>
		<p>If you did not request verification, you can ignore this email.</p>
	`, code)
	text := fmt.Sprintf("Your verification code is: %s\n\nIt expires in 5 minutes.", code)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Email: to}})
	msg.SetSubject(subject)
	msg.SetHTML(html)
	msg.SetText(text)

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
