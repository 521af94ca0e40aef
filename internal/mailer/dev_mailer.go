package mailer

import (
	"github.com/verimart/verimart/pkg/logger"
)

// DevMailer prints codes to the log instead of sending anything. Development
// and test use only.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendVerificationCode(to, code string) error {
	logger.Info("[DEV MAIL] verification code",
		"to", to,
		"code", code,
	)
	return nil
}
