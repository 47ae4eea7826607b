package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/redmonkez12/fitness-api/internal/config"
	"github.com/redmonkez12/fitness-api/internal/logging"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	smtpHost         string
	smtpPort         string
	smtpUser         string
	smtpPassword     string
	fromEmail        string
	resetPasswordURL string
	sendMail         sendMailFunc
}

func NewService(cfg config.EmailConfig) *Service {
	return &Service{
		smtpHost:         cfg.SMTPHost,
		smtpPort:         cfg.SMTPPort,
		smtpUser:         cfg.SMTPUser,
		smtpPassword:     cfg.SMTPPassword,
		fromEmail:        cfg.SMTPUser,
		resetPasswordURL: strings.TrimRight(cfg.ResetPasswordURL, "/"),
		sendMail:         smtp.SendMail,
	}
}

// ResetLink is the address the reset mail points at
func (s *Service) ResetLink(token string) string {
	return s.resetPasswordURL + "/" + token
}

// SendPasswordResetEmail sends a password reset link to the user.
// This method is designed to be called in a goroutine.
// Without an SMTP host the link is only logged, which is what development uses.
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	logger := logging.GetLoggerFromContext(ctx)

	resetLink := s.ResetLink(token)

	if s.smtpHost == "" {
		logger.Info("smtp not configured, password reset link not mailed", "email", toEmail, "link", resetLink)
		return nil
	}

	body, err := renderPasswordResetEmail(resetLink)
	if err != nil {
		logger.Error("failed to render password reset email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Reset your password", body); err != nil {
		logger.Error("failed to send password reset email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("password reset email sent", "email", toEmail)
	return nil
}

func (s *Service) sendEmail(to, subject, body string) error {
	var auth smtp.Auth
	if s.smtpUser != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return s.sendMail(addr, auth, s.fromEmail, []string{to}, msg)
}

var passwordResetTemplate = template.Must(template.New("passwordReset").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .header {
            background-color: #16A34A;
            color: white;
            padding: 20px;
            text-align: center;
            border-radius: 5px 5px 0 0;
        }
        .content {
            background-color: #f9f9f9;
            padding: 30px;
            border-radius: 0 0 5px 5px;
        }
        .button {
            display: inline-block;
            background-color: #16A34A;
            color: white !important;
            padding: 12px 30px;
            text-decoration: none;
            border-radius: 5px;
            margin: 20px 0;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>Fitness</h1>
    </div>
    <div class="content">
        <h2>Change your password</h2>
        <p>We received a request to change the password of your account. Use the button below to choose a new one.</p>

        <a href="{{.ResetLink}}" class="button" style="color: white !important;">Change password</a>

        <p>Or copy and paste this link into your browser:</p>
        <p style="word-break: break-all; color: #16A34A;">{{.ResetLink}}</p>

        <p style="margin-top: 30px;">If you did not ask for this, ignore this email. Your password stays the same.</p>
    </div>
</body>
</html>
`))

func renderPasswordResetEmail(resetLink string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		ResetLink string
	}{
		ResetLink: resetLink,
	}

	if err := passwordResetTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
