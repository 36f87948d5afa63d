package mailer

import (
	"fmt"

	"medimate-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendVerificationLink(toEmail, displayName, link string) error
	SendPasswordChanged(toEmail, displayName string) error
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	dialer      sender
	senderEmail string
	senderName  string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string, log logger.ILogger) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: senderEmail,
		senderName:  senderName,
		logger:      log,
	}
}

func greeting(displayName string) string {
	if displayName == "" {
		return "Hello,"
	}
	return fmt.Sprintf("Hello %s,", displayName)
}

func (s *emailService) newMessage(to, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return m
}

func (s *emailService) verificationMessage(toEmail, displayName, link string) *gomail.Message {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Welcome to MediMate!</h2>
			<p>%s</p>
			<p>Please confirm your email address to start chatting:</p>
			<a href="%s" style="background-color: #0F766E; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Verify Email</a>
			<p>Or copy this link:</p>
			<p>%s</p>
			<p>If you didn't create an account, please ignore this email.</p>
		</div>
	`, greeting(displayName), link, link)
	return s.newMessage(toEmail, "Verify your MediMate email", body)
}

func (s *emailService) SendVerificationLink(toEmail, displayName, link string) error {
	if err := s.dialer.DialAndSend(s.verificationMessage(toEmail, displayName, link)); err != nil {
		s.logger.Error("Mailer", "Failed to send verification email", map[string]interface{}{
			"to":    toEmail,
			"error": err,
		})
		return err
	}
	s.logger.Info("Mailer", "Verification email sent", map[string]interface{}{"to": toEmail})
	return nil
}

func (s *emailService) SendPasswordChanged(toEmail, displayName string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Your password was changed</h2>
			<p>%s</p>
			<p>The password for your MediMate account was just changed. If this wasn't you, reset it immediately.</p>
		</div>
	`, greeting(displayName))

	if err := s.dialer.DialAndSend(s.newMessage(toEmail, "Your MediMate password was changed", body)); err != nil {
		s.logger.Error("Mailer", "Failed to send password notice", map[string]interface{}{
			"to":    toEmail,
			"error": err,
		})
		return err
	}
	return nil
}

// LogOnlyService stands in when SMTP is not configured. Links go to the
// log so local sign-ups can still be verified.
type LogOnlyService struct {
	Logger logger.ILogger
}

func (s LogOnlyService) SendVerificationLink(toEmail, displayName, link string) error {
	s.Logger.Warn("Mailer", "SMTP disabled, verification link not mailed", map[string]interface{}{
		"to":   toEmail,
		"link": link,
	})
	return nil
}

func (s LogOnlyService) SendPasswordChanged(toEmail, displayName string) error {
	return nil
}
