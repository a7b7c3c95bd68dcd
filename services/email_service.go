package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/titlescore/titlescore/models"
)

type EmailService interface {
	SendEmail(to, subject, body string) error
	GenerateEmailBody(templatePath string, data interface{}) (string, error)

	InviteMailer
}

type emailService struct {
	smtpHost string
	smtpPort string
	username string
	password string
	from     string
}

func NewEmailService(smtpHost, smtpPort, username, password, from string) EmailService {
	return &emailService{
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *emailService) SendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.username, s.password, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.from, to, subject, body,
	))

	addr := s.smtpHost + ":" + s.smtpPort
	if err := smtp.SendMail(addr, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func (s *emailService) GenerateEmailBody(templatePath string, data interface{}) (string, error) {
	tmpl, err := template.ParseFiles(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to parse email template %s: %w", templatePath, err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to render email template %s: %w", templatePath, err)
	}
	return body.String(), nil
}

func (s *emailService) SendMemberInviteEmail(to, contestName string, role models.Role, verifyLink string) error {
	body, err := s.GenerateEmailBody("templates/emails/member_invite_email.html", struct {
		ContestName string
		Role        string
		VerifyLink  string
	}{
		ContestName: contestName,
		Role:        string(role),
		VerifyLink:  verifyLink,
	})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("You have been invited to %s", contestName)
	return s.SendEmail(to, subject, body)
}
