package mail

import (
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/opsmind/auth/internal/domain"
)

const (
	SubjectVerification = "Verify Your OpsMind Account"
	SubjectLogin        = "Your OpsMind Login OTP"
)

type otpView struct {
	Code        string
	PurposeText string
	Minutes     int
}

var htmlBody = htmltemplate.Must(htmltemplate.New("otp.html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1 style="background-color: #2563eb; color: white; padding: 20px; text-align: center;">OpsMind ITSM</h1>
    <h2>Your One-Time Password</h2>
    <p>Use the following OTP to {{.PurposeText}}:</p>
    <div style="background-color: #2563eb; color: white; font-size: 32px; letter-spacing: 8px; padding: 20px; text-align: center; border-radius: 8px;">{{.Code}}</div>
    <p>This OTP is valid for <strong>{{.Minutes}} minutes</strong>.</p>
    <p style="color: #dc2626;">Do not share this code with anyone. OpsMind will never ask for your OTP.</p>
    <p style="color: #666; font-size: 12px;">This is an automated message from OpsMind ITSM. If you didn't request this OTP, please ignore this email.</p>
  </div>
</body>
</html>
`))

var textBody = texttemplate.Must(texttemplate.New("otp.txt").Parse(`OpsMind ITSM - Your One-Time Password

Use the following OTP to {{.PurposeText}}: {{.Code}}

This OTP is valid for {{.Minutes}} minutes.

Do not share this code with anyone. OpsMind will never ask for your OTP.
If you didn't request this OTP, please ignore this email.
`))

func Subject(p domain.Purpose) string {
	if p == domain.PurposeVerification {
		return SubjectVerification
	}
	return SubjectLogin
}

func purposeText(p domain.Purpose) string {
	if p == domain.PurposeVerification {
		return "verify your account"
	}
	return "complete your login"
}

// RenderOTP builds a multipart/alternative message with a text body and an
// HTML alternative. Addresses are parsed, so header injection is rejected.
func RenderOTP(from, to, code string, p domain.Purpose, validFor time.Duration) (*gomail.Msg, error) {
	v := otpView{Code: code, PurposeText: purposeText(p), Minutes: int(validFor / time.Minute)}

	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	m.Subject(Subject(p))
	m.SetDate()
	m.SetMessageID()

	if err := m.SetBodyTextTemplate(textBody, v); err != nil {
		return nil, fmt.Errorf("render text: %w", err)
	}
	if err := m.AddAlternativeHTMLTemplate(htmlBody, v); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return m, nil
}
