package mail

import (
	"html/template"
	"strings"
)

var verificationTmpl = template.Must(template.New("verify").Parse(`<html>
<body>
  <p>Hi {{.Username}},</p>
  <p>Welcome! Confirm your email address to activate your account:</p>
  <p><a href="{{.Link}}">Verify email</a></p>
  <p>The link expires in 30 minutes. If you did not sign up, ignore this message.</p>
</body>
</html>`))

var passwordResetTmpl = template.Must(template.New("reset").Parse(`<html>
<body>
  <p>Hi {{.Username}},</p>
  <p>We received a request to reset your password:</p>
  <p><a href="{{.Link}}">Reset password</a></p>
  <p>The link expires in 30 minutes. If you did not ask for this, ignore this message.</p>
</body>
</html>`))

type mailData struct {
	Username string
	Link     string
}

func renderVerification(username, link string) (string, error) {
	var b strings.Builder
	if err := verificationTmpl.Execute(&b, mailData{Username: username, Link: link}); err != nil {
		return "", err
	}
	return b.String(), nil
}

func renderPasswordReset(username, link string) (string, error) {
	var b strings.Builder
	if err := passwordResetTmpl.Execute(&b, mailData{Username: username, Link: link}); err != nil {
		return "", err
	}
	return b.String(), nil
}
