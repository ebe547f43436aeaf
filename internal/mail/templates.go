package mail

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

// ResetData feeds the reset and welcome templates.
type ResetData struct {
	Name      string
	Login     string
	Link      string
	ExpiresAt time.Time
}

// ChangedData feeds the password-changed template.
type ChangedData struct {
	Name      string
	Login     string
	ChangedAt time.Time
}

var templates = template.Must(template.New("mail").Funcs(template.FuncMap{
	"datetime": func(t time.Time) string { return t.Format("02/01/2006 15:04") },
}).Parse(`
{{define "reset_subject"}}Redefinição de senha{{end}}
{{define "reset_body"}}Olá {{.Name}},

Recebemos uma solicitação para redefinir a senha do usuário {{.Login}}.
Acesse o link abaixo até {{datetime .ExpiresAt}} para cadastrar uma nova senha:

{{.Link}}

Se você não fez esta solicitação, ignore este e-mail.
{{end}}
{{define "welcome_subject"}}Bem-vindo! Defina sua senha de acesso{{end}}
{{define "welcome_body"}}Olá {{.Name}},

Seu cadastro foi concluído. Seu usuário de acesso é {{.Login}}.
Defina sua senha até {{datetime .ExpiresAt}} pelo link:

{{.Link}}
{{end}}
{{define "changed_subject"}}Senha alterada{{end}}
{{define "changed_body"}}Olá {{.Name}},

A senha do usuário {{.Login}} foi alterada em {{datetime .ChangedAt}}.
Se você não reconhece esta alteração, solicite uma nova redefinição imediatamente.
{{end}}
`))

func render(prefix, to string, data any) (Message, error) {
	var subject, body bytes.Buffer
	if err := templates.ExecuteTemplate(&subject, prefix+"_subject", data); err != nil {
		return Message{}, fmt.Errorf("mail: render %s subject: %w", prefix, err)
	}
	if err := templates.ExecuteTemplate(&body, prefix+"_body", data); err != nil {
		return Message{}, fmt.Errorf("mail: render %s body: %w", prefix, err)
	}
	return Message{To: to, Subject: subject.String(), Body: body.String()}, nil
}

// PasswordReset renders the reset-link email.
func PasswordReset(to string, data ResetData) (Message, error) {
	return render("reset", to, data)
}

// Welcome renders the first-access email carrying the password-definition link.
func Welcome(to string, data ResetData) (Message, error) {
	return render("welcome", to, data)
}

// PasswordChanged renders the confirmation sent after a successful change.
func PasswordChanged(to string, data ChangedData) (Message, error) {
	return render("changed", to, data)
}
