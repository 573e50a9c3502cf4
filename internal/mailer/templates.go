package mailer

import _ "embed"

//go:embed templates/contact_email.tmpl
var contactEmailTemplateHTML string
