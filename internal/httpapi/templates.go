package httpapi

import _ "embed"

//go:embed templates/home.tmpl
var homeTemplateHTML string

//go:embed templates/about.tmpl
var aboutTemplateHTML string

//go:embed templates/services.tmpl
var servicesTemplateHTML string

//go:embed templates/portfolio.tmpl
var portfolioTemplateHTML string

//go:embed templates/contact.tmpl
var contactTemplateHTML string
