package httpapi

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	pageContentType = "text/html; charset=utf-8"

	pageTemplateNameHome      = "home"
	pageTemplateNameAbout     = "about"
	pageTemplateNameServices  = "services"
	pageTemplateNamePortfolio = "portfolio"
	pageTemplateNameContact   = "contact"
)

type contactPageData struct {
	RecaptchaSiteKey string
}

// PageHandlers renders the marketing pages.
type PageHandlers struct {
	logger            *zap.Logger
	recaptchaSiteKey  string
	homeTemplate      *template.Template
	aboutTemplate     *template.Template
	servicesTemplate  *template.Template
	portfolioTemplate *template.Template
	contactTemplate   *template.Template
}

// NewPageHandlers constructs handlers for the marketing pages. The reCAPTCHA
// site key is injected into the contact page for the client script.
func NewPageHandlers(logger *zap.Logger, recaptchaSiteKey string) *PageHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageHandlers{
		logger:            logger,
		recaptchaSiteKey:  recaptchaSiteKey,
		homeTemplate:      template.Must(template.New(pageTemplateNameHome).Parse(homeTemplateHTML)),
		aboutTemplate:     template.Must(template.New(pageTemplateNameAbout).Parse(aboutTemplateHTML)),
		servicesTemplate:  template.Must(template.New(pageTemplateNameServices).Parse(servicesTemplateHTML)),
		portfolioTemplate: template.Must(template.New(pageTemplateNamePortfolio).Parse(portfolioTemplateHTML)),
		contactTemplate:   template.Must(template.New(pageTemplateNameContact).Parse(contactTemplateHTML)),
	}
}

// RenderHome writes the home page.
func (handlers *PageHandlers) RenderHome(context *gin.Context) {
	handlers.renderPage(context, handlers.homeTemplate, nil)
}

// RenderAbout writes the about page.
func (handlers *PageHandlers) RenderAbout(context *gin.Context) {
	handlers.renderPage(context, handlers.aboutTemplate, nil)
}

// RenderServices writes the services page.
func (handlers *PageHandlers) RenderServices(context *gin.Context) {
	handlers.renderPage(context, handlers.servicesTemplate, nil)
}

// RenderPortfolio writes the portfolio page.
func (handlers *PageHandlers) RenderPortfolio(context *gin.Context) {
	handlers.renderPage(context, handlers.portfolioTemplate, nil)
}

// RenderContact writes the contact page with the form script configured.
func (handlers *PageHandlers) RenderContact(context *gin.Context) {
	handlers.renderPage(context, handlers.contactTemplate, contactPageData{
		RecaptchaSiteKey: handlers.recaptchaSiteKey,
	})
}

func (handlers *PageHandlers) renderPage(context *gin.Context, pageTemplate *template.Template, templateData any) {
	context.Header("Content-Type", pageContentType)
	context.Status(http.StatusOK)
	if executeErr := pageTemplate.Execute(context.Writer, templateData); executeErr != nil {
		handlers.logger.Error("render_page", zap.Error(executeErr), zap.String("template", pageTemplate.Name()))
	}
}
