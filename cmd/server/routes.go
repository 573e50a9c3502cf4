package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LushakDataSystems/contact_svc/internal/httpapi"
)

func registerRoutes(router *gin.Engine, pageHandlers *httpapi.PageHandlers, contactHandlers *httpapi.ContactHandlers) {
	router.GET(homeRoutePath, pageHandlers.RenderHome)
	router.GET(aboutRoutePath, pageHandlers.RenderAbout)
	router.GET(servicesRoutePath, pageHandlers.RenderServices)
	router.GET(portfolioRoutePath, pageHandlers.RenderPortfolio)
	router.GET(contactPageRoutePath, pageHandlers.RenderContact)

	router.POST(contactRoutePath, contactHandlers.SubmitContact)

	router.GET(healthRoutePath, func(ginContext *gin.Context) {
		ginContext.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
