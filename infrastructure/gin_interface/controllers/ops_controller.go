package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

type OpsController interface {
	RegisterRoutes(g *gin.Engine)
}

type opsController struct {
	gatherer prometheus.Gatherer
}

func NewOpsController(gatherer prometheus.Gatherer) OpsController {
	return &opsController{gatherer: gatherer}
}

func (o *opsController) RegisterRoutes(g *gin.Engine) {
	g.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	g.GET("/metrics", gin.WrapH(promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{})))
}
