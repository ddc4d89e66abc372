// Package api exposes the optional read-only status surface for a run.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/passportdog/Apify-Local-Radar/api/handler"
	"github.com/passportdog/Apify-Local-Radar/config"
)

// RunSnapshotter provides the live run summary. orchestrator.Runner
// implements it.
type RunSnapshotter = handler.RunSnapshotter

// NewRouter builds the gin engine with all routes registered. sessions
// reports the number of checked-out browser sessions; nil is allowed.
func NewRouter(run RunSnapshotter, sessions func() int, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(ginMode(cfg.Server.Mode))

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", handler.GetHealth(startTime))
	r.GET("/api/v1/run", handler.GetRun(run, sessions))

	return r
}

func ginMode(mode string) string {
	switch mode {
	case "debug":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}
