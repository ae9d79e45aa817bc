package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	httpapi "github.com/roomcraft/roomcraft-backend/internal/api/http"
	"github.com/roomcraft/roomcraft-backend/internal/api/http/middleware"
	redesignhttp "github.com/roomcraft/roomcraft-backend/internal/redesign/http"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/service"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	CORSOrigins []string
	Store       httpapi.Pinger
	Gateway     *service.Gateway
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(dep.CORSOrigins)))
	r.Use(middleware.RequestIDMiddleware())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Store)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	redesignhttp.New(dep.Gateway).Register(api)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
