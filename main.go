package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ashfame/gutenberg-collaborative-editing/database"
)

func newRouter(s *server) *gin.Engine {
	r := gin.Default()

	v1 := r.Group("/api/v1")
	v1.POST("/documents", s.handleCreateDocument)
	v1.GET("/documents/:id", s.handleGetDocument)
	v1.POST("/documents/:id/content", s.handlePushContent)
	v1.POST("/documents/:id/caret", s.handlePushCaret)
	v1.POST("/documents/:id/poll", s.handlePoll)
	v1.POST("/documents/:id/lock", s.handleAcquireLock)
	v1.DELETE("/documents/:id/lock", s.handleReleaseLock)

	return r
}

func main() {
	s := newServer(NewRedisStore(database.Database()), defaultConfig())
	r := newRouter(s)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8080"
	}
	err := r.Run(addr)
	if err != nil {
		log.Fatal().Err(err).Msg("could not start server")
	}
}
