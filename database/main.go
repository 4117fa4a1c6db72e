package database

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var c *redis.Client

func initDatabase() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0, // use default DB
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	res := rdb.Ping(ctx)
	if res.Err() != nil {
		log.Fatal().Err(res.Err()).Msg("could not connect to redis")
	}

	c = rdb
}

func Database() *redis.Client {
	if c == nil {
		initDatabase()
	}
	return c
}
