// Command worker delivers queued email.
package main

import (
	"log"

	"atomvideo/internal/cache"
	"atomvideo/internal/config"
	"atomvideo/internal/mail"
	"atomvideo/internal/middleware"
	"atomvideo/internal/tasks"

	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts, err := cache.ParseOptions(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}

	sender, err := mail.NewSender(cfg)
	if err != nil {
		log.Fatalf("Mail sender unavailable: %v", err)
	}

	srv := asynq.NewServer(
		tasks.RedisConnOpt(opts),
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				tasks.QueueDefault: 3,
				tasks.QueueLow:     1,
			},
			RetryDelayFunc: tasks.RetryDelay,
		},
	)

	mux := asynq.NewServeMux()
	tasks.NewHandler(sender).Register(mux)

	middleware.Logger.Info("worker starting", "redis", opts.Addr, "env", cfg.Env)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run worker: %v", err)
	}
}
