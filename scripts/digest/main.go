// Command digest enqueues an on-demand reminder digest run on the job
// queue. Useful when the cron schedule has not fired yet.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/vetoapp23/vetoapp/internal/app"
	"github.com/vetoapp23/vetoapp/jobs"
)

func main() {
	window := flag.Int("window", 0, "upcoming window in days (0 uses the configured default)")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	days := cfg.ReminderWindowDays
	if *window > 0 {
		days = *window
	}

	client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer client.Close()

	info, err := client.EnqueueReminderDigest(context.Background(), jobs.ReminderDigestPayload{WindowDays: days})
	if err != nil {
		log.Fatalf("enqueue digest: %v", err)
	}
	fmt.Printf("enqueued %s on queue %s\n", info.ID, info.Queue)
}
