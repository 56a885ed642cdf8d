package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xeno035/todo-list-sync-client/client"
	"github.com/xeno035/todo-list-sync-client/config"
	"github.com/xeno035/todo-list-sync-client/logging"
	"github.com/xeno035/todo-list-sync-client/push"
	"github.com/xeno035/todo-list-sync-client/session"
	"github.com/xeno035/todo-list-sync-client/store"
)

func main() {
	cfg := config.Load(".env")
	logging.InitLogger(cfg.LogFile)
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting task sync client...")

	if cfg.SessionToken == "" {
		logging.Logger.Fatal("Event ID: SESSION_MISSING, Description: SESSION_TOKEN is not set; sign in first")
	}

	identity, err := session.NewFromToken(cfg.SessionToken, cfg.JWTSecret)
	if err != nil {
		logging.Logger.Fatalf("Event ID: SESSION_INVALID, Description: Failed to establish session: %v", err)
	}
	principal, _ := identity.Current()
	logging.Logger.Infof("Event ID: SESSION_ESTABLISHED, Description: Signed in as %s", principal.Email)

	api := client.NewRemoteClient(cfg.APIBaseURL, identity, nil)
	taskStore := store.NewTaskStore(api, identity)

	unsubscribe := taskStore.Subscribe(func() {
		stats := taskStore.Stats(time.Now())
		logging.Logger.Infof("Event ID: STORE_CHANGED, Description: Tasks: %d total, %d completed, %d pending, %d overdue",
			stats.Total, stats.Completed, stats.Pending, stats.Overdue)
	})
	defer unsubscribe()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := taskStore.Refresh(refreshCtx); err != nil {
		// Not fatal: the periodic refresh and the push channel will catch up.
		logging.Logger.Errorf("Event ID: INITIAL_REFRESH_FAILED, Description: %v", err)
	}
	cancel()

	channel, err := push.Connect(cfg.NATSURL, identity)
	if err != nil {
		logging.Logger.Fatalf("Event ID: PUSH_CONNECT_FAILED, Description: Failed to open push channel: %v", err)
	}
	defer channel.Close()

	ticker := time.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Logger.Info("Event ID: SERVICE_STOP, Description: Shutting down task sync client")
			return
		case event, ok := <-channel.Events():
			if !ok {
				logging.Logger.Info("Event ID: PUSH_STREAM_ENDED, Description: Push channel closed, stopping")
				return
			}
			taskStore.ApplyRemoteEvent(event)
		case <-ticker.C:
			// Push delivery is not exhaustive; the periodic full sync is the
			// correctness backstop.
			refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := taskStore.Refresh(refreshCtx); err != nil {
				logging.Logger.Errorf("Event ID: REFRESH_FAILED, Description: %v", err)
			}
			cancel()
		}
	}
}
