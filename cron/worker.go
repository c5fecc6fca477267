package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"metisconnect/config"
	"metisconnect/models"
	"metisconnect/services/notification"
	"metisconnect/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ReminderRedisOpt is the asynq connection for the reminder queue.
func ReminderRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderDB,
	}
}

// InitReminderWorker runs the async worker in background until ctx is done.
func InitReminderWorker(ctx context.Context, notifSvc notification.NotificationService, logger *zap.Logger) {
	srv := asynq.NewServer(
		ReminderRedisOpt(),
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendReminder, HandleReminderTask(notifSvc, logger))

	go func() {
		logger.Info("Starting reminder worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Start(mux)
			if err == nil {
				break
			}
			logger.Error("Reminder worker failed to start",
				zap.Int("attempt", attempts), zap.Int("max_attempts", maxAttempts), zap.Error(err))
			if attempts == maxAttempts {
				logger.Error("Giving up on reminder worker; reminders will not be delivered")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempts*2) * time.Second):
			}
		}

		<-ctx.Done()
		srv.Shutdown()
		logger.Info("Reminder worker stopped")
	}()
}

// HandleReminderTask decodes a reminder and hands it to the notifier.
func HandleReminderTask(notifSvc notification.NotificationService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("Invalid reminder payload", zap.Error(err))
			return fmt.Errorf("decode reminder: %v: %w", err, asynq.SkipRetry)
		}

		if err := notifSvc.SendAppointmentReminder(ctx, p); err != nil {
			logger.Error("Failed to send reminder",
				zap.String("appointment_id", p.AppointmentID.String()), zap.Error(err))
			return err
		}
		return nil
	}
}
