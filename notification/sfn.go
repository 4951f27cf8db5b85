package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/sfn/types"
	"github.com/gmLucario/pet-info-sub000/config"
	"github.com/gmLucario/pet-info-sub000/models"
)

// SchedulePayload is the execution input handed to the external scheduler.
// The scheduler holds it until the fire time, runs the liveness check, sends
// the message, and for recurring reminders computes the next occurrence and
// calls the reschedule endpoint.
type SchedulePayload struct {
	When         string               `json:"when"`
	Reminder     ReminderPayload      `json:"reminder"`
	ReminderID   int64                `json:"reminder_id"`
	UserTimezone string               `json:"user_timezone"`
	RepeatConfig *models.RepeatConfig `json:"repeat_config,omitempty"`
}

type ReminderPayload struct {
	Phone string `json:"phone"`
	Body  string `json:"body"`
}

// SchedulerClient is the external scheduler surface the dispatcher depends
// on. SfnSchedulerClient implements it against AWS Step Functions.
type SchedulerClient interface {
	StartReminderExecution(ctx context.Context, reminderID int64, payload SchedulePayload) (string, error)
	StopReminderExecutions(ctx context.Context, reminderID int64) error
}

type SfnSchedulerClient struct{}

func NewSfnSchedulerClient() SfnSchedulerClient {
	return SfnSchedulerClient{}
}

// executionName makes every start unique while keeping the reminder id as a
// greppable prefix, so cancellation can find all executions of one reminder.
func executionName(reminderID int64) string {
	return fmt.Sprintf("reminder-%d-%d", reminderID, time.Now().UnixMilli())
}

func executionNamePrefix(reminderID int64) string {
	return fmt.Sprintf("reminder-%d-", reminderID)
}

// StartReminderExecution starts one state machine execution and returns its
// arn, which becomes the reminder's execution correlation id.
func (SfnSchedulerClient) StartReminderExecution(ctx context.Context, reminderID int64, payload SchedulePayload) (string, error) {
	client, err := config.GetSfnClient(ctx)
	if err != nil {
		return "", fmt.Errorf("sfn client: %w", err)
	}

	input, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal schedule payload: %w", err)
	}

	out, err := client.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(config.NotificationStateMachineArn()),
		Name:            aws.String(executionName(reminderID)),
		Input:           aws.String(string(input)),
	})
	if err != nil {
		return "", fmt.Errorf("start execution for reminder %d: %w", reminderID, err)
	}

	return aws.ToString(out.ExecutionArn), nil
}

// StopReminderExecutions stops every running execution whose name carries the
// reminder's prefix. Individual stop failures are logged and skipped; the
// caller treats the whole operation as best effort anyway.
func (SfnSchedulerClient) StopReminderExecutions(ctx context.Context, reminderID int64) error {
	logger := config.GetLogger()

	client, err := config.GetSfnClient(ctx)
	if err != nil {
		return fmt.Errorf("sfn client: %w", err)
	}

	prefix := executionNamePrefix(reminderID)
	paginator := sfn.NewListExecutionsPaginator(client, &sfn.ListExecutionsInput{
		StateMachineArn: aws.String(config.NotificationStateMachineArn()),
		StatusFilter:    types.ExecutionStatusRunning,
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list executions for reminder %d: %w", reminderID, err)
		}
		for _, execution := range page.Executions {
			if !strings.HasPrefix(aws.ToString(execution.Name), prefix) {
				continue
			}
			logger.WithField("executionArn", aws.ToString(execution.ExecutionArn)).
				Info(fmt.Sprintf("stopping execution for reminder %d", reminderID))
			if _, err := client.StopExecution(ctx, &sfn.StopExecutionInput{
				ExecutionArn: execution.ExecutionArn,
			}); err != nil {
				config.LogError(logger, moduleName, "StopReminderExecutions", "stop execution",
					map[string]any{"reminderId": reminderID, "executionArn": aws.ToString(execution.ExecutionArn)}, err)
			}
		}
	}

	return nil
}
