package config

import (
	"context"
	"os"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
)

var (
	sfnClient   *sfn.Client
	sfnClientMu sync.Mutex
)

// GetSfnClient returns the Step Functions client, initializing it lazily
// from the default AWS credential chain.
func GetSfnClient(ctx context.Context) (*sfn.Client, error) {
	sfnClientMu.Lock()
	defer sfnClientMu.Unlock()

	if sfnClient != nil {
		return sfnClient, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	sfnClient = sfn.NewFromConfig(cfg)
	return sfnClient, nil
}

// NotificationStateMachineArn is the Step Functions state machine that owns
// the reminder timers.
func NotificationStateMachineArn() string {
	return os.Getenv("AWS_SFN_ARN_NOTIFICATIONS")
}

// InternalAPISecret authenticates scheduler callbacks (reschedule, liveness).
// Empty means the internal surface is closed.
func InternalAPISecret() string {
	return os.Getenv("INTERNAL_API_SECRET")
}
