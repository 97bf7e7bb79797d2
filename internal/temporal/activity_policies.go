package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	ActivityPolicyExtractText             = "extract_text"
	ActivityPolicyExtractFieldsWithOpenAI = "extract_fields_with_openai"
	ActivityPolicyEvaluateSemaphore       = "evaluate_semaphore"
	ActivityPolicyMarkInReview            = "mark_in_review"
	ActivityPolicyApplyReview             = "apply_review"
)

type activityPolicy struct {
	StartToCloseTimeout time.Duration
	RetryPolicy         temporal.RetryPolicy
}

var storeRetry = temporal.RetryPolicy{
	InitialInterval:    1 * time.Second,
	BackoffCoefficient: 2,
	MaximumInterval:    10 * time.Second,
	MaximumAttempts:    3,
}

var activityPolicies = map[string]activityPolicy{
	ActivityPolicyExtractText: {
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         storeRetry,
	},
	// the activity retries the model call itself
	ActivityPolicyExtractFieldsWithOpenAI: {
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	},
	ActivityPolicyEvaluateSemaphore: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         storeRetry,
	},
	ActivityPolicyMarkInReview: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         storeRetry,
	},
	ActivityPolicyApplyReview: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         storeRetry,
	},
}

func ActivityOptionsFor(policyName string) (workflow.ActivityOptions, error) {
	policy, ok := activityPolicies[policyName]
	if !ok {
		return workflow.ActivityOptions{}, fmt.Errorf("unknown activity policy: %s", policyName)
	}

	retry := policy.RetryPolicy
	return workflow.ActivityOptions{
		StartToCloseTimeout: policy.StartToCloseTimeout,
		RetryPolicy:         &retry,
	}, nil
}

func mustActivityContext(ctx workflow.Context, policyName string) workflow.Context {
	ao, err := ActivityOptionsFor(policyName)
	if err != nil {
		panic(err)
	}
	return workflow.WithActivityOptions(ctx, ao)
}
