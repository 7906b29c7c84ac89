package lifecycle

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

func testActions() []models.CleanupAction {
	return []models.CleanupAction{
		{Action: models.ActionDelete, ResourceID: "vol-1", ResourceType: models.ResourceAWSEBS, Region: "us-east-1"},
		{Action: models.ActionDelete, ResourceID: "snap-1", ResourceType: models.ResourceAWSSnapshot, Region: "us-east-1"},
		{Action: models.ActionDeregister, ResourceID: "ami-1", ResourceType: models.ResourceAWSImage, Region: "us-east-1"},
		{Action: models.ActionDelete, ResourceID: "snap-2", ResourceType: models.ResourceAWSSnapshot, Region: "us-east-1"},
	}
}

func TestExecute_DryRunMakesNoCalls(t *testing.T) {
	fake := &fakeEC2{}
	e := NewExecutorWithFactory(factoryFor(map[string]*fakeEC2{"us-east-1": fake}))

	out := e.Execute(context.Background(), aws.Config{Region: "us-east-1"}, testActions(), true)
	require.Len(t, out, 4)
	assert.Empty(t, fake.calls)
	for _, a := range out {
		assert.False(t, a.Executed)
		assert.Empty(t, a.Error)
	}
	assert.Equal(t, "ami-1", out[0].ResourceID)
}

func TestExecute_OrdersImagesSnapshotsVolumes(t *testing.T) {
	fake := &fakeEC2{}
	e := NewExecutorWithFactory(factoryFor(map[string]*fakeEC2{"us-east-1": fake}))

	out := e.Execute(context.Background(), aws.Config{Region: "us-east-1"}, testActions(), false)
	assert.Equal(t, []string{"deregister ami-1", "delete snap-1", "delete snap-2", "delete vol-1"}, fake.calls)
	for _, a := range out {
		assert.True(t, a.Executed, a.ResourceID)
	}
}

func TestExecute_FailureContinues(t *testing.T) {
	fake := &fakeEC2{failIDs: map[string]bool{"snap-1": true}}
	e := NewExecutorWithFactory(factoryFor(map[string]*fakeEC2{"us-east-1": fake}))

	out := e.Execute(context.Background(), aws.Config{Region: "us-east-1"}, testActions(), false)
	require.Len(t, out, 4)
	assert.Len(t, fake.calls, 4)

	byID := make(map[string]models.CleanupAction)
	for _, a := range out {
		byID[a.ResourceID] = a
	}
	assert.False(t, byID["snap-1"].Executed)
	assert.Contains(t, byID["snap-1"].Error, "UnauthorizedOperation")
	assert.True(t, byID["snap-2"].Executed)
	assert.True(t, byID["vol-1"].Executed)
}

func TestExecute_CancelledContext(t *testing.T) {
	fake := &fakeEC2{}
	e := NewExecutorWithFactory(factoryFor(map[string]*fakeEC2{"us-east-1": fake}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := e.Execute(ctx, aws.Config{Region: "us-east-1"}, testActions(), false)
	assert.Empty(t, fake.calls)
	for _, a := range out {
		assert.False(t, a.Executed)
		assert.NotEmpty(t, a.Error)
	}
}
