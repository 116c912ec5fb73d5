package device

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicemesh-io/devicecore/blueprint"
	"github.com/devicemesh-io/devicecore/core"
)

type fakeChildOps struct {
	name      string
	started   []string
	stopped   []string
	startErr  error
	stopLog   *[]string
}

func (f *fakeChildOps) Name() string { return f.name }
func (f *fakeChildOps) TriggerStart(ctx context.Context) error {
	f.started = append(f.started, f.name)
	return f.startErr
}
func (f *fakeChildOps) TriggerStop(ctx context.Context) error {
	f.stopped = append(f.stopped, f.name)
	if f.stopLog != nil {
		*f.stopLog = append(*f.stopLog, f.name)
	}
	return nil
}

func TestChildSupervisorStartsOnlyLinkedChildren(t *testing.T) {
	var order []string
	sup := NewChildSupervisor(core.NopLogger(), nil, nil)

	linked := &fakeChildOps{name: "linked"}
	independent := &fakeChildOps{name: "independent"}

	sup.AddChild("linked", linked, blueprint.LocalChildConfig{LifecycleMode: blueprint.LifecycleModeLinked})
	sup.AddChild("independent", independent, blueprint.LocalChildConfig{LifecycleMode: blueprint.LifecycleModeIndependent})

	require.NoError(t, sup.StartLinkedChildren(context.Background()))
	order = append(order, linked.started...)
	order = append(order, independent.started...)

	assert.Equal(t, []string{"linked"}, order)
}

func TestChildSupervisorStopsInReverseOrder(t *testing.T) {
	sup := NewChildSupervisor(core.NopLogger(), nil, nil)
	var stopOrder []string
	a := &fakeChildOps{name: "a", stopLog: &stopOrder}
	b := &fakeChildOps{name: "b", stopLog: &stopOrder}
	sup.AddChild("a", a, blueprint.LocalChildConfig{LifecycleMode: blueprint.LifecycleModeLinked})
	sup.AddChild("b", b, blueprint.LocalChildConfig{LifecycleMode: blueprint.LifecycleModeLinked})

	errs := sup.StopLinkedChildren(context.Background())
	assert.Empty(t, errs)
	assert.Equal(t, []string{"b"}, b.stopped)
	assert.Equal(t, []string{"a"}, a.stopped)
	assert.Equal(t, []string{"b", "a"}, stopOrder)
}

func TestChildFailureStopParentHandler(t *testing.T) {
	stopped := false
	sup := NewChildSupervisor(core.NopLogger(), func(ctx context.Context) { stopped = true }, nil)
	child := &fakeChildOps{name: "pump"}
	sup.AddChild("pump", child, blueprint.LocalChildConfig{
		LifecycleMode: blueprint.LifecycleModeLinked,
		ErrorHandler:  blueprint.ChildErrorStopParent,
	})

	sup.HandleChildFailure(context.Background(), "pump")
	assert.True(t, stopped)
}

func TestChildFailurePropagateHandler(t *testing.T) {
	var propagatedFrom string
	sup := NewChildSupervisor(core.NopLogger(), nil, func(ctx context.Context, childName string) { propagatedFrom = childName })
	child := &fakeChildOps{name: "sensor"}
	sup.AddChild("sensor", child, blueprint.LocalChildConfig{
		LifecycleMode: blueprint.LifecycleModeLinked,
		ErrorHandler:  blueprint.ChildErrorPropagate,
	})

	sup.HandleChildFailure(context.Background(), "sensor")
	assert.Equal(t, "sensor", propagatedFrom)
}

func TestChildFailureIgnoreHandlerIsNoop(t *testing.T) {
	sup := NewChildSupervisor(core.NopLogger(), nil, nil)
	child := &fakeChildOps{name: "x"}
	sup.AddChild("x", child, blueprint.LocalChildConfig{ErrorHandler: blueprint.ChildErrorIgnore})
	sup.HandleChildFailure(context.Background(), "x") // should not panic
}

func TestStartLinkedChildrenAbortsOnFirstFailure(t *testing.T) {
	sup := NewChildSupervisor(core.NopLogger(), nil, nil)
	failing := &fakeChildOps{name: "failing", startErr: errors.New("boom")}
	sup.AddChild("failing", failing, blueprint.LocalChildConfig{LifecycleMode: blueprint.LifecycleModeLinked})

	err := sup.StartLinkedChildren(context.Background())
	require.Error(t, err)
}
