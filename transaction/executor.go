package transaction

import (
	"context"

	"github.com/devicemesh-io/devicecore/address"
)

// LeafExecutor is the narrow surface the coordinator needs from a hub
// to carry out plan leaves (§4.3: "Leaf nodes ... translate to hub
// operations on the referenced address"). A hub.Hub satisfies this.
type LeafExecutor interface {
	Attach(ctx context.Context, addr address.Address, blueprintID address.BlueprintId, config map[string]any) error
	Detach(ctx context.Context, addr address.Address) error
	Start(ctx context.Context, addr address.Address) error
	Stop(ctx context.Context, addr address.Address) error
	WriteProperty(ctx context.Context, addr address.Address, propertyName string, value any) error
}

func (c *Coordinator) runLeaf(ctx context.Context, spec ActionSpec) error {
	switch spec.Kind {
	case ActionAttach:
		return c.executor.Attach(ctx, spec.Address, spec.BlueprintID, spec.Config)
	case ActionDetach:
		return c.executor.Detach(ctx, spec.Address)
	case ActionStart:
		return c.executor.Start(ctx, spec.Address)
	case ActionStop:
		return c.executor.Stop(ctx, spec.Address)
	case ActionWriteProperty:
		return c.executor.WriteProperty(ctx, spec.Address, spec.PropertyName, spec.Value)
	default:
		return nil
	}
}
