package blueprint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/devicemesh-io/devicecore/address"
)

// yamlBlueprint is the on-disk bootstrap shape decoded by LoadYAMLFile.
// It is a convenience format, not the wire format used between hub and
// peers (§10, §12): operators and tests use it to seed a Registry
// without constructing DeviceBlueprint values by hand.
type yamlBlueprint struct {
	ID              string                        `yaml:"id"`
	Version         string                        `yaml:"version"`
	SchemaVersion   int                           `yaml:"schemaVersion"`
	InheritsFrom    string                        `yaml:"inheritsFrom"`
	StateMigratorID string                        `yaml:"stateMigratorId"`
	Features        []yamlFeature                 `yaml:"features"`
	Properties      []yamlProperty                `yaml:"properties"`
	Actions         []yamlAction                  `yaml:"actions"`
	Streams         []yamlStream                  `yaml:"streams"`
	Alarms          []yamlAlarm                    `yaml:"alarms"`
	Children        map[string]yamlChildComponent  `yaml:"children"`
	PeerConnections map[string]yamlPeerBlueprint   `yaml:"peerConnections"`
}

type yamlFeature struct {
	Kind   string         `yaml:"kind"`
	Config map[string]any `yaml:"config"`
}

type yamlProperty struct {
	Name        string   `yaml:"name"`
	ValueType   string   `yaml:"valueType"`
	Readable    bool     `yaml:"readable"`
	Mutable     bool     `yaml:"mutable"`
	Persistent  bool     `yaml:"persistent"`
	Transient   bool     `yaml:"transient"`
	Permissions []string `yaml:"permissions"`
}

type yamlAction struct {
	Name        string   `yaml:"name"`
	InputType   string   `yaml:"inputType"`
	OutputType  string   `yaml:"outputType"`
	Permissions []string `yaml:"permissions"`
}

type yamlStream struct {
	Name      string `yaml:"name"`
	ValueType string `yaml:"valueType"`
}

type yamlAlarm struct {
	Name              string `yaml:"name"`
	PredicateProperty string `yaml:"predicateProperty"`
	RetainTimeSeconds int    `yaml:"retainTimeSeconds"`
}

type yamlChildComponent struct {
	BlueprintID   string `yaml:"blueprintId"`
	LifecycleMode string `yaml:"lifecycleMode"`
	ErrorHandler  string `yaml:"errorHandler"`
	Peer          string `yaml:"peer"`
	RemoteName    string `yaml:"remoteName"`
}

type yamlPeerBlueprint struct {
	DriverID  string   `yaml:"driverId"`
	Addresses []string `yaml:"addresses"`
	ServiceID string   `yaml:"serviceId"`
}

// LoadYAMLFile decodes a single blueprint document from path and
// registers it against reg.
func LoadYAMLFile(reg *Registry, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading blueprint file %s: %w", path, err)
	}
	bp, err := decodeYAMLBlueprint(raw)
	if err != nil {
		return fmt.Errorf("decoding blueprint file %s: %w", path, err)
	}
	return reg.Register(bp)
}

// LoadYAMLDir decodes and registers every *.yaml/*.yml file under dir,
// in lexical filename order so that a parent blueprint listed before
// its children (by naming convention) registers first.
func LoadYAMLDir(reg *Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading blueprint directory %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if err := LoadYAMLFile(reg, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func decodeYAMLBlueprint(raw []byte) (*DeviceBlueprint, error) {
	var y yamlBlueprint
	if err := yaml.Unmarshal(raw, &y); err != nil {
		return nil, err
	}

	bp := &DeviceBlueprint{
		ID:              address.BlueprintId{ID: y.ID, Version: y.Version},
		SchemaVersion:   y.SchemaVersion,
		StateMigratorID: y.StateMigratorID,
		Children:        map[string]ChildComponentConfig{},
		PeerConnections: map[string]PeerBlueprint{},
	}
	if y.InheritsFrom != "" {
		parent := parseBlueprintRef(y.InheritsFrom)
		bp.InheritsFrom = &parent
	}

	for _, f := range y.Features {
		bp.Features = append(bp.Features, Feature{Kind: FeatureKind(f.Kind), Config: f.Config})
	}
	for _, p := range y.Properties {
		bp.Properties = append(bp.Properties, PropertyDescriptor{
			Name: p.Name, ValueType: ValueType(p.ValueType), Readable: p.Readable,
			Mutable: p.Mutable, Persistent: p.Persistent, Transient: p.Transient,
			Permissions: p.Permissions,
		})
	}
	for _, a := range y.Actions {
		bp.Actions = append(bp.Actions, ActionDescriptor{
			Name: a.Name, InputType: ValueType(a.InputType), OutputType: ValueType(a.OutputType),
			Permissions: a.Permissions,
		})
	}
	for _, s := range y.Streams {
		bp.Streams = append(bp.Streams, StreamDescriptor{Name: s.Name, ValueType: ValueType(s.ValueType)})
	}
	for _, al := range y.Alarms {
		bp.Alarms = append(bp.Alarms, AlarmDescriptor{
			Name: al.Name, PredicateProperty: al.PredicateProperty, RetainTimeSeconds: al.RetainTimeSeconds,
		})
	}

	for name, c := range y.Children {
		if c.Peer != "" {
			bp.Children[name] = ChildComponentConfig{Remote: &RemoteChildConfig{
				PeerName: c.Peer, RemoteDeviceName: c.RemoteName, BlueprintID: parseBlueprintRef(c.BlueprintID),
			}}
			continue
		}
		bp.Children[name] = ChildComponentConfig{Local: &LocalChildConfig{
			BlueprintID:   parseBlueprintRef(c.BlueprintID),
			LifecycleMode: LifecycleMode(c.LifecycleMode),
			ErrorHandler:  ChildDeviceErrorHandler(c.ErrorHandler),
		}}
	}

	for name, p := range y.PeerConnections {
		switch {
		case p.ServiceID != "":
			bp.PeerConnections[name] = PeerBlueprint{DriverID: p.DriverID, AddressSource: DiscoveredAddressSource(p.ServiceID)}
		default:
			bp.PeerConnections[name] = PeerBlueprint{DriverID: p.DriverID, AddressSource: StaticAddressSource(p.Addresses...)}
		}
	}

	return bp, nil
}

// parseBlueprintRef parses "id@version" or a bare "id" (empty version,
// resolved to the newest registered version at use time).
func parseBlueprintRef(ref string) address.BlueprintId {
	id, version, _ := strings.Cut(ref, "@")
	return address.BlueprintId{ID: id, Version: version}
}
