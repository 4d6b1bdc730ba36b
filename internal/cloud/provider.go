package cloud

import (
	"fmt"

	cerrors "cloudkit/internal/errors"
)

// ProviderKind identifies the backend a Session talks to.
type ProviderKind int

const (
	// Local is the container engine on this host.
	Local ProviderKind = iota + 1
	// HostedRegistry is a registry reached through the engine with username/password login.
	HostedRegistry
	// CLIRegistry is a cloud registry reachable only through its command-line tool.
	CLIRegistry
)

var providerNames = map[ProviderKind]string{
	Local:          "local",
	HostedRegistry: "hosted-registry",
	CLIRegistry:    "cli-registry",
}

// ProviderKinds returns every supported provider kind in declaration order.
func ProviderKinds() []ProviderKind {
	return []ProviderKind{Local, HostedRegistry, CLIRegistry}
}

func (k ProviderKind) String() string {
	if name, ok := providerNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ProviderKind(%d)", int(k))
}

func (k ProviderKind) Valid() bool {
	_, ok := capabilities[k]
	return ok
}

// ProviderKindNames lists the accepted provider kind strings.
func ProviderKindNames() []string {
	names := make([]string, 0, len(providerNames))
	for _, k := range ProviderKinds() {
		names = append(names, k.String())
	}
	return names
}

// ParseProviderKind maps a configuration string onto a ProviderKind.
func ParseProviderKind(s string) (ProviderKind, error) {
	for _, k := range ProviderKinds() {
		if providerNames[k] == s {
			return k, nil
		}
	}
	return 0, cerrors.NewInvalidTypeError(s, ProviderKindNames())
}

// Operation is a control operation a provider may support.
type Operation int

const (
	OpLogin Operation = iota
	OpExec
	OpListContainers
	OpGetContainer
	OpStopContainer
	OpGetImage
	OpListTags
	OpPull
	OpPush
	OpTag
	OpRun

	numOperations
)

var operationNames = [numOperations]string{
	OpLogin:          "login",
	OpExec:           "exec",
	OpListContainers: "list-containers",
	OpGetContainer:   "get-container",
	OpStopContainer:  "stop-container",
	OpGetImage:       "get-image",
	OpListTags:       "list-tags",
	OpPull:           "pull",
	OpPush:           "push",
	OpTag:            "tag",
	OpRun:            "run",
}

// Operations returns every operation known to the capability table.
func Operations() []Operation {
	ops := make([]Operation, numOperations)
	for i := range ops {
		ops[i] = Operation(i)
	}
	return ops
}

func (o Operation) String() string {
	if o >= 0 && o < numOperations {
		return operationNames[o]
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// Realization says how a provider carries out an operation.
type Realization int

const (
	realizationUnset Realization = iota
	// Unsupported operations fail with ErrInvalidOperation before any call is made.
	Unsupported
	// Native operations call the Runtime Client.
	Native
	// NativeAuthenticated operations call the Runtime Client and log in with the stored credentials.
	NativeAuthenticated
	// CLI operations run the cloud command-line tool.
	CLI
	// Detached operations complete without a backing call and leave no native reference.
	Detached
)

func (r Realization) String() string {
	switch r {
	case Unsupported:
		return "unsupported"
	case Native:
		return "native"
	case NativeAuthenticated:
		return "native+credentials"
	case CLI:
		return "cli"
	case Detached:
		return "detached"
	default:
		return "unset"
	}
}

// capabilities must name every operation for every provider kind; an omitted
// cell stays realizationUnset and is rejected at package initialization.
var capabilities = map[ProviderKind][numOperations]Realization{
	Local: {
		OpLogin:          Native,
		OpExec:           Unsupported,
		OpListContainers: Native,
		OpGetContainer:   Native,
		OpStopContainer:  Native,
		OpGetImage:       Native,
		OpListTags:       Native,
		OpPull:           Native,
		OpPush:           Native,
		OpTag:            Native,
		OpRun:            Native,
	},
	HostedRegistry: {
		OpLogin:          NativeAuthenticated,
		OpExec:           Unsupported,
		OpListContainers: Native,
		OpGetContainer:   Native,
		OpStopContainer:  Native,
		OpGetImage:       Native,
		OpListTags:       Native,
		OpPull:           Native,
		OpPush:           Native,
		OpTag:            Native,
		OpRun:            Native,
	},
	CLIRegistry: {
		OpLogin:          CLI,
		OpExec:           CLI,
		OpListContainers: Unsupported,
		OpGetContainer:   Unsupported,
		OpStopContainer:  Unsupported,
		OpGetImage:       Detached,
		OpListTags:       CLI,
		OpPull:           Unsupported,
		OpPush:           Unsupported,
		OpTag:            CLI,
		OpRun:            Unsupported,
	},
}

func init() {
	if err := validateCapabilities(); err != nil {
		panic(err)
	}
}

// validateCapabilities checks the table is total over ProviderKinds x Operations.
func validateCapabilities() error {
	if len(capabilities) != len(ProviderKinds()) {
		return fmt.Errorf("capability table has %d provider kinds, want %d", len(capabilities), len(ProviderKinds()))
	}
	for _, op := range Operations() {
		if operationNames[op] == "" {
			return fmt.Errorf("operation %d has no name", int(op))
		}
	}
	for _, kind := range ProviderKinds() {
		row, ok := capabilities[kind]
		if !ok {
			return fmt.Errorf("capability table has no entry for provider %s", kind)
		}
		for _, op := range Operations() {
			if row[op] == realizationUnset {
				return fmt.Errorf("capability table has no entry for %s on provider %s", op, kind)
			}
		}
	}
	return nil
}

// Capability reports how kind realizes op. Unknown kinds or operations are Unsupported.
func Capability(kind ProviderKind, op Operation) Realization {
	row, ok := capabilities[kind]
	if !ok || op < 0 || op >= numOperations {
		return Unsupported
	}
	return row[op]
}

// Supports reports whether kind can perform op at all.
func Supports(kind ProviderKind, op Operation) bool {
	return Capability(kind, op) != Unsupported
}

// dispatch resolves op for kind, failing with ErrInvalidOperation when unsupported.
func dispatch(kind ProviderKind, op Operation) (Realization, error) {
	r := Capability(kind, op)
	if r == Unsupported {
		return r, cerrors.NewInvalidOperationError(op.String(), kind.String())
	}
	return r, nil
}
