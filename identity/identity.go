// Package identity provides the immutable AgentIdentity/Capability/Manifest
// data model (§3). Values are built once and never mutated afterward; the
// kernel holds a copy for the lifetime of the process.
package identity

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

var capabilityIDPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Capability describes one thing an agent can do, matched opaquely by the
// policy engine against its scope strings.
type Capability struct {
	id     string
	name   string
	semver string
	scopes []string
}

// NewCapability validates and builds a Capability. id must be a lowercase
// kebab-case token; scopes must be non-empty.
func NewCapability(id, name, semver string, scopes []string) (Capability, error) {
	if !capabilityIDPattern.MatchString(id) {
		return Capability{}, fmt.Errorf("identity: capability id %q must be lowercase kebab-case", id)
	}
	if len(scopes) == 0 {
		return Capability{}, fmt.Errorf("identity: capability %q must declare at least one scope", id)
	}
	scopesCopy := make([]string, len(scopes))
	copy(scopesCopy, scopes)
	return Capability{id: id, name: name, semver: semver, scopes: scopesCopy}, nil
}

func (c Capability) ID() string       { return c.id }
func (c Capability) Name() string     { return c.name }
func (c Capability) Version() string  { return c.semver }
func (c Capability) Scopes() []string { return append([]string(nil), c.scopes...) }

// HasScope reports whether the capability declares the given scope string.
func (c Capability) HasScope(scope string) bool {
	for _, s := range c.scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Manifest is the descriptive, immutable metadata an agent announces to
// peers and the registry: display name, semantic version, description,
// tags, and capabilities.
type Manifest struct {
	displayName  string
	version      string
	description  string
	tags         []string
	capabilities []Capability
}

// NewManifest builds an immutable Manifest.
func NewManifest(displayName, version, description string, tags []string, capabilities []Capability) Manifest {
	return Manifest{
		displayName:  displayName,
		version:      version,
		description:  description,
		tags:         append([]string(nil), tags...),
		capabilities: append([]Capability(nil), capabilities...),
	}
}

func (m Manifest) DisplayName() string      { return m.displayName }
func (m Manifest) Version() string          { return m.version }
func (m Manifest) Description() string      { return m.description }
func (m Manifest) Tags() []string           { return append([]string(nil), m.tags...) }
func (m Manifest) Capabilities() []Capability {
	return append([]Capability(nil), m.capabilities...)
}

// HasCapability reports whether the manifest declares a capability with the given id.
func (m Manifest) HasCapability(id string) bool {
	for _, c := range m.capabilities {
		if c.id == id {
			return true
		}
	}
	return false
}

// ID is the agent's 128-bit unique identifier.
type ID uuid.UUID

// NewID mints a fresh random agent id.
func NewID() ID { return ID(uuid.New()) }

// String renders the id in canonical UUID form.
func (id ID) String() string { return uuid.UUID(id).String() }

// AgentIdentity is the immutable identity of one kernel instance: a 128-bit
// id plus its manifest. Constructed once at kernel construction and never
// mutated afterward (§3).
type AgentIdentity struct {
	id       ID
	manifest Manifest
}

// New builds an AgentIdentity with a freshly minted id.
func New(manifest Manifest) AgentIdentity {
	return AgentIdentity{id: NewID(), manifest: manifest}
}

// NewWithID builds an AgentIdentity with a caller-supplied id (used when
// restoring a previously-registered identity across restarts).
func NewWithID(id ID, manifest Manifest) AgentIdentity {
	return AgentIdentity{id: id, manifest: manifest}
}

func (a AgentIdentity) ID() ID             { return a.id }
func (a AgentIdentity) Manifest() Manifest { return a.manifest }
