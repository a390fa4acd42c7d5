// Package scene hands generated caves to a host engine and releases whatever
// the previous generation created there.
package scene

import (
	"errors"
	"fmt"

	"cavecraft.ai/internal/cave/gen"
	"cavecraft.ai/internal/mesh"
	"cavecraft.ai/internal/sim/catalogs"
)

type Kind string

const (
	KindPlaceholder Kind = "PLACEHOLDER"
	KindCollider    Kind = "COLLIDER"
	KindMesh        Kind = "MESH"
)

type Object struct {
	Kind     Kind
	Name     string
	Position mesh.Vec3
	Mesh     *mesh.Mesh
	Template *catalogs.PlaceholderDef
}

// Host is the engine side: it instantiates objects and destroys them by id.
type Host interface {
	Create(obj Object) (string, error)
	Destroy(id string) error
}

var ErrUnknownObject = errors.New("unknown scene object")

// Stage tracks what the current generation owns on a host. Not safe for
// concurrent use; callers serialize rebuilds.
type Stage struct {
	host        Host
	placeholder string
	colliders   []string
	meshes      []string
}

func NewStage(h Host) *Stage {
	return &Stage{host: h}
}

// Apply releases the previous placeholder, colliders and meshes, then
// creates the new ones. A result without a spawn point gets no placeholder.
func (s *Stage) Apply(res *gen.Result, tpl catalogs.PlaceholderDef) error {
	if err := s.Clear(); err != nil {
		return err
	}
	for i, m := range res.Meshes() {
		id, err := s.host.Create(Object{Kind: KindMesh, Name: fmt.Sprintf("mesh_%d", i), Position: m.Origin, Mesh: &m})
		if err != nil {
			return fmt.Errorf("scene: create mesh: %w", err)
		}
		s.meshes = append(s.meshes, id)
	}
	for i, m := range res.Colliders() {
		id, err := s.host.Create(Object{Kind: KindCollider, Name: fmt.Sprintf("collider_%d", i), Position: m.Origin, Mesh: &m})
		if err != nil {
			return fmt.Errorf("scene: create collider: %w", err)
		}
		s.colliders = append(s.colliders, id)
	}
	if res.Spawn == nil {
		return nil
	}
	t := tpl
	id, err := s.host.Create(Object{Kind: KindPlaceholder, Name: tpl.ID, Position: res.Spawn.Pos, Template: &t})
	if err != nil {
		return fmt.Errorf("scene: create placeholder: %w", err)
	}
	s.placeholder = id
	return nil
}

// Clear destroys everything the stage owns. Ids are forgotten even when the
// host fails, so a failed destroy is not retried on the next rebuild.
func (s *Stage) Clear() error {
	var errs []error
	if s.placeholder != "" {
		errs = append(errs, s.host.Destroy(s.placeholder))
		s.placeholder = ""
	}
	for _, id := range s.colliders {
		errs = append(errs, s.host.Destroy(id))
	}
	for _, id := range s.meshes {
		errs = append(errs, s.host.Destroy(id))
	}
	s.colliders, s.meshes = nil, nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("scene: release: %w", err)
	}
	return nil
}

func (s *Stage) Placeholder() string { return s.placeholder }

func (s *Stage) Colliders() []string { return append([]string(nil), s.colliders...) }

func (s *Stage) Meshes() []string { return append([]string(nil), s.meshes...) }
