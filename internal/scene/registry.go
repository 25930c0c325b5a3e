// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package scene

import (
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"
)

// Registry routes incoming frames to scenes. Cameras and sensors belong
// to exactly one scene, so transport adapters look scenes up by the
// entity id on the message topic.
type Registry struct {
	mu     sync.RWMutex
	scenes map[string]*Scene
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{scenes: make(map[string]*Scene)}
}

// Add registers a scene under its name, replacing any previous holder.
func (r *Registry) Add(s *Scene) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenes[s.Name] = s
}

// Lookup returns the scene with the given name.
func (r *Registry) Lookup(name string) (*Scene, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenes[name]
	return s, ok
}

// ForCamera returns the scene owning the given camera.
func (r *Registry) ForCamera(cameraID string) (*Scene, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.scenes {
		if _, ok := s.cameras[cameraID]; ok {
			return s, true
		}
	}
	return nil, false
}

// ForSensor returns the scene owning the given sensor.
func (r *Registry) ForSensor(sensorID string) (*Scene, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.scenes {
		if _, ok := s.sensors[sensorID]; ok {
			return s, true
		}
	}
	return nil, false
}

// All returns the registered scenes in unspecified order.
func (r *Registry) All() []*Scene {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Scene, 0, len(r.scenes))
	for _, s := range r.scenes {
		out = append(out, s)
	}
	return out
}

// LoadDefinitions reads declarative scene descriptions from a JSON file:
// an array of Update documents, each naming one scene with its cameras,
// regions, tripwires, sensors and children.
func LoadDefinitions(path string) ([]Update, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene definitions: %w", err)
	}
	var defs []Update
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("parsing scene definitions %s: %w", path, err)
	}
	for i, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("scene definition %d has no name", i)
		}
	}
	return defs, nil
}
