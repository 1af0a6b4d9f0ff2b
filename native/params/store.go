package params

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StoreState is the named-parameter slot of the state manager.
type StoreState interface {
	ParamStoreSet(name string, value []byte) error
	ParamStoreGet(name string) ([]byte, bool, error)
}

// Store keeps the controller's global risk parameters and their update
// stamps as JSON documents.
type Store struct {
	state StoreState
}

func NewStore(state StoreState) *Store {
	return &Store{state: state}
}

func (s *Store) put(name string, value interface{}) error {
	if s == nil || s.state == nil {
		return fmt.Errorf("params: state not configured")
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("params: encode %s: %w", name, err)
	}
	return s.state.ParamStoreSet(name, encoded)
}

// get decodes slot name into out. A missing or blank slot leaves out at its
// zero value.
func (s *Store) get(name string, out interface{}) error {
	if s == nil || s.state == nil {
		return fmt.Errorf("params: state not configured")
	}
	raw, ok, err := s.state.ParamStoreGet(name)
	if err != nil {
		return err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("params: decode %s: %w", name, err)
	}
	return nil
}

// SetGlobal replaces the global parameters. Bounds are checked by the caller.
func (s *Store) SetGlobal(global Global) error {
	return s.put(ParamsKeyGlobal, global)
}

// Global returns the stored global parameters, zero before genesis.
func (s *Store) Global() (Global, error) {
	var global Global
	if err := s.get(ParamsKeyGlobal, &global); err != nil {
		return Global{}, err
	}
	return global, nil
}

func (s *Store) SetUpdates(updates Updates) error {
	return s.put(ParamsKeyUpdates, updates)
}

// Updates returns when each global parameter last changed.
func (s *Store) Updates() (Updates, error) {
	var updates Updates
	if err := s.get(ParamsKeyUpdates, &updates); err != nil {
		return Updates{}, err
	}
	return updates, nil
}
