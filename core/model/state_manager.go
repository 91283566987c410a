package model

import (
	"sync"

	"github.com/YuminosukeSato/ceramigo/pkg/errors"
)

// StateManager tracks the fitted state of a regressor. Fields are exported so
// that gob can persist them alongside the owning model.
type StateManager struct {
	Fitted bool
	mu     sync.RWMutex

	NFeatures int
	NOutputs  int
	NSamples  int
}

// NewStateManager creates an unfitted StateManager.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the model as fitted with the shapes seen during Fit.
func (s *StateManager) SetFitted(nFeatures, nOutputs, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
	s.NFeatures = nFeatures
	s.NOutputs = nOutputs
	s.NSamples = nSamples
}

// Reset clears the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeatures = 0
	s.NOutputs = 0
	s.NSamples = 0
}

// Dimensions returns the feature and output counts seen during fitting.
func (s *StateManager) Dimensions() (nFeatures, nOutputs int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NOutputs
}

// RequireFitted returns a NotFittedError if the model has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// CheckInput validates that X has the feature count seen during fitting.
func (s *StateManager) CheckInput(op string, X interface{ Dims() (int, int) }) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, c := X.Dims()
	if c != s.NFeatures {
		return errors.NewDimensionError(op, s.NFeatures, c, 1)
	}
	return nil
}
