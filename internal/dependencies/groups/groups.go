package groups

import (
	"context"
	"sync"

	"github.com/whisperhq/whisperd/internal/model"
)

// Directory exposes current user-group membership. Group storage lives
// outside this system; callers always query membership as of "now" and
// never cache the answer.
type Directory interface {
	// Members returns the current members of a group
	Members(ctx context.Context, groupID model.GroupID) ([]model.UserID, error)

	// IsMember reports whether the user is currently a member of the group
	IsMember(ctx context.Context, groupID model.GroupID, userID model.UserID) (bool, error)
}

// Static is an in-process Directory backed by a mutable map. It serves as
// the bundled implementation for single-node deployments and tests;
// production deployments implement Directory against their group store.
type Static struct {
	mu     sync.RWMutex
	groups map[model.GroupID]map[model.UserID]struct{}
}

// NewStatic creates an empty Static directory
func NewStatic() *Static {
	return &Static{
		groups: make(map[model.GroupID]map[model.UserID]struct{}),
	}
}

// Ensure Static implements Directory
var _ Directory = (*Static)(nil)

// Members returns the current members of a group
func (s *Static) Members(ctx context.Context, groupID model.GroupID) ([]model.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := make([]model.UserID, 0, len(s.groups[groupID]))
	for userID := range s.groups[groupID] {
		members = append(members, userID)
	}
	return members, nil
}

// IsMember reports whether the user is currently a member of the group
func (s *Static) IsMember(ctx context.Context, groupID model.GroupID, userID model.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.groups[groupID][userID]
	return ok, nil
}

// Add puts a user into a group, creating the group if needed
func (s *Static) Add(groupID model.GroupID, userID model.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.groups[groupID] == nil {
		s.groups[groupID] = make(map[model.UserID]struct{})
	}
	s.groups[groupID][userID] = struct{}{}
}

// Remove takes a user out of a group
func (s *Static) Remove(groupID model.GroupID, userID model.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups[groupID], userID)
}
