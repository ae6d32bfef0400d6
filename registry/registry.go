// registry/registry.go

// Package registry holds the federation trust view of the coalition: which
// instances exist, how their clearance terms translate, which KAS each one
// trusts, and the classification ceiling of each bilateral agreement.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	dive_errors "github.com/albeach/DIVE-V3-sub011/errors"
	logger "github.com/albeach/DIVE-V3-sub011/logging"
	"github.com/albeach/DIVE-V3-sub011/model"
	"github.com/albeach/DIVE-V3-sub011/normalizer"
)

// Store is the persistence boundary for registry entries. Satisfied by
// dao.InstanceRegistryDAO; tests substitute a mock.
type Store interface {
	ListInstances(ctx context.Context) ([]model.InstanceRegistryEntry, error)
	GetInstance(ctx context.Context, instanceID string) (*model.InstanceRegistryEntry, error)
	UpsertInstance(ctx context.Context, entry model.InstanceRegistryEntry) (*model.InstanceRegistryEntry, error)
	DeleteInstance(ctx context.Context, instanceID string) error
}

// InstanceRegistry serves federation trust data from a mutex-guarded
// snapshot. The snapshot is loaded at startup and refreshed on an interval;
// admin writes go through the store and update the snapshot immediately.
type InstanceRegistry struct {
	store           Store
	localInstanceID string

	mu      sync.RWMutex
	entries map[string]model.InstanceRegistryEntry
}

func NewInstanceRegistry(store Store, localInstanceID string) *InstanceRegistry {
	return &InstanceRegistry{
		store:           store,
		localInstanceID: localInstanceID,
		entries:         make(map[string]model.InstanceRegistryEntry),
	}
}

// LocalInstanceID returns the id this deployment registered under.
func (r *InstanceRegistry) LocalInstanceID() string {
	return r.localInstanceID
}

// Refresh replaces the snapshot with the store's current contents.
func (r *InstanceRegistry) Refresh(ctx context.Context) error {
	entries, err := r.store.ListInstances(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh instance registry: %w", err)
	}

	snapshot := make(map[string]model.InstanceRegistryEntry, len(entries))
	for _, entry := range entries {
		snapshot[entry.InstanceID] = entry
	}

	r.mu.Lock()
	r.entries = snapshot
	r.mu.Unlock()

	logger.Info("Instance registry refreshed", zap.Int("instances", len(entries)))
	return nil
}

// StartRefresh refreshes the snapshot on the given interval until ctx ends.
func (r *InstanceRegistry) StartRefresh(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.Refresh(ctx); err != nil {
					logger.Error("Periodic registry refresh failed", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Entry returns the registry entry for the given instance.
func (r *InstanceRegistry) Entry(instanceID string) (model.InstanceRegistryEntry, error) {
	r.mu.RLock()
	entry, ok := r.entries[instanceID]
	r.mu.RUnlock()
	if !ok {
		return model.InstanceRegistryEntry{}, dive_errors.ErrUnknownInstance
	}
	return entry, nil
}

// UpsertEntry writes through the store and updates the snapshot.
func (r *InstanceRegistry) UpsertEntry(ctx context.Context, entry model.InstanceRegistryEntry) (*model.InstanceRegistryEntry, error) {
	saved, err := r.store.UpsertInstance(ctx, entry)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.entries[saved.InstanceID] = *saved
	r.mu.Unlock()
	return saved, nil
}

// DeleteEntry removes an instance from the store and the snapshot.
func (r *InstanceRegistry) DeleteEntry(ctx context.Context, instanceID string) error {
	if err := r.store.DeleteInstance(ctx, instanceID); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.entries, instanceID)
	r.mu.Unlock()
	return nil
}

// ListEntries returns the current snapshot, ordered by instance id.
func (r *InstanceRegistry) ListEntries() []model.InstanceRegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.InstanceRegistryEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstanceID < out[j].InstanceID })
	return out
}

// TranslateToLocalTerm maps a canonical clearance level into the term space
// of the given instance. The instance's own clearance mapping wins; when it
// has none, the country-level table is consulted.
func (r *InstanceRegistry) TranslateToLocalTerm(instanceID string, level model.ClearanceLevel) (string, error) {
	entry, err := r.Entry(instanceID)
	if err != nil {
		return "", err
	}

	best := ""
	for term, l := range entry.ClearanceMapping {
		if l != level {
			continue
		}
		if best == "" || len(term) < len(best) {
			best = term
		}
	}
	if best != "" {
		return best, nil
	}
	return normalizer.LocalTerm(level, entry.Country), nil
}

// Ceiling returns the federation agreement's maximum classification for
// disclosure to the given instance.
func (r *InstanceRegistry) Ceiling(instanceID string) (model.ClearanceLevel, error) {
	entry, err := r.Entry(instanceID)
	if err != nil {
		return model.Unclassified, err
	}
	return entry.MaxClassification, nil
}

// AllowedCOIs returns the communities the federation agreement permits for
// the given instance.
func (r *InstanceRegistry) AllowedCOIs(instanceID string) ([]string, error) {
	entry, err := r.Entry(instanceID)
	if err != nil {
		return nil, err
	}
	return entry.AllowedCOIs, nil
}

// IsTrustedKAS reports whether both the requester's and the resource's
// instance have declared trust in the given KAS. Trust is directional and
// never implied symmetric; bilateral use requires both declarations.
func (r *InstanceRegistry) IsTrustedKAS(requesterInstance, resourceInstance, kasID string) bool {
	requester, err := r.Entry(requesterInstance)
	if err != nil {
		return false
	}
	if requesterInstance == resourceInstance {
		return requester.TrustsKAS(kasID)
	}
	resource, err := r.Entry(resourceInstance)
	if err != nil {
		return false
	}
	return requester.TrustsKAS(kasID) && resource.TrustsKAS(kasID)
}

// TrustedKASSet returns the KAS ids the requester may use for content from
// the resource's instance.
func (r *InstanceRegistry) TrustedKASSet(requesterInstance, resourceInstance string) map[string]bool {
	out := make(map[string]bool)
	requester, err := r.Entry(requesterInstance)
	if err != nil {
		return out
	}
	for _, kasID := range requester.TrustedKAS {
		if r.IsTrustedKAS(requesterInstance, resourceInstance, kasID) {
			out[kasID] = true
		}
	}
	return out
}

// ResolveRoute answers the federation routing query: the KAS a requester
// should address for content originating at originInstance. The first KAS
// trusted in both directions wins; when none exists the origin's first
// published endpoint is returned with FallbackUsed set.
func (r *InstanceRegistry) ResolveRoute(originInstance, requesterInstance string) (*model.FederationRoute, error) {
	origin, err := r.Entry(originInstance)
	if err != nil {
		return nil, err
	}
	requester, err := r.Entry(requesterInstance)
	if err != nil {
		return nil, err
	}

	for _, kasID := range requester.TrustedKAS {
		if !origin.TrustsKAS(kasID) {
			continue
		}
		url, ok := origin.KASEndpoints[kasID]
		if !ok {
			continue
		}
		return &model.FederationRoute{
			KASID:        kasID,
			KASURL:       url,
			Reason:       "bilateral trust between requester and origin",
			FallbackUsed: false,
		}, nil
	}

	for _, kasID := range origin.TrustedKAS {
		url, ok := origin.KASEndpoints[kasID]
		if !ok {
			continue
		}
		logger.Warn("No mutually trusted KAS, falling back to origin default",
			zap.String("origin", originInstance),
			zap.String("requester", requesterInstance),
			zap.String("kasID", kasID))
		return &model.FederationRoute{
			KASID:        kasID,
			KASURL:       url,
			Reason:       "no mutually trusted KAS; origin default endpoint",
			FallbackUsed: true,
		}, nil
	}

	return nil, dive_errors.ErrUntrustedKAS
}
