// Package iocache persists extraction results and scan history.
package iocache

import (
	"sync"

	"github.com/huangsam/smellscan/internal/contract"
)

// CacheStoreManager manages the unit cache and the history store.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	units        contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetUnitStore returns the unit CacheStore.
func (mgr *CacheStoreManager) GetUnitStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.units
}

// GetHistoryStore returns the HistoryStore.
func (mgr *CacheStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
