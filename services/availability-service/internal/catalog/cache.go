package catalog

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/model"
)

// Cache holds the clinic list and each clinic's scheduled appointments. A
// miss is reported with ok=false; errors are reserved for a broken backend.
type Cache interface {
	Clinics(ctx context.Context) (clinics []model.Clinic, ok bool, err error)
	StoreClinics(ctx context.Context, clinics []model.Clinic) error
	Appointments(ctx context.Context, clinicID int64) (appts []model.ScheduledAppointment, ok bool, err error)
	StoreAppointments(ctx context.Context, clinicID int64, appts []model.ScheduledAppointment) error
	Invalidate(ctx context.Context, clinicID int64) error
	InvalidateAll(ctx context.Context) error
}

// MemoryCache is a per-process cache. Appointment lists are kept for at most
// maxClinics clinics, least recently used first out.
type MemoryCache struct {
	ttl        time.Duration
	maxClinics int
	now        func() time.Time
	onEvict    func()

	mu             sync.Mutex
	clinics        []model.Clinic
	clinicsExpires time.Time
	lru            *list.List
	entries        map[int64]*list.Element
}

type memoryEntry struct {
	clinicID int64
	appts    []model.ScheduledAppointment
	expires  time.Time
}

// NewMemoryCache returns a cache whose entries live for ttl. onEvict, when
// set, is called each time capacity pressure drops an entry.
func NewMemoryCache(maxClinics int, ttl time.Duration, onEvict func()) *MemoryCache {
	if maxClinics <= 0 {
		maxClinics = 128
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &MemoryCache{
		ttl:        ttl,
		maxClinics: maxClinics,
		now:        time.Now,
		onEvict:    onEvict,
		lru:        list.New(),
		entries:    map[int64]*list.Element{},
	}
}

func (c *MemoryCache) Clinics(context.Context) ([]model.Clinic, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clinics == nil || !c.now().Before(c.clinicsExpires) {
		return nil, false, nil
	}
	return c.clinics, true, nil
}

func (c *MemoryCache) StoreClinics(_ context.Context, clinics []model.Clinic) error {
	if clinics == nil {
		clinics = []model.Clinic{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clinics = clinics
	c.clinicsExpires = c.now().Add(c.ttl)
	return nil
}

func (c *MemoryCache) Appointments(_ context.Context, clinicID int64) ([]model.ScheduledAppointment, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[clinicID]
	if !ok {
		return nil, false, nil
	}
	e := el.Value.(*memoryEntry)
	if !c.now().Before(e.expires) {
		c.lru.Remove(el)
		delete(c.entries, clinicID)
		return nil, false, nil
	}
	c.lru.MoveToFront(el)
	return e.appts, true, nil
}

func (c *MemoryCache) StoreAppointments(_ context.Context, clinicID int64, appts []model.ScheduledAppointment) error {
	if appts == nil {
		appts = []model.ScheduledAppointment{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	expires := c.now().Add(c.ttl)
	if el, ok := c.entries[clinicID]; ok {
		e := el.Value.(*memoryEntry)
		e.appts = appts
		e.expires = expires
		c.lru.MoveToFront(el)
		return nil
	}
	c.entries[clinicID] = c.lru.PushFront(&memoryEntry{clinicID: clinicID, appts: appts, expires: expires})
	for c.lru.Len() > c.maxClinics {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*memoryEntry).clinicID)
		if c.onEvict != nil {
			c.onEvict()
		}
	}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, clinicID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[clinicID]; ok {
		c.lru.Remove(el)
		delete(c.entries, clinicID)
	}
	return nil
}

func (c *MemoryCache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clinics = nil
	c.lru.Init()
	c.entries = map[int64]*list.Element{}
	return nil
}

// Len is the number of clinics with cached appointments.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
