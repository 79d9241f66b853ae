package gpu

import (
	"sync"

	"github.com/google/uuid"
)

// SoftTexture is a Texture backed by a byte slice.
type SoftTexture struct {
	id      uuid.UUID
	desc    TextureDesc
	data    []byte
	updates uint64
}

func (t *SoftTexture) ID() uuid.UUID         { return t.id }
func (t *SoftTexture) Desc() TextureDesc     { return t.desc }
func (t *SoftTexture) UpdateCount() uint64   { return t.updates }
func (t *SoftTexture) IncrementUpdateCount() { t.updates++ }
func (t *SoftTexture) Bytes() []byte         { return t.data }

// SoftDevice is an in-memory Device. BudgetBytes > 0 caps the total bytes of
// live textures; allocations past it fail with ErrOutOfMemory.
type SoftDevice struct {
	mu        sync.Mutex
	budget    int64
	used      int64
	live      map[uuid.UUID]*SoftTexture
	allocated uint64
	released  uint64
}

var _ Device = (*SoftDevice)(nil)

func NewSoftDevice(budgetBytes int64) *SoftDevice {
	return &SoftDevice{budget: budgetBytes, live: make(map[uuid.UUID]*SoftTexture)}
}

func (d *SoftDevice) AllocTexture(desc TextureDesc) (Texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	n := desc.Bytes()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.budget > 0 && d.used+n > d.budget {
		return nil, ErrOutOfMemory
	}
	t := &SoftTexture{id: uuid.New(), desc: desc, data: make([]byte, n)}
	d.live[t.id] = t
	d.used += n
	d.allocated++
	return t, nil
}

func (d *SoftDevice) ReleaseTexture(t Texture) {
	if t == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.live[t.ID()]
	if !ok {
		return
	}
	delete(d.live, st.id)
	d.used -= int64(len(st.data))
	d.released++
}

// Allocated counts successful AllocTexture calls.
func (d *SoftDevice) Allocated() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocated
}

func (d *SoftDevice) Released() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

func (d *SoftDevice) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

func (d *SoftDevice) UsedBytes() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.used
}
