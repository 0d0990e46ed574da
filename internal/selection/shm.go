//go:build unix

package selection

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"payment-router/internal/entities"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// cellSize is one machine word so the cell can be read and written with
// sync/atomic; only the low byte carries the gateway.
const cellSize = 4

// SharedMemory keeps the selection in a file mapped MAP_SHARED by every
// process, normally under /dev/shm.
type SharedMemory struct {
	file   *os.File
	region []byte
	cell   *uint32
}

// CreateSharedMemory replaces any stale segment at path with a new one
// holding entities.Default. Only the initializer process calls it.
func CreateSharedMemory(path string) (*SharedMemory, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale shared memory %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o664)
	if err != nil {
		return nil, fmt.Errorf("creating shared memory %s: %w", path, err)
	}

	if err := f.Truncate(cellSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("sizing shared memory %s: %w", path, err)
	}

	sm, err := mapSharedMemory(f)
	if err != nil {
		return nil, err
	}

	sm.Set(entities.Default)
	return sm, nil
}

// OpenSharedMemory waits settle for the initializer, then maps the existing
// segment at path.
func OpenSharedMemory(ctx context.Context, path string, settle time.Duration) (*SharedMemory, error) {
	select {
	case <-time.After(settle):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening shared memory %s: %w", path, err)
	}

	return mapSharedMemory(f)
}

func mapSharedMemory(f *os.File) (*SharedMemory, error) {
	region, err := unix.Mmap(int(f.Fd()), 0, cellSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mapping shared memory %s: %w", f.Name(), err)
	}

	return &SharedMemory{
		file:   f,
		region: region,
		cell:   (*uint32)(unsafe.Pointer(&region[0])),
	}, nil
}

func (sm *SharedMemory) Get() entities.Gateway {
	return entities.Gateway(atomic.LoadUint32(sm.cell))
}

func (sm *SharedMemory) Set(g entities.Gateway) {
	atomic.StoreUint32(sm.cell, uint32(g))
}

func (sm *SharedMemory) Close() error {
	if err := unix.Munmap(sm.region); err != nil {
		slog.Error("failed to unmap shared memory", "error", err)
	}
	return sm.file.Close()
}
