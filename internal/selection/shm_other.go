//go:build !unix

package selection

import (
	"context"
	"errors"
	"time"
)

var errSharedMemoryUnsupported = errors.New("shared memory selection requires a unix platform")

type SharedMemory struct {
	Local
}

func CreateSharedMemory(path string) (*SharedMemory, error) {
	return nil, errSharedMemoryUnsupported
}

func OpenSharedMemory(ctx context.Context, path string, settle time.Duration) (*SharedMemory, error) {
	return nil, errSharedMemoryUnsupported
}
