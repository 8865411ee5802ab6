package commands

import (
	"hash/fnv"
	"sync"
)

const keyedMutexStripes = 64

// keyedMutex serializes mutations per submission key so a judge's rapid
// resubmissions cannot race each other, while distinct judges map to
// independent stripes and proceed in parallel.
type keyedMutex struct {
	stripes [keyedMutexStripes]sync.Mutex
}

func (m *keyedMutex) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	stripe := &m.stripes[h.Sum32()%keyedMutexStripes]
	stripe.Lock()
	return stripe.Unlock
}
