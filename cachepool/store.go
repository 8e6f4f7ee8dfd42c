package cachepool

import (
	"os"

	"github.com/liulanzheng/overlaybd/lsmerr"
)

// CacheStore is a single open handle onto a pooled file, bound to the
// pool and the file's LRU entry (§4.5 "do_open" step 4). All mutation
// of pool-wide state is delegated back to Pool methods so it happens
// behind the pool's own lock (§5 "cyclic concerns").
type CacheStore struct {
	pool  *Pool
	f     *os.File
	entry *LruEntry
}

// Pread reads from the backing file under the entry's read lock,
// excluding a concurrent eviction truncation of the same file.
func (s *CacheStore) Pread(buf []byte, off int64) (int, error) {
	s.entry.rw.RLock()
	defer s.entry.rw.RUnlock()
	n, err := s.f.ReadAt(buf, off)
	if err != nil {
		return n, lsmerr.Wrap(lsmerr.KindIO, err, "cachepool: read %s at %d", s.entry.name, off)
	}
	return n, nil
}

// Pwrite is the refill path (§4.5 "CacheStore.pwrite"): after the
// underlying write succeeds, the entry's tracked size is advanced and,
// if that pushes total usage past the risk mark, a synchronous
// eviction pass runs before returning.
func (s *CacheStore) Pwrite(buf []byte, off int64) (int, error) {
	s.entry.rw.RLock()
	n, err := s.f.WriteAt(buf, off)
	s.entry.rw.RUnlock()
	if err != nil {
		return n, lsmerr.Wrap(lsmerr.KindIO, err, "cachepool: write %s at %d", s.entry.name, off)
	}

	end := off + int64(n)
	s.pool.mu.Lock()
	newSize := s.entry.size
	if end > newSize {
		newSize = end
	}
	s.pool.mu.Unlock()

	s.pool.updateSpace(s.entry, newSize)
	return n, nil
}

// Close decrements the entry's open count; it does not remove the
// entry from the pool (§4.5 "CacheStore.close").
func (s *CacheStore) Close() error {
	s.pool.mu.Lock()
	s.entry.openCount--
	s.pool.mu.Unlock()
	return s.f.Close()
}
