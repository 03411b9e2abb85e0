package session

import "github.com/sarchlab/m64sim/timing/cache"

// SetCacheConfig rebuilds the cache-traffic model with a new geometry. An
// invalid geometry is reported and the previous one stays in place.
func (s *Session) SetCacheConfig(config cache.HierarchyConfig) Result {
	if s.cacheConfigurer == nil {
		return s.result(ErrCacheUnsupported)
	}

	if err := s.cacheConfigurer.ConfigureCache(config); err != nil {
		s.logger.Warn("cache configuration rejected", "error", err)
		return s.result(err)
	}

	s.logger.Info("cache configured",
		"l1i", config.L1I.Size, "l1d", config.L1D.Size)

	return s.result(nil)
}
