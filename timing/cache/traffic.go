package cache

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sarchlab/m64sim/engine"
)

// AccessKind is the Dinero label of a memory reference.
type AccessKind int

// Dinero access labels.
const (
	AccessRead  AccessKind = 0
	AccessWrite AccessKind = 1
	AccessFetch AccessKind = 2
)

// TraceEntry is one memory reference of the trace.
type TraceEntry struct {
	Kind    AccessKind
	Address uint64
}

// HierarchyConfig is the geometry of both L1 caches.
type HierarchyConfig struct {
	L1I Config `json:"l1i"`
	L1D Config `json:"l1d"`
}

// DefaultHierarchyConfig returns the default L1 geometry.
func DefaultHierarchyConfig() HierarchyConfig {
	return HierarchyConfig{L1I: DefaultL1IConfig(), L1D: DefaultL1DConfig()}
}

// Validate checks both caches.
func (h HierarchyConfig) Validate() error {
	if err := h.L1I.Validate(); err != nil {
		return fmt.Errorf("l1i: %w", err)
	}
	if err := h.L1D.Validate(); err != nil {
		return fmt.Errorf("l1d: %w", err)
	}
	return nil
}

// Traffic is the cache-traffic model. It records instruction fetches and
// data accesses into a Dinero trace and replays them through the L1 caches.
// Data addresses are placed after the code by the data offset.
type Traffic struct {
	config     HierarchyConfig
	l1i        *Cache
	l1d        *Cache
	dataOffset uint64
	trace      []TraceEntry
}

// NewTraffic creates a traffic model with the given cache geometry.
func NewTraffic(config HierarchyConfig) (*Traffic, error) {
	t := &Traffic{}
	if err := t.Configure(config); err != nil {
		return nil, err
	}
	return t, nil
}

// Configure replaces the cache geometry and clears the counters. The trace
// is kept.
func (t *Traffic) Configure(config HierarchyConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid cache configuration: %w", err)
	}

	t.config = config
	t.l1i = New(config.L1I)
	t.l1d = New(config.L1D)

	return nil
}

// Config returns the current cache geometry.
func (t *Traffic) Config() HierarchyConfig {
	return t.config
}

// Reset clears the trace, the caches and the data offset.
func (t *Traffic) Reset() {
	t.trace = t.trace[:0]
	t.l1i.Reset()
	t.l1d.Reset()
	t.dataOffset = 0
}

// SetDataOffset places data addresses offset bytes after address 0.
func (t *Traffic) SetDataOffset(offset uint64) {
	t.dataOffset = offset
}

// DataOffset returns the current data offset.
func (t *Traffic) DataOffset() uint64 {
	return t.dataOffset
}

// Fetch records an instruction fetch at a code address.
func (t *Traffic) Fetch(addr uint64) {
	t.trace = append(t.trace, TraceEntry{Kind: AccessFetch, Address: addr})
	t.l1i.Read(addr)
}

// Read records a data read at a data memory address.
func (t *Traffic) Read(addr uint64) {
	addr += t.dataOffset
	t.trace = append(t.trace, TraceEntry{Kind: AccessRead, Address: addr})
	t.l1d.Read(addr)
}

// Write records a data write at a data memory address.
func (t *Traffic) Write(addr uint64) {
	addr += t.dataOffset
	t.trace = append(t.trace, TraceEntry{Kind: AccessWrite, Address: addr})
	t.l1d.Write(addr)
}

// Trace returns the recorded references in order.
func (t *Traffic) Trace() []TraceEntry {
	return t.trace
}

// WriteTrace writes the trace in Dinero "din" format: one "label address"
// line per reference, the address in hex.
func (t *Traffic) WriteTrace(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, e := range t.trace {
		if _, err := fmt.Fprintf(bw, "%d %x\n", e.Kind, e.Address); err != nil {
			return fmt.Errorf("write trace: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}

// Stats returns the L1 counters.
func (t *Traffic) Stats() engine.CacheStatistics {
	i, d := t.l1i.Stats(), t.l1d.Stats()
	return engine.CacheStatistics{
		L1IReads:       i.Reads,
		L1IReadMisses:  i.ReadMisses,
		L1DReads:       d.Reads,
		L1DReadMisses:  d.ReadMisses,
		L1DWrites:      d.Writes,
		L1DWriteMisses: d.WriteMisses,
	}
}
