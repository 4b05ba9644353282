// Copyright 2026 The kmpu Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package loader

import (
	"errors"
	"fmt"

	"github.com/google/btree"
)

// ErrOutOfMemory is returned when a pool has no free span large enough for a
// request.
var ErrOutOfMemory = errors.New("out of memory")

// Span is a half-open address range [Start, End).
type Span struct {
	Start uint64
	End   uint64
}

// Size returns the length of the span.
func (s Span) Size() uint64 {
	return s.End - s.Start
}

// String implements fmt.Stringer.String.
func (s Span) String() string {
	return fmt.Sprintf("[%#08x, %#08x)", s.Start, s.End)
}

func spanLess(a, b Span) bool {
	return a.Start < b.Start
}

// Pool tracks the free parts of one memory (flash or RAM). Free spans are
// kept ordered by address and never touch; releasing a span merges it with
// its free neighbours.
//
// Pool is not safe for concurrent use.
type Pool struct {
	name string
	mem  Span
	free *btree.BTreeG[Span]
}

// NewPool returns a pool over [start, start+size) with everything free.
func NewPool(name string, start, size uint32) *Pool {
	p := &Pool{
		name: name,
		mem:  Span{Start: uint64(start), End: uint64(start) + uint64(size)},
		free: btree.NewG(8, spanLess),
	}
	if size != 0 {
		p.free.ReplaceOrInsert(p.mem)
	}
	return p
}

// Name returns the pool's name.
func (p *Pool) Name() string {
	return p.name
}

// Bounds returns the memory the pool manages.
func (p *Pool) Bounds() Span {
	return p.mem
}

// Spans returns the free spans in address order.
func (p *Pool) Spans() []Span {
	spans := make([]Span, 0, p.free.Len())
	p.free.Ascend(func(s Span) bool {
		spans = append(spans, s)
		return true
	})
	return spans
}

// Free returns the total number of free bytes.
func (p *Pool) Free() uint64 {
	var n uint64
	p.free.Ascend(func(s Span) bool {
		n += s.Size()
		return true
	})
	return n
}

// Take carves size bytes aligned to align out of the lowest free span that
// can hold them and returns their start. align must be a power of two.
func (p *Pool) Take(size, align uint32) (uint32, error) {
	if size == 0 {
		return 0, fmt.Errorf("%s: zero sized request", p.name)
	}
	if align == 0 || align&(align-1) != 0 {
		return 0, fmt.Errorf("%s: alignment %#x is not a power of two", p.name, align)
	}
	var (
		found bool
		start uint64
	)
	mask := uint64(align) - 1
	p.free.Ascend(func(s Span) bool {
		start = (s.Start + mask) &^ mask
		if start+uint64(size) <= s.End {
			found = true
			return false
		}
		return true
	})
	if !found {
		return 0, fmt.Errorf("%s: no free span for %#x bytes aligned to %#x: %w", p.name, size, align, ErrOutOfMemory)
	}
	if err := p.Reserve(uint32(start), size); err != nil {
		panic(fmt.Sprintf("%s: reserving found span: %v", p.name, err))
	}
	return uint32(start), nil
}

// containing returns the free span holding addr.
func (p *Pool) containing(addr uint64) (Span, bool) {
	var (
		s     Span
		found bool
	)
	p.free.DescendLessOrEqual(Span{Start: addr}, func(c Span) bool {
		s, found = c, addr < c.End
		return false
	})
	return s, found
}

// Reserve marks [start, start+size) as used. The range must lie within a
// single free span.
func (p *Pool) Reserve(start, size uint32) error {
	r := Span{Start: uint64(start), End: uint64(start) + uint64(size)}
	if size == 0 {
		return fmt.Errorf("%s: zero sized reservation at %#x", p.name, start)
	}
	s, ok := p.containing(r.Start)
	if !ok || r.End > s.End {
		return fmt.Errorf("%s: %v is not free: %w", p.name, r, ErrOutOfMemory)
	}
	p.free.Delete(s)
	if s.Start < r.Start {
		p.free.ReplaceOrInsert(Span{Start: s.Start, End: r.Start})
	}
	if r.End < s.End {
		p.free.ReplaceOrInsert(Span{Start: r.End, End: s.End})
	}
	return nil
}

// Release returns [start, start+size) to the pool. It fails if any part of
// the range is outside the pool or already free.
func (p *Pool) Release(start, size uint32) error {
	r := Span{Start: uint64(start), End: uint64(start) + uint64(size)}
	if size == 0 {
		return nil
	}
	if r.Start < p.mem.Start || r.End > p.mem.End {
		return fmt.Errorf("%s: release of %v outside %v", p.name, r, p.mem)
	}

	var prev, next Span
	hasPrev, hasNext := false, false
	p.free.DescendLessOrEqual(Span{Start: r.Start}, func(s Span) bool {
		prev, hasPrev = s, true
		return false
	})
	p.free.AscendGreaterOrEqual(Span{Start: r.Start}, func(s Span) bool {
		next, hasNext = s, true
		return false
	})
	if hasPrev && prev.End > r.Start || hasNext && next.Start < r.End {
		return fmt.Errorf("%s: release of %v overlaps free memory", p.name, r)
	}

	if hasPrev && prev.End == r.Start {
		p.free.Delete(prev)
		r.Start = prev.Start
	}
	if hasNext && next.Start == r.End {
		p.free.Delete(next)
		r.End = next.End
	}
	p.free.ReplaceOrInsert(r)
	return nil
}
