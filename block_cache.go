// block_cache.go - the compiled-block cache (C5).
//
// Grounded on the teacher's memory_bus.go page-table-of-regions idea,
// specialized into a two-level structure: a page slice indexed by guest
// page number, each entry a slice indexed by the instruction's in-page
// word offset. RAM pages are additionally guarded by memory.go's
// per-page generation counters so a store into code invalidates only the
// blocks compiled from that 1 KB page rather than the whole cache.

package psxcore

const (
	blockPageSize  = ramPageSize // 1 KB, matches the SMC generation granularity
	blockWordSlots = blockPageSize / 4

	biosPageCount = biosSize / blockPageSize

	indirectBuckets = 1024 // power of two; two-way associative
	indirectWays    = 2
)

type indirectEntry struct {
	valid bool
	pc    uint32
	blk   *block
}

// blockCache owns every compiled block plus the JR/JALR indirect-branch
// hash table, and the code arena backing their descriptors.
type blockCache struct {
	ramPages  [ramPageCount][]*block
	biosPages [biosPageCount][]*block

	indirect [indirectBuckets][indirectWays]indirectEntry
	lruWay   [indirectBuckets]int // next way to evict on a two-way miss

	arena *codeArena
	mem   *Memory
}

func newBlockCache(mem *Memory, arenaSlots int) (*blockCache, error) {
	arena, err := newCodeArena(arenaSlots)
	if err != nil {
		return nil, err
	}
	return &blockCache{arena: arena, mem: mem}, nil
}

// Lookup returns a valid, unstale block for pc, or nil if one must be
// compiled. For RAM-resident code it re-validates the page generation
// before trusting the cached entry.
func (bc *blockCache) Lookup(pc uint32) *block {
	switch {
	case pc < ramSize:
		page, off := pc/blockPageSize, (pc%blockPageSize)/4
		slots := bc.ramPages[page]
		if slots == nil || int(off) >= len(slots) {
			return nil
		}
		b := slots[off]
		if b == nil {
			return nil
		}
		if b.pageGen != bc.mem.PageGeneration(pc) {
			return nil // stale: guest wrote into this page since compile
		}
		return b
	case pc >= biosBase && pc <= biosEnd:
		rel := pc - biosBase
		page, off := rel/blockPageSize, (rel%blockPageSize)/4
		slots := bc.biosPages[page]
		if slots == nil || int(off) >= len(slots) {
			return nil
		}
		return slots[off] // BIOS ROM never invalidates
	default:
		return nil
	}
}

// Insert records a freshly compiled block, reserving and sealing an arena
// descriptor slot for it.
func (bc *blockCache) Insert(b *block) error {
	slot, err := bc.arena.reserve()
	if err != nil {
		return err
	}
	bc.arena.writeDescriptor(slot, b.entryPC, b.sourceHash, b.pageGen, uint16(b.instrCount), 0)
	if err := bc.arena.seal(); err != nil {
		return err
	}

	switch {
	case b.entryPC < ramSize:
		page, off := b.entryPC/blockPageSize, (b.entryPC%blockPageSize)/4
		bc.ensureRAMPage(page)
		bc.ramPages[page][off] = b
	case b.entryPC >= biosBase && b.entryPC <= biosEnd:
		rel := b.entryPC - biosBase
		page, off := rel/blockPageSize, (rel%blockPageSize)/4
		bc.ensureBIOSPage(page)
		bc.biosPages[page][off] = b
	}
	return nil
}

func (bc *blockCache) ensureRAMPage(page uint32) {
	if bc.ramPages[page] == nil {
		bc.ramPages[page] = make([]*block, blockWordSlots)
	}
}

func (bc *blockCache) ensureBIOSPage(page uint32) {
	if bc.biosPages[page] == nil {
		bc.biosPages[page] = make([]*block, blockWordSlots)
	}
}

// InvalidatePage drops every cached block compiled from the RAM page
// containing addr. The memory write path does not call it: stale blocks
// are instead rejected by Lookup's page-generation check.
func (bc *blockCache) InvalidatePage(addr uint32) {
	if addr >= ramSize {
		return
	}
	page := addr / blockPageSize
	bc.ramPages[page] = nil
}

// indirectHash maps a target PC to a bucket using a simple multiplicative
// hash, matching the teacher's style of small inline hash functions rather
// than pulling in a hashing library for a 32-bit key.
func indirectHash(pc uint32) uint32 {
	h := pc * 2654435761
	return (h >> 20) % indirectBuckets
}

// LookupIndirect serves JR/JALR dispatch: a two-way associative cache so
// the two most common return addresses for a given call site both hit
// without evicting each other.
func (bc *blockCache) LookupIndirect(pc uint32) *block {
	bucket := indirectHash(pc)
	for way := 0; way < indirectWays; way++ {
		e := &bc.indirect[bucket][way]
		if e.valid && e.pc == pc {
			return e.blk
		}
	}
	return nil
}

// InsertIndirect records a target in the two-way table, evicting round-robin
// when both ways are occupied.
func (bc *blockCache) InsertIndirect(pc uint32, b *block) {
	bucket := indirectHash(pc)
	for way := 0; way < indirectWays; way++ {
		if !bc.indirect[bucket][way].valid {
			bc.indirect[bucket][way] = indirectEntry{valid: true, pc: pc, blk: b}
			return
		}
	}
	way := bc.lruWay[bucket]
	bc.indirect[bucket][way] = indirectEntry{valid: true, pc: pc, blk: b}
	bc.lruWay[bucket] = (way + 1) % indirectWays
}

// Reset flushes every compiled block, the indirect table and the code
// arena's descriptors.
func (bc *blockCache) Reset() {
	for i := range bc.ramPages {
		bc.ramPages[i] = nil
	}
	for i := range bc.biosPages {
		bc.biosPages[i] = nil
	}
	for b := range bc.indirect {
		for w := range bc.indirect[b] {
			bc.indirect[b][w] = indirectEntry{}
		}
	}
	_ = bc.arena.reset()
}
