// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package page

import (
	"encoding/binary"

	"github.com/yuzudb/yuzudb/types"
)

// HeaderPage is a persistent directory mapping an index's name to its root
// page id. It lives on whatever page id the B+-tree is constructed with; the
// catalog places it on page 2 (catalog.IndexCatalogPageId), not on
// common.HeaderPageID, since pages 0 and 1 hold the table and column
// catalogs. Every B+-tree root split/merge must
// flush its new root id through here, under this page's own latch, so a
// concurrently running Begin()/Get() on another tree never observes a torn
// write.
//
// On-disk layout: a 4-byte record count, followed by that many
// (2-byte name length | name bytes | 4-byte little-endian root page id)
// records packed back to back.
type HeaderPage struct {
	page *Page
}

func NewHeaderPage(p *Page) *HeaderPage {
	return &HeaderPage{page: p}
}

type headerRecord struct {
	name   string
	rootID types.PageID
}

func (h *HeaderPage) records() []headerRecord {
	data := h.page.Data()[:]
	count := binary.LittleEndian.Uint32(data[0:4])
	recs := make([]headerRecord, 0, count)
	off := 4
	for i := uint32(0); i < count; i++ {
		nameLen := int(binary.LittleEndian.Uint16(data[off : off+2]))
		off += 2
		name := string(data[off : off+nameLen])
		off += nameLen
		rootID := types.NewPageIDFromBytes(data[off : off+4])
		off += 4
		recs = append(recs, headerRecord{name, rootID})
	}
	return recs
}

func (h *HeaderPage) writeRecords(recs []headerRecord) {
	data := h.page.Data()[:]
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(recs)))
	off := 4
	for _, r := range recs {
		binary.LittleEndian.PutUint16(data[off:off+2], uint16(len(r.name)))
		off += 2
		copy(data[off:off+len(r.name)], r.name)
		off += len(r.name)
		copy(data[off:off+4], r.rootID.Serialize())
		off += 4
	}
	h.page.SetIsDirty(true)
}

// GetRecord looks up the root page id stored for name.
func (h *HeaderPage) GetRecord(name string) (types.PageID, bool) {
	for _, r := range h.records() {
		if r.name == name {
			return r.rootID, true
		}
	}
	return types.InvalidPageID, false
}

// InsertRecord adds a new name -> root id mapping. Returns false if name is
// already present.
func (h *HeaderPage) InsertRecord(name string, rootID types.PageID) bool {
	recs := h.records()
	for _, r := range recs {
		if r.name == name {
			return false
		}
	}
	recs = append(recs, headerRecord{name, rootID})
	h.writeRecords(recs)
	return true
}

// UpdateRecord overwrites an existing mapping. Returns false if name is
// absent.
func (h *HeaderPage) UpdateRecord(name string, rootID types.PageID) bool {
	recs := h.records()
	for i, r := range recs {
		if r.name == name {
			recs[i].rootID = rootID
			h.writeRecords(recs)
			return true
		}
	}
	return false
}

// DeleteRecord removes a mapping. Returns false if name was absent.
func (h *HeaderPage) DeleteRecord(name string) bool {
	recs := h.records()
	for i, r := range recs {
		if r.name == name {
			recs = append(recs[:i], recs[i+1:]...)
			h.writeRecords(recs)
			return true
		}
	}
	return false
}
