package page

import (
	"testing"

	"github.com/yuzudb/yuzudb/types"
)

func TestRID(t *testing.T) {
	rid := RID{}
	rid.Set(types.PageID(0), uint32(7))

	if got := rid.GetPageId(); got != types.PageID(0) {
		t.Errorf("GetPageId() = %v, want 0", got)
	}
	if got := rid.GetSlot(); got != uint32(7) {
		t.Errorf("GetSlot() = %v, want 7", got)
	}
}

func TestNewRID(t *testing.T) {
	rid := NewRID(types.PageID(3), 2)
	if rid.GetPageId() != types.PageID(3) || rid.GetSlot() != 2 {
		t.Errorf("NewRID produced %+v", rid)
	}
}
