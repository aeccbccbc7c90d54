package stream_test

import (
	om "github.com/cevaris/ordered_map"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/stream"
)

var _ = Describe("Record", func() {
	log := logger.MustNewLogger("test", "error", false)

	It("Should build a record from a header and row, padding short rows with nil", func() {
		r := stream.NewRecordFromSlice([]string{"id", "type", "store_id"}, []string{"1", "3"})
		Expect(r.GetData("type")).To(Equal("3"))
		Expect(r.GetData("store_id")).To(BeNil())
		Expect(r.GetDataKeysAsSlice(log, []string{"store_id", "id"})).To(Equal([]string{"", "1"}))
	})

	It("Should return values in column map order with empty cells as nil", func() {
		r := stream.NewRecordFromSlice([]string{"a", "b", "c"}, []string{"x", "", "z"})
		cols := om.NewOrderedMap()
		cols.Set("c", "col_c")
		cols.Set("b", "col_b")
		cols.Set("a", "col_a")
		Expect(r.GetDataByColumnMap(log, cols)).To(Equal([]interface{}{"z", nil, "x"}))
	})

	It("Should return nil for cells missing from a short row", func() {
		r := stream.NewRecordFromSlice([]string{"id", "name"}, []string{"1"})
		cols := om.NewOrderedMap()
		cols.Set("id", "id")
		cols.Set("name", "name")
		Expect(r.GetDataByColumnMap(log, cols)).To(Equal([]interface{}{"1", nil}))
	})
})
