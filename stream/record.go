package stream

import (
	"fmt"

	om "github.com/cevaris/ordered_map"
	h "github.com/relloyd/xlpipe/helper"
	"github.com/relloyd/xlpipe/logger"
)

// Record is used to communicate data between components.
// Records travel over channels by value; the map inside is shared.
type Record struct {
	data map[string]interface{} // raw data values, where nil represents an empty cell or database null.
}

// NewRecord creates a new Record and returns it by value.
func NewRecord() Record {
	return Record{data: make(map[string]interface{})}
}

// NewRecordFromSlice builds a Record whose keys are the header fields and values the matching cells.
// Missing trailing cells are set to nil.
func NewRecordFromSlice(header []string, values []string) Record {
	r := NewRecord()
	for idx, k := range header {
		if idx < len(values) {
			r.data[k] = values[idx]
		} else {
			r.data[k] = nil
		}
	}
	return r
}

func (sr Record) SetData(name string, value interface{}) {
	sr.data[name] = value
}

func (sr Record) GetData(name string) interface{} {
	val, ok := sr.data[name]
	if !ok {
		panic(fmt.Sprintf("Invalid key name %q supplied while trying to fetch value from record: %v", name, sr.data))
	}
	return val
}

// GetDataAsString will convert the value of field name to a string.
func (sr Record) GetDataAsString(log logger.Logger, name string) string {
	v, ok := sr.data[name]
	if !ok {
		log.Panic("unexpected field ", name, " does not exist in the input stream")
	}
	return h.GetStringFromInterface(log, v)
}

// GetDataKeysAsSlice builds a slice of strings containing the values found in sr.data for each of the supplied
// keys in slice keys.
func (sr Record) GetDataKeysAsSlice(log logger.Logger, keys []string) []string {
	retval := make([]string, 0, len(keys))
	for _, k := range keys {
		retval = append(retval, sr.GetDataAsString(log, k))
	}
	return retval
}

// GetDataByColumnMap returns the values of the record in the order of the ordered map, where keys
// are record fields and values are target column names.
// Empty strings become nil so they load as null.
func (sr Record) GetDataByColumnMap(log logger.Logger, cols *om.OrderedMap) []interface{} {
	retval := make([]interface{}, 0, cols.Len())
	iter := cols.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		v := sr.GetDataAsString(log, kv.Key.(string))
		if v == "" {
			retval = append(retval, nil)
		} else {
			retval = append(retval, v)
		}
	}
	return retval
}
