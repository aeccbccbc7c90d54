package helper

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	om "github.com/cevaris/ordered_map"
	"github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/logger"
)

// StringSliceToOrderedMap adds each value in s to an ordered map with key and value set to the value in s.
func StringSliceToOrderedMap(s []string) *om.OrderedMap {
	retval := om.NewOrderedMap()
	for _, v := range s {
		retval.Set(v, v)
	}
	return retval
}

// OrderedMapValuesToStringSlice builds a list of the values found in ordered map m.
func OrderedMapValuesToStringSlice(m *om.OrderedMap) []string {
	retval := make([]string, 0, m.Len())
	iter := m.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		retval = append(retval, kv.Value.(string))
	}
	return retval
}

// CsvToStringSliceTrimSpaces converts a string of the form, 'f1, f2, f3' into a slice of string values.
// Empty tokens are dropped.
func CsvToStringSliceTrimSpaces(s string) []string {
	tokens := strings.Split(s, ",")
	retval := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			retval = append(retval, t)
		}
	}
	return retval
}

// GetStringFromInterface will convert interface{} value to a string.
// Times use the spreadsheet timestamp layout.
func GetStringFromInterface(log logger.Logger, input interface{}) (retval string) {
	switch v := input.(type) {
	case int, int16, int32, int64, int8, uint8:
		retval = fmt.Sprintf("%d", v)
	case string:
		retval = v
	case float32:
		retval = strconv.FormatFloat(float64(v), 'f', -1, 32) // use 'f' to avoid an exponent.
	case float64:
		retval = strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		retval = v.Format(constants.TimeFormatCellTimestamp)
	case []uint8:
		retval = string(v)
	case bool:
		retval = fmt.Sprintf("%v", v)
	case nil:
		retval = ""
	default:
		log.Panic("unhandled type while fetching string from interface: type = ", reflect.TypeOf(input), "; value = ", input)
	}
	return
}

// QuoteSqlString wraps s in single quotes, escaping any embedded quotes.
func QuoteSqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteSqlStrings returns a comma separated list of quoted strings.
func QuoteSqlStrings(s []string) string {
	q := make([]string, len(s))
	for i, v := range s {
		q[i] = QuoteSqlString(v)
	}
	return strings.Join(q, ", ")
}
