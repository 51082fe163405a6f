package store

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/umputun/gensvc/pkg/status"
)

// ErrorMap maps sqlite extended result codes to messages shown to the user.
// a constraint failure with a code missing from the map is returned as an error.
type ErrorMap map[int]string

// constraint names accepted by ParseErrorMap
var constraintCodes = map[string]int{
	"unique":      sqlite3lib.SQLITE_CONSTRAINT_UNIQUE,
	"primary_key": sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY,
	"not_null":    sqlite3lib.SQLITE_CONSTRAINT_NOTNULL,
	"check":       sqlite3lib.SQLITE_CONSTRAINT_CHECK,
	"foreign_key": sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY,
}

// DefaultErrorMap returns messages for the common constraint failures.
func DefaultErrorMap() ErrorMap {
	return ErrorMap{
		sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:     "a record with this value already exists",
		sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY: "a record with this key already exists",
		sqlite3lib.SQLITE_CONSTRAINT_NOTNULL:    "a required value is missing",
		sqlite3lib.SQLITE_CONSTRAINT_CHECK:      "a value is out of the allowed range",
		sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY: "the record refers to a missing record",
	}
}

// ParseErrorMap builds an ErrorMap from name or numeric code keys, e.g. "unique" or "2067".
// entries override DefaultErrorMap.
func ParseErrorMap(entries map[string]string) (ErrorMap, error) {
	res := DefaultErrorMap()
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := strings.ToLower(strings.TrimSpace(k))
		code, ok := constraintCodes[name]
		if !ok {
			n, err := strconv.Atoi(name)
			if err != nil {
				return nil, fmt.Errorf("unknown sql error %q", k)
			}
			code = n
		}
		res[code] = entries[k]
	}
	return res, nil
}

// constraintColumns captures the column list sqlite appends to constraint failures
var constraintColumns = regexp.MustCompile(`(?:UNIQUE|NOT NULL|CHECK|PRIMARY KEY) constraint failed: ([\w.]+(?:, [\w.]+)*)`)

// mapError converts a constraint failure into an error entry naming the failing columns.
// ok is false for errors the map does not cover.
func (m ErrorMap) mapError(err error) (entry status.ErrorEntry, ok bool) {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return status.ErrorEntry{}, false
	}
	msg, ok := m[sqliteErr.Code()]
	if !ok {
		return status.ErrorEntry{}, false
	}
	return status.ErrorEntry{Message: msg, Members: failedColumns(sqliteErr.Error())}, true
}

func failedColumns(msg string) []string {
	match := constraintColumns.FindStringSubmatch(msg)
	if match == nil {
		return nil
	}
	var res []string
	for col := range strings.SplitSeq(match[1], ", ") {
		if _, name, found := strings.Cut(col, "."); found {
			col = name
		}
		res = append(res, col)
	}
	return res
}
