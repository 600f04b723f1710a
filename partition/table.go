package partition

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// serializeSymbolTable renders the symbol table as "file:code,file:code,..."
// ordered by code, so equal tables serialize identically.
func serializeSymbolTable(symbols *sync.Map) string {
	type assignment struct {
		file string
		code int32
	}
	var assignments []assignment
	symbols.Range(func(k, v any) bool {
		assignments = append(assignments, assignment{file: k.(string), code: v.(int32)})
		return true
	})
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].code < assignments[j].code
	})

	var sb strings.Builder
	for i, a := range assignments {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(a.file)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(int(a.code)))
	}
	return sb.String()
}

// serializeLastModifiedTable renders the last-modified table as
// "file:timestamp,..." ordered by file name.
func serializeLastModifiedTable(table *sync.Map) string {
	type stamp struct {
		file string
		ts   int64
	}
	var stamps []stamp
	table.Range(func(k, v any) bool {
		stamps = append(stamps, stamp{file: k.(string), ts: v.(int64)})
		return true
	})
	sort.Slice(stamps, func(i, j int) bool {
		return stamps[i].file < stamps[j].file
	})

	var sb strings.Builder
	for i, s := range stamps {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s.file)
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatInt(s.ts, 10))
	}
	return sb.String()
}

// ParseSymbolTable decodes a serialized symbol table back into a
// file-name-to-code mapping, so file identity can be recovered from
// positional tokens at lookup time.
func ParseSymbolTable(s string) (map[string]int32, error) {
	if s == "" {
		return map[string]int32{}, nil
	}
	out := make(map[string]int32)
	for pair := range strings.SplitSeq(s, ",") {
		// File names may contain colons; the code follows the last one.
		i := strings.LastIndexByte(pair, ':')
		if i < 0 {
			return nil, fmt.Errorf("malformed symbol table entry: %q", pair)
		}
		code, err := strconv.ParseInt(pair[i+1:], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed symbol table entry: %q: %w", pair, err)
		}
		out[pair[:i]] = int32(code)
	}
	return out, nil
}

// ParseLastModifiedTable decodes a serialized last-modified table back into
// a file-name-to-timestamp mapping.
func ParseLastModifiedTable(s string) (map[string]int64, error) {
	if s == "" {
		return map[string]int64{}, nil
	}
	out := make(map[string]int64)
	for pair := range strings.SplitSeq(s, ",") {
		i := strings.LastIndexByte(pair, ':')
		if i < 0 {
			return nil, fmt.Errorf("malformed last-modified entry: %q", pair)
		}
		ts, err := strconv.ParseInt(pair[i+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed last-modified entry: %q: %w", pair, err)
		}
		out[pair[:i]] = ts
	}
	return out, nil
}
