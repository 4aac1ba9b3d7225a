package envelope

import (
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
)

// maxCachedNames bounds the split cache. Names come from the element
// vocabulary of the services a process talks to, so the cap is rarely hit;
// names past it are split without being stored.
const maxCachedNames = 4096

// QName is a qualified element name split at its first colon.
type QName struct {
	Prefix string
	Local  string
}

func (q QName) String() string {
	if q.Prefix == "" {
		return q.Local
	}
	return q.Prefix + ":" + q.Local
}

var (
	nameCache     sync.Map
	nameCacheSize atomic.Int64
)

// SplitName splits a qualified name into prefix and local name. Results are
// memoized process-wide; the same input always yields the same QName.
func SplitName(qualified string) QName {
	if cached, ok := nameCache.Load(qualified); ok {
		return cached.(QName)
	}
	name := splitName(qualified)
	if nameCacheSize.Load() < maxCachedNames {
		if _, loaded := nameCache.LoadOrStore(qualified, name); !loaded {
			nameCacheSize.Add(1)
		}
	}
	return name
}

func splitName(qualified string) QName {
	idx := strings.IndexByte(qualified, ':')
	if idx < 0 {
		return QName{Local: qualified}
	}
	return QName{Prefix: qualified[:idx], Local: qualified[idx+1:]}
}

func validQName(name QName) bool {
	if !validNCName(name.Local) {
		return false
	}
	return name.Prefix == "" || validNCName(name.Prefix)
}

func validNCName(value string) bool {
	if value == "" {
		return false
	}
	for i, r := range value {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return true
}
