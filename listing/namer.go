package listing

import (
	"strconv"
	"strings"
)

// Namer maps symbol names to file names that are legal on common file
// systems. Names that differ only in case get distinct suffixes, so a
// listing can be written to a case-insensitive file system. A Namer belongs
// to a single listing run.
type Namer struct {
	assigned map[string]string // symbol name -> file name
	taken    map[string]bool   // lower-cased file names in use
}

// NewNamer returns an empty Namer.
func NewNamer() *Namer {
	return &Namer{
		assigned: make(map[string]string),
		taken:    make(map[string]bool),
	}
}

// Name returns the file name for name. The same name always maps to the
// same file name within one Namer.
func (n *Namer) Name(name string) string {
	if f, ok := n.assigned[name]; ok {
		return f
	}
	base := legalName(name)
	f := base
	for i := 2; n.taken[strings.ToLower(f)]; i++ {
		f = base + "_" + strconv.Itoa(i)
	}
	n.taken[strings.ToLower(f)] = true
	n.assigned[name] = f
	return f
}

var reservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true, "com5": true,
	"com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true, "lpt5": true,
	"lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

const maxNameLength = 240

// legalName escapes bytes that are not allowed in file names as %XX.
func legalName(name string) string {
	if name == "" {
		return "%"
	}
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c < 0x20 || c >= 0x7f,
			c == '<', c == '>', c == ':', c == '"', c == '/', c == '\\',
			c == '|', c == '?', c == '*', c == '%':
			b.WriteString("%" + strings.ToUpper(strconv.FormatUint(uint64(c)|0x100, 16)[1:]))
		default:
			b.WriteByte(c)
		}
	}
	s := b.String()
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, " ") {
		s = s[:len(s)-1] + "%" + strings.ToUpper(strconv.FormatUint(uint64(s[len(s)-1]), 16))
	}
	stem, _, _ := strings.Cut(s, ".")
	if reservedNames[strings.ToLower(stem)] {
		s = "%" + s
	}
	if len(s) > maxNameLength {
		s = s[:maxNameLength]
	}
	return s
}
