package abcedit

import (
	"encoding/hex"

	"lukechampine.com/blake3"

	"github.com/gemforce-team/abcedit/abc"
	"github.com/gemforce-team/abcedit/program"
)

// Decode parses an ABC document into a program.
func Decode(data []byte) (*program.Program, error) {
	f, err := abc.Parse(data)
	if err != nil {
		return nil, err
	}
	return program.FromABC(f)
}

// Encode writes a program as an ABC document.
func Encode(p *program.Program, opts abc.EncodeOptions) ([]byte, error) {
	f, err := program.ToABC(p)
	if err != nil {
		return nil, err
	}
	return f.EncodeWith(opts)
}

// RoundTripResult describes one decode-encode-decode cycle.
type RoundTripResult struct {
	Output []byte
	// Identical reports whether the output bytes equal the input.
	Identical bool
	// Equal reports whether the output decodes to a program equal to the
	// input's. With EncodeOptions.SugarLocals both sides are compared in
	// their long getlocal/setlocal forms.
	Equal bool
}

// RoundTrip decodes data, encodes it again and compares the two.
func RoundTrip(data []byte, opts abc.EncodeOptions) (RoundTripResult, error) {
	p, err := Decode(data)
	if err != nil {
		return RoundTripResult{}, err
	}
	out, err := Encode(p, opts)
	if err != nil {
		return RoundTripResult{}, err
	}
	again, err := Decode(out)
	if err != nil {
		return RoundTripResult{}, err
	}
	if opts.SugarLocals {
		p.DesugarLocals()
		again.DesugarLocals()
	}
	return RoundTripResult{
		Output:    out,
		Identical: string(out) == string(data),
		Equal:     program.Equal(p, again),
	}, nil
}

// PoolSizes counts the entries of each constant pool, including the
// reserved entry 0.
type PoolSizes struct {
	Ints          int `yaml:"ints"`
	UInts         int `yaml:"uints"`
	Doubles       int `yaml:"doubles"`
	Strings       int `yaml:"strings"`
	Namespaces    int `yaml:"namespaces"`
	NamespaceSets int `yaml:"namespace_sets"`
	Multinames    int `yaml:"multinames"`
}

// Summary describes a decoded document.
type Summary struct {
	MinorVersion  uint16    `yaml:"minor_version"`
	MajorVersion  uint16    `yaml:"major_version"`
	Size          int       `yaml:"size"`
	Digest        string    `yaml:"digest"`
	Pools         PoolSizes `yaml:"pools"`
	Methods       int       `yaml:"methods"`
	Bodies        int       `yaml:"bodies"`
	Metadata      int       `yaml:"metadata"`
	Classes       int       `yaml:"classes"`
	Scripts       int       `yaml:"scripts"`
	Instructions  int       `yaml:"instructions"`
	DecodeErrors  int       `yaml:"decode_errors"`
	OrphanClasses int       `yaml:"orphan_classes"`
	OrphanMethods int       `yaml:"orphan_methods"`
}

// Summarize decodes data and reports its table sizes and health.
func Summarize(data []byte) (Summary, error) {
	f, err := abc.Parse(data)
	if err != nil {
		return Summary{}, err
	}
	p, err := program.FromABC(f)
	if err != nil {
		return Summary{}, err
	}
	digest := blake3.Sum256(data)
	s := Summary{
		MinorVersion: f.MinorVersion,
		MajorVersion: f.MajorVersion,
		Size:         len(data),
		Digest:       hex.EncodeToString(digest[:]),
		Pools: PoolSizes{
			Ints:          len(f.Ints),
			UInts:         len(f.UInts),
			Doubles:       len(f.Doubles),
			Strings:       len(f.Strings),
			Namespaces:    len(f.Namespaces),
			NamespaceSets: len(f.NamespaceSets),
			Multinames:    len(f.Multinames),
		},
		Methods:       len(f.Methods),
		Bodies:        len(f.Bodies),
		Metadata:      len(f.Metadata),
		Classes:       len(f.Classes),
		Scripts:       len(f.Scripts),
		OrphanClasses: len(p.OrphanClasses),
		OrphanMethods: len(p.OrphanMethods),
	}
	for _, b := range f.Bodies {
		s.Instructions += len(b.Instructions)
		s.DecodeErrors += len(b.Errors)
	}
	return s, nil
}
