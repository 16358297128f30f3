package program

import "github.com/gemforce-team/abcedit/abc"

// Program is the editable object graph of an ABC document.
//
// Classes and methods live in arenas owned by the Program and are referenced
// everywhere else by ID, so graphs with cycles (a method body creating its
// own class) need no shared pointers.
type Program struct {
	MinorVersion uint16
	MajorVersion uint16

	Scripts []*Script

	// OrphanClasses and OrphanMethods hold nodes that no script reaches but
	// that must survive a round trip.
	OrphanClasses []ClassID
	OrphanMethods []MethodID

	classes []*Class
	methods []*Method
}

// New returns an empty program with the default format version.
func New() *Program {
	return &Program{
		MinorVersion: abc.DefaultMinorVersion,
		MajorVersion: abc.DefaultMajorVersion,
	}
}

// AddClass adds c to the arena and returns its ID.
func (p *Program) AddClass(c *Class) ClassID {
	p.classes = append(p.classes, c)
	return ClassID(len(p.classes))
}

// AddMethod adds m to the arena and returns its ID. If m has a body, the
// body's owner is set to the new ID.
func (p *Program) AddMethod(m *Method) MethodID {
	p.methods = append(p.methods, m)
	id := MethodID(len(p.methods))
	if m.Body != nil {
		m.Body.Method = id
	}
	return id
}

// Class returns the class with the given ID, or nil.
func (p *Program) Class(id ClassID) *Class {
	if id == 0 || int(id) > len(p.classes) {
		return nil
	}
	return p.classes[id-1]
}

// Method returns the method with the given ID, or nil.
func (p *Program) Method(id MethodID) *Method {
	if id == 0 || int(id) > len(p.methods) {
		return nil
	}
	return p.methods[id-1]
}

// NumClasses returns the arena size for classes. Valid IDs are 1..NumClasses.
func (p *Program) NumClasses() int { return len(p.classes) }

// NumMethods returns the arena size for methods. Valid IDs are 1..NumMethods.
func (p *Program) NumMethods() int { return len(p.methods) }

// Walk visits every class and method reachable from the scripts, then from
// the orphan lists, each at most once, in first-reached order.
func (p *Program) Walk(class func(ClassID, *Class), method func(MethodID, *Method)) {
	w := walker{p: p, class: class, method: method,
		seenClass: make(map[ClassID]bool), seenMethod: make(map[MethodID]bool)}
	for _, s := range p.Scripts {
		w.visitMethod(s.SInit)
		w.visitTraits(s.Traits)
	}
	for _, id := range p.OrphanClasses {
		w.visitClass(id)
	}
	for _, id := range p.OrphanMethods {
		w.visitMethod(id)
	}
}

type walker struct {
	p          *Program
	class      func(ClassID, *Class)
	method     func(MethodID, *Method)
	seenClass  map[ClassID]bool
	seenMethod map[MethodID]bool
}

func (w *walker) visitClass(id ClassID) {
	c := w.p.Class(id)
	if c == nil || w.seenClass[id] {
		return
	}
	w.seenClass[id] = true
	if w.class != nil {
		w.class(id, c)
	}
	w.visitMethod(c.CInit)
	w.visitTraits(c.Traits)
	w.visitMethod(c.Instance.IInit)
	w.visitTraits(c.Instance.Traits)
}

func (w *walker) visitMethod(id MethodID) {
	m := w.p.Method(id)
	if m == nil || w.seenMethod[id] {
		return
	}
	w.seenMethod[id] = true
	if w.method != nil {
		w.method(id, m)
	}
	if m.Body == nil {
		return
	}
	w.visitTraits(m.Body.Traits)
	for _, in := range m.Body.Instructions {
		for _, a := range in.Args {
			switch a := a.(type) {
			case ClassRef:
				w.visitClass(ClassID(a))
			case MethodRef:
				w.visitMethod(MethodID(a))
			}
		}
	}
}

func (w *walker) visitTraits(traits []Trait) {
	for _, t := range traits {
		switch pl := t.Payload.(type) {
		case *ClassTrait:
			w.visitClass(pl.Class)
		case *FunctionTrait:
			w.visitMethod(pl.Method)
		case *MethodTrait:
			w.visitMethod(pl.Method)
		}
	}
}
