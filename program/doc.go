// Package program provides the editable object graph of an ABC document.
//
// # Loading
//
// FromABC converts a parsed *abc.File into a *Program. Every pool index is
// replaced by the value it names: strings become NullString, namespaces and
// multinames become Namespace and Multiname values, and class and method
// indices become ClassID and MethodID references into the program's arenas.
// Classes and methods that no script reaches are kept in the orphan lists.
//
//	f, err := abc.Parse(data)
//	if err != nil {
//		return err
//	}
//	p, err := program.FromABC(f)
//
// # Editing
//
// Branch targets and exception ranges are abc.Label values relative to the
// instruction list. MethodBody.InsertInstructions and RemoveInstructions keep
// them pointing at the same instructions.
//
// # Writing
//
// ToABC rebuilds the constant pools from the values the program uses. Pool
// order is chosen by use count, so the tables it produces generally differ
// from the ones the program was loaded from; Equal compares programs
// independently of that order.
//
//	f, err := program.ToABC(p)
//	if err != nil {
//		return err
//	}
//	data, err := f.Encode()
package program
