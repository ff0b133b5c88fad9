package grove

import (
	"fmt"
	"strings"
)

// FormatPlan renders a call-site tree, one node per line, children indented
// by two spaces:
//
//	singleton *app.UserService
//	  constructor *app.UserService via func(*app.Repo) *app.UserService
//	    scoped *app.Repo
//	      create-instance *app.Repo
func FormatPlan(cs CallSite) string {
	var b strings.Builder
	writePlan(&b, cs, 0)
	return b.String()
}

func writePlan(b *strings.Builder, cs CallSite, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(cs.Kind().String())
	b.WriteByte(' ')
	b.WriteString(cs.ServiceType().String())

	switch cs := cs.(type) {
	case *ConstantCallSite:
		fmt.Fprintf(b, " = %v", cs.Value)
	case *CreateInstanceCallSite:
		fmt.Fprintf(b, " via %s", cs.Constructor)
	case *ConstructorCallSite:
		fmt.Fprintf(b, " via %s", cs.Constructor)
	case *InstanceCallSite:
		fmt.Fprintf(b, " (%T)", cs.Descriptor.instance)
	}
	b.WriteByte('\n')

	for _, child := range children(cs) {
		writePlan(b, child, depth+1)
	}
}

func children(cs CallSite) []CallSite {
	switch cs := cs.(type) {
	case *ConstructorCallSite:
		return cs.Args
	case *ClosedCollectionCallSite:
		return cs.Members
	case *TransientCallSite:
		return []CallSite{cs.Inner}
	case *ScopedCallSite:
		return []CallSite{cs.Inner}
	case *SingletonCallSite:
		return []CallSite{cs.Inner}
	}
	return nil
}
