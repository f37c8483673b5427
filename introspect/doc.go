// Package introspect builds the declaration graph of a set of model files
// and answers questions about it.
//
// A ModelManager owns the model files, keyed by namespace, and starts with
// the system model registered. Each ModelFile is parsed into class
// declarations whose properties, super types and decorators are resolved
// lazily against the manager:
//
//	mm, err := introspect.NewModelManager()
//	if err != nil {
//		return err
//	}
//	if _, err := mm.AddModelFile(`namespace org.acme
//	asset Car identified by vin {
//	  o String vin
//	}`, "acme.cto"); err != nil {
//		return err
//	}
//	car, err := mm.Type("org.acme.Car")
//
// Every node of the graph implements Acceptor, so one Visitor can walk the
// whole model. Code generators are written that way.
package introspect
