// Package dag holds the declarative unit of a bring-up, the ProcessSpec, and
// the ProcessGraph built from a set of them. New validates the dependency
// lists (missing names, duplicates, cycles) and orders the specs so that
// every dependency appears before its dependents. A failed validation never
// yields a partial graph.
package dag
